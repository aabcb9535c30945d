package schedule

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/taskpulse/internal/grid"
)

// testDispatcher wires a dispatcher over a fixed candidate→position table
// with a single always-eligible category.
func testDispatcher(t *testing.T, positions map[Candidate]grid.HexCoord) *Dispatcher {
	t.Helper()
	d := New(Config{
		Locate: mapLocator(positions),
		Rand:   rand.New(rand.NewSource(7)),
	})
	// Interval 1 and a single tick group: due for every agent every tick.
	d.RegisterCategory("hauling", 5, 1, 1)
	return d
}

func acceptAll(Candidate, Agent) bool { return true }

func TestDispatcherAssignsFromFetch(t *testing.T) {
	x := Candidate{Slot: 1, Gen: 1}
	d := testDispatcher(t, map[Candidate]grid.HexCoord{x: {Q: 1, R: 0}})

	fetches := 0
	d.BindFetch("hauling", "test-provider", func(region RegionID) ([]Candidate, error) {
		fetches++
		return []Candidate{x}, nil
	})

	got, ok := d.Assign(1, 1, "hauling", stubAgent{id: 1}, acceptAll)
	require.True(t, ok)
	assert.Equal(t, x, got)
	assert.Equal(t, 1, fetches)

	stats := d.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, Category("hauling"), stats[0].Category)
	assert.Equal(t, uint64(1), stats[0].DueCount)
	assert.Equal(t, uint64(1), stats[0].RefreshCount)
	assert.Equal(t, uint64(1), stats[0].Assignments)
	assert.Equal(t, []string{"test-provider"}, stats[0].Providers)
}

func TestDispatcherRotationGatesAgents(t *testing.T) {
	x := Candidate{Slot: 1, Gen: 1}
	d := New(Config{
		Locate: mapLocator(map[Candidate]grid.HexCoord{x: {Q: 1, R: 0}}),
		Rand:   rand.New(rand.NewSource(7)),
	})
	d.RegisterCategory("hauling", 5, 1, 4)
	d.BindFetch("hauling", "p", func(RegionID) ([]Candidate, error) {
		return []Candidate{x}, nil
	})

	// Tick 0, agent 7: 0%4 != 7%4, not this agent's turn.
	_, ok := d.Assign(0, 1, "hauling", stubAgent{id: 7}, acceptAll)
	assert.False(t, ok)

	// Tick 3 matches agent 7's slot.
	_, ok = d.Assign(3, 1, "hauling", stubAgent{id: 7}, acceptAll)
	assert.True(t, ok)

	// ForceAssign ignores the rotation entirely.
	_, ok = d.ForceAssign(0, 1, "hauling", stubAgent{id: 7}, acceptAll)
	assert.True(t, ok)
}

func TestDispatcherFetchErrorKeepsOldCache(t *testing.T) {
	x := Candidate{Slot: 1, Gen: 1}
	d := testDispatcher(t, map[Candidate]grid.HexCoord{x: {Q: 1, R: 0}})

	failing := false
	d.BindFetch("hauling", "p", func(RegionID) ([]Candidate, error) {
		if failing {
			return nil, errors.New("provider offline")
		}
		return []Candidate{x}, nil
	})

	_, ok := d.Assign(1, 1, "hauling", stubAgent{id: 1}, acceptAll)
	require.True(t, ok)

	// Interval 1: the next tick is stale again, but the fetch now fails.
	// The previous candidate list keeps serving.
	failing = true
	got, ok := d.Assign(2, 1, "hauling", stubAgent{id: 1}, acceptAll)
	require.True(t, ok)
	assert.Equal(t, x, got)

	stats := d.Stats()
	assert.Equal(t, uint64(1), stats[0].FetchFailures)
	assert.Equal(t, uint64(1), stats[0].RefreshCount)
}

func TestDispatcherFetchPanicRecovered(t *testing.T) {
	x := Candidate{Slot: 1, Gen: 1}
	d := testDispatcher(t, map[Candidate]grid.HexCoord{x: {Q: 1, R: 0}})

	panicking := false
	d.BindFetch("hauling", "p", func(RegionID) ([]Candidate, error) {
		if panicking {
			panic("provider bug")
		}
		return []Candidate{x}, nil
	})

	_, ok := d.Assign(1, 1, "hauling", stubAgent{id: 1}, acceptAll)
	require.True(t, ok)

	panicking = true
	got, ok := d.Assign(2, 1, "hauling", stubAgent{id: 1}, acceptAll)
	require.True(t, ok, "a panicking provider must not take the scheduler down")
	assert.Equal(t, x, got)
	assert.Equal(t, uint64(1), d.Stats()[0].FetchFailures)
}

func TestDispatcherEmptyFetchFastExit(t *testing.T) {
	d := testDispatcher(t, nil)

	validated := 0
	d.BindFetch("hauling", "p", func(RegionID) ([]Candidate, error) {
		return nil, nil
	})

	_, ok := d.Assign(1, 1, "hauling", stubAgent{id: 1}, func(Candidate, Agent) bool {
		validated++
		return true
	})
	assert.False(t, ok)
	assert.Zero(t, validated)

	// The empty result was cached, not treated as a failure.
	assert.Equal(t, uint64(1), d.Stats()[0].RefreshCount)
	assert.Zero(t, d.Stats()[0].FetchFailures)
	_, refreshed := d.Cache().LastRefreshTick(1, "hauling")
	assert.True(t, refreshed)
}

func TestDispatcherUnboundCategoryNeverAssigns(t *testing.T) {
	d := testDispatcher(t, nil)
	// No fetch bound: stale forever, never any targets.
	_, ok := d.Assign(1, 1, "hauling", stubAgent{id: 1}, acceptAll)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), d.Stats()[0].DueCount)
	assert.Zero(t, d.Stats()[0].RefreshCount)
}

func TestDispatcherRefreshClearsMemoVerdicts(t *testing.T) {
	x := Candidate{Slot: 1, Gen: 1}
	d := testDispatcher(t, map[Candidate]grid.HexCoord{x: {Q: 1, R: 0}})
	d.BindFetch("hauling", "p", func(RegionID) ([]Candidate, error) {
		return []Candidate{x}, nil
	})

	// First pass rejects x: verdict memoized, miss counted.
	_, ok := d.Assign(1, 1, "hauling", stubAgent{id: 1}, func(Candidate, Agent) bool { return false })
	require.False(t, ok)
	assert.Equal(t, uint64(1), d.Stats()[0].Misses)
	v, known := d.Memo().Get(1, "hauling", x)
	require.True(t, known)
	require.False(t, v)

	// Next tick refreshes (interval 1) and clears the memo, so x gets a
	// second chance.
	got, ok := d.Assign(2, 1, "hauling", stubAgent{id: 1}, acceptAll)
	require.True(t, ok)
	assert.Equal(t, x, got)
}

func TestDispatcherRegionIsolation(t *testing.T) {
	x := Candidate{Slot: 1, Gen: 1}
	y := Candidate{Slot: 2, Gen: 1}
	d := testDispatcher(t, map[Candidate]grid.HexCoord{x: {Q: 1, R: 0}, y: {Q: 2, R: 0}})

	d.BindFetch("hauling", "p", func(region RegionID) ([]Candidate, error) {
		if region == 1 {
			return []Candidate{x}, nil
		}
		return []Candidate{y}, nil
	})

	got1, ok := d.Assign(1, 1, "hauling", stubAgent{id: 1}, acceptAll)
	require.True(t, ok)
	got2, ok := d.Assign(1, 2, "hauling", stubAgent{id: 1}, acceptAll)
	require.True(t, ok)

	assert.Equal(t, x, got1)
	assert.Equal(t, y, got2)
}

func TestBindFetchEmptyKeyIgnored(t *testing.T) {
	d := testDispatcher(t, nil)
	d.BindFetch("", "p", func(RegionID) ([]Candidate, error) { return nil, nil })
	d.BindFetch("hauling", "p", nil)

	_, ok := d.Assign(1, 1, "hauling", stubAgent{id: 1}, acceptAll)
	assert.False(t, ok)
}
