package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/taskpulse/internal/agents"
	"github.com/talgya/taskpulse/internal/entropy"
	"github.com/talgya/taskpulse/internal/grid"
	"github.com/talgya/taskpulse/internal/schedule"
	"github.com/talgya/taskpulse/internal/world"
)

// simFixture builds a one-region world with a dispatcher tuned so every
// agent is due every tick (interval 1, one tick group).
func simFixture(t *testing.T, ags []*agents.Agent) (*Simulation, *world.World) {
	t.Helper()

	w := world.New()
	w.AddRegion(&world.Region{ID: 1, Name: "test", Radius: 8})

	d := schedule.New(schedule.Config{
		Locate: w.Locate,
		Rand:   entropy.NewSource(42),
	})
	d.RegisterCategory("hauling", 5, 1, 1)
	d.BindFetch("hauling", "haul-piles", w.Fetcher(world.TargetHaulPile))

	return NewSimulation(w, ags, d, 42), w
}

func hauler(id agents.AgentID) *agents.Agent {
	return &agents.Agent{
		ID:        id,
		Name:      "test-hauler",
		Region:    1,
		Archetype: agents.ArchetypeHauler,
		Alive:     true,
	}
}

func TestTickAssignGivesIdleAgentWork(t *testing.T) {
	ag := hauler(1)
	sim, w := simFixture(t, []*agents.Agent{ag})

	c := w.Arena().Spawn(world.Target{
		Region: 1, Kind: world.TargetHaulPile, Pos: grid.HexCoord{Q: 1, R: 0}, Amount: 2,
	})

	sim.TickAssign(1)

	assert.Equal(t, c, ag.Task)
	// Travel distance 1 plus the per-unit work time.
	assert.Equal(t, uint64(1+1+workTicksPerUnit), ag.BusyUntil)
	assert.NotEmpty(t, sim.Events)
}

func TestClaimsPreventDoubleAssignment(t *testing.T) {
	a1 := hauler(1)
	a2 := hauler(2)
	sim, w := simFixture(t, []*agents.Agent{a1, a2})

	w.Arena().Spawn(world.Target{
		Region: 1, Kind: world.TargetHaulPile, Pos: grid.HexCoord{Q: 1, R: 0}, Amount: 5,
	})

	sim.TickAssign(1)

	assigned := 0
	if !a1.Task.IsNone() {
		assigned++
	}
	if !a2.Task.IsNone() {
		assigned++
	}
	assert.Equal(t, 1, assigned, "one target, one claim")
}

func TestCompleteTaskConsumesTarget(t *testing.T) {
	ag := hauler(1)
	sim, w := simFixture(t, []*agents.Agent{ag})

	c := w.Arena().Spawn(world.Target{
		Region: 1, Kind: world.TargetHaulPile, Pos: grid.HexCoord{Q: 2, R: 0}, Amount: 1,
	})

	sim.TickAssign(1)
	require.Equal(t, c, ag.Task)

	// Let the work finish.
	sim.TickAssign(ag.BusyUntil)

	assert.Equal(t, grid.HexCoord{Q: 2, R: 0}, ag.Pos)
	assert.Equal(t, uint64(1), ag.TasksDone)
	assert.Equal(t, uint64(1), sim.Stats.TasksCompleted)

	// Amount hit zero: the target is gone and its handle is stale.
	_, live := w.Arena().Resolve(c)
	assert.False(t, live)
	assert.Zero(t, w.Arena().Live())
}

func TestVanishedTargetHandledGracefully(t *testing.T) {
	ag := hauler(1)
	sim, w := simFixture(t, []*agents.Agent{ag})

	c := w.Arena().Spawn(world.Target{
		Region: 1, Kind: world.TargetHaulPile, Pos: grid.HexCoord{Q: 1, R: 0}, Amount: 3,
	})

	sim.TickAssign(1)
	require.Equal(t, c, ag.Task)

	// The target vanishes mid-assignment.
	w.Arena().Free(c)

	sim.TickAssign(ag.BusyUntil)
	assert.Zero(t, ag.TasksDone, "no credit for work on a vanished target")
	assert.True(t, ag.Task.IsNone() || ag.Task != c)
}

func TestUnloadRegionClearsClaimsAndTasks(t *testing.T) {
	ag := hauler(1)
	sim, w := simFixture(t, []*agents.Agent{ag})

	w.Arena().Spawn(world.Target{
		Region: 1, Kind: world.TargetHaulPile, Pos: grid.HexCoord{Q: 1, R: 0}, Amount: 3,
	})

	sim.TickAssign(1)
	require.False(t, ag.Task.IsNone())

	sim.UnloadRegion(1)

	assert.True(t, ag.Task.IsNone())
	assert.Zero(t, ag.BusyUntil)
	assert.Empty(t, sim.claims)
	assert.Zero(t, w.Arena().Live())
	_, ok := w.Region(1)
	assert.False(t, ok)
}

func TestResetSessionClearsEverything(t *testing.T) {
	ag := hauler(1)
	sim, w := simFixture(t, []*agents.Agent{ag})

	w.Arena().Spawn(world.Target{
		Region: 1, Kind: world.TargetHaulPile, Pos: grid.HexCoord{Q: 1, R: 0}, Amount: 3,
	})

	sim.TickAssign(1)
	require.False(t, ag.Task.IsNone())

	before := sim.Dispatcher.Lifecycle().SessionID()
	sim.ResetSession()

	assert.True(t, ag.Task.IsNone())
	assert.Empty(t, sim.claims)
	assert.Zero(t, sim.Dispatcher.Cache().EntryCount())
	assert.NotEqual(t, before, sim.Dispatcher.Lifecycle().SessionID())
}

func TestValidatorRejectsBlockedAndExhausted(t *testing.T) {
	ag := hauler(1)
	sim, w := simFixture(t, []*agents.Agent{ag})

	w.Arena().Spawn(world.Target{
		Region: 1, Kind: world.TargetHaulPile, Pos: grid.HexCoord{Q: 1, R: 0}, Amount: 3, Blocked: true,
	})
	w.Arena().Spawn(world.Target{
		Region: 1, Kind: world.TargetHaulPile, Pos: grid.HexCoord{Q: 2, R: 0}, Amount: 0,
	})

	sim.TickAssign(1)
	assert.True(t, ag.Task.IsNone())
}

func TestMaintenanceRescalesAndReplenishes(t *testing.T) {
	var ags []*agents.Agent
	for i := 1; i <= 60; i++ {
		ags = append(ags, hauler(agents.AgentID(i)))
	}
	sim, w := simFixture(t, ags)

	before := w.Arena().Live()
	sim.Maintenance(600)

	// 60 alive agents cross the 50-agent load step: intervals double.
	assert.Equal(t, uint64(2), sim.Dispatcher.Registry().Interval("hauling"))
	assert.Greater(t, w.Arena().Live(), before, "maintenance replenishes targets")
}

func TestEngineStepFiresCallbacks(t *testing.T) {
	e := NewEngine()
	e.MaintenanceEvery = 2

	var ticks, maints []uint64
	e.OnTick = func(tick uint64) { ticks = append(ticks, tick) }
	e.OnMaintenance = func(tick uint64) { maints = append(maints, tick) }

	for i := 0; i < 5; i++ {
		e.step()
	}

	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, ticks)
	assert.Equal(t, []uint64{2, 4}, maints)
}
