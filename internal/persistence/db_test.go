package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/taskpulse/internal/engine"
	"github.com/talgya/taskpulse/internal/schedule"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleStats() []schedule.CategoryStats {
	return []schedule.CategoryStats{
		{
			Category: "hauling", Priority: 5, Interval: 60, TickGroups: 4, StaggerOffset: 17,
			DueCount: 100, RefreshCount: 10, FetchFailures: 1, Assignments: 40, Misses: 5,
		},
		{
			Category: "repair", Priority: 8, Interval: 30, TickGroups: 4, StaggerOffset: 3,
		},
	}
}

func TestSaveAndQueryStats(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveStatsSnapshot("session-a", 600, sampleStats()))
	require.NoError(t, db.SaveStatsSnapshot("session-a", 1200, sampleStats()))

	rows, err := db.StatsHistory("hauling", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// Most recent first.
	assert.Equal(t, uint64(1200), rows[0].Tick)
	assert.Equal(t, uint64(100), rows[0].DueCount)
	assert.Equal(t, uint64(1), rows[0].FetchFailures)
}

func TestSaveCategoriesReplaces(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveCategories(sampleStats()))
	// Saving again must not accumulate rows.
	require.NoError(t, db.SaveCategories(sampleStats()[:1]))

	var n int
	require.NoError(t, db.conn.Get(&n, "SELECT COUNT(*) FROM categories"))
	assert.Equal(t, 1, n)
}

func TestSaveAndLoadEvents(t *testing.T) {
	db := openTestDB(t)

	events := []engine.Event{
		{Tick: 1, Description: "first", Category: "hauling"},
		{Tick: 2, Description: "second", Category: "repair"},
	}
	require.NoError(t, db.SaveEvents(events))
	require.NoError(t, db.SaveEvents(nil)) // no-op

	got, err := db.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Description)
}

func TestMetaRoundTrip(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveMeta("last_tick", "600"))
	require.NoError(t, db.SaveMeta("last_tick", "1200"))

	v, err := db.GetMeta("last_tick")
	require.NoError(t, err)
	assert.Equal(t, "1200", v)

	_, err = db.GetMeta("missing")
	assert.Error(t, err)
}

func TestSaveDiagnostics(t *testing.T) {
	db := openTestDB(t)

	events := []engine.Event{{Tick: 5, Description: "x", Category: "hauling"}}
	require.NoError(t, db.SaveDiagnostics("session-b", 600, sampleStats(), events))

	tick, err := db.GetMeta("last_tick")
	require.NoError(t, err)
	assert.Equal(t, "600", tick)

	session, err := db.GetMeta("session")
	require.NoError(t, err)
	assert.Equal(t, "session-b", session)
}
