// Package persistence provides SQLite-based storage for scheduler
// diagnostics: category configuration, stats history, and assignment
// events. The scheduling caches themselves are ephemeral by design and
// are never persisted.
package persistence

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/taskpulse/internal/engine"
	"github.com/talgya/taskpulse/internal/schedule"
)

// DB wraps a SQLite connection for diagnostics storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS categories (
		key TEXT PRIMARY KEY,
		priority INTEGER NOT NULL,
		interval INTEGER NOT NULL,
		tick_groups INTEGER NOT NULL,
		stagger_offset INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stats_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session TEXT NOT NULL,
		tick INTEGER NOT NULL,
		category TEXT NOT NULL,
		due_count INTEGER NOT NULL,
		refresh_count INTEGER NOT NULL,
		fetch_failures INTEGER NOT NULL,
		assignments INTEGER NOT NULL,
		misses INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_stats_category ON stats_history(category, tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveCategories writes the registered category configuration (full replace).
func (db *DB) SaveCategories(stats []schedule.CategoryStats) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM categories"); err != nil {
		return err
	}

	for _, st := range stats {
		_, err := tx.Exec(`INSERT INTO categories
			(key, priority, interval, tick_groups, stagger_offset)
			VALUES (?, ?, ?, ?, ?)`,
			string(st.Category), st.Priority, st.Interval, st.TickGroups, st.StaggerOffset,
		)
		if err != nil {
			return fmt.Errorf("insert category %s: %w", st.Category, err)
		}
	}

	return tx.Commit()
}

// SaveStatsSnapshot appends one row per category at the given tick.
func (db *DB) SaveStatsSnapshot(session string, tick uint64, stats []schedule.CategoryStats) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, st := range stats {
		_, err := tx.Exec(`INSERT INTO stats_history
			(session, tick, category, due_count, refresh_count, fetch_failures, assignments, misses)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			session, tick, string(st.Category),
			st.DueCount, st.RefreshCount, st.FetchFailures, st.Assignments, st.Misses,
		)
		if err != nil {
			return fmt.Errorf("insert stats %s: %w", st.Category, err)
		}
	}

	return tx.Commit()
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (tick, description, category) VALUES (?, ?, ?)",
			e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in session metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO session_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM session_meta WHERE key = ?", key)
	return value, err
}

// SaveDiagnostics performs a full diagnostic save.
func (db *DB) SaveDiagnostics(session string, tick uint64, stats []schedule.CategoryStats, events []engine.Event) error {
	if err := db.SaveCategories(stats); err != nil {
		return fmt.Errorf("save categories: %w", err)
	}
	if err := db.SaveStatsSnapshot(session, tick, stats); err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	if err := db.SaveEvents(events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveMeta("last_tick", fmt.Sprintf("%d", tick)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("session", session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	slog.Info("diagnostics saved", "tick", tick, "categories", len(stats), "events", len(events))
	return nil
}

// RecentEvents returns the most recent N events.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// StatsRow is one stats_history row.
type StatsRow struct {
	Tick          uint64 `json:"tick" db:"tick"`
	Category      string `json:"category" db:"category"`
	DueCount      uint64 `json:"due_count" db:"due_count"`
	RefreshCount  uint64 `json:"refresh_count" db:"refresh_count"`
	FetchFailures uint64 `json:"fetch_failures" db:"fetch_failures"`
	Assignments   uint64 `json:"assignments" db:"assignments"`
	Misses        uint64 `json:"misses" db:"misses"`
}

// StatsHistory returns the most recent snapshots for one category.
func (db *DB) StatsHistory(category string, limit int) ([]StatsRow, error) {
	var rows []StatsRow
	err := db.conn.Select(&rows,
		`SELECT tick, category, due_count, refresh_count, fetch_failures, assignments, misses
		 FROM stats_history WHERE category = ? ORDER BY tick DESC LIMIT ?`,
		category, limit,
	)
	return rows, err
}
