// Package sqlite implements the batch store on an embedded SQLite database.
//
// It is used for local runs and tests. Timestamps are stored as fixed-width
// UTC text so that ordering by the column matches chronological order.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is RFC 3339 with a fixed nanosecond width.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is a core.Store backed by database/sql and modernc.org/sqlite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) a SQLite database at dsn and ensures all tables
// exist. Pass ":memory:" for an in-memory database.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if dsn != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set wal mode: %w", err)
		}
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS batches (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			client_id TEXT NOT NULL DEFAULT '',
			client TEXT NOT NULL DEFAULT '',
			declared_format TEXT NOT NULL DEFAULT '',
			detected_format TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL,
			record_count INTEGER NOT NULL DEFAULT 0,
			finding_count INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_batches_state ON batches(state)`,
		`CREATE INDEX IF NOT EXISTS idx_batches_created_at ON batches(created_at)`,

		`CREATE TABLE IF NOT EXISTS batch_logs (
			id TEXT PRIMARY KEY,
			batch_id TEXT NOT NULL,
			message TEXT NOT NULL,
			level TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_batch_logs_batch ON batch_logs(batch_id)`,

		`CREATE TABLE IF NOT EXISTS batch_errors (
			id TEXT PRIMARY KEY,
			batch_id TEXT NOT NULL,
			row_number INTEGER NOT NULL,
			field TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL,
			severity TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_batch_errors_batch ON batch_errors(batch_id)`,

		`CREATE TABLE IF NOT EXISTS exceptions (
			id TEXT PRIMARY KEY,
			batch_id TEXT NOT NULL,
			row_number INTEGER NOT NULL,
			document TEXT NOT NULL,
			reported_name TEXT NOT NULL DEFAULT '',
			validation_state TEXT NOT NULL,
			management_state TEXT NOT NULL,
			party_role TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			correction TEXT,
			detected_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exceptions_batch ON exceptions(batch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_exceptions_management_state ON exceptions(management_state)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}

	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
