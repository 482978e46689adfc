// Package sqlite implements the persistence repositories on SQLite via the
// cgo-free modernc.org driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/confidential-scheduler/internal/persistence"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS preference_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	employee_id TEXT NOT NULL,
	days_in_office BLOB NOT NULL,
	team_days BLOB NOT NULL,
	focus_days BLOB NOT NULL,
	flexibility BLOB NOT NULL,
	submitted_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_preference_records_employee ON preference_records(employee_id, id);

CREATE TABLE IF NOT EXISTS team_members (
	team_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	employee_id TEXT NOT NULL,
	PRIMARY KEY (team_id, position)
);

CREATE TABLE IF NOT EXISTS team_schedules (
	team_id TEXT PRIMARY KEY,
	office_days BLOB,
	collab_days BLOB,
	overlap_score BLOB,
	optimized INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS personal_schedules (
	employee_id TEXT PRIMARY KEY,
	office_days BLOB,
	collab_days BLOB,
	assigned INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revealed_schedules (
	employee_id TEXT PRIMARY KEY,
	office_days INTEGER NOT NULL DEFAULT 0,
	collab_days INTEGER NOT NULL DEFAULT 0,
	revealed INTEGER NOT NULL DEFAULT 0,
	revealed_at TEXT
);

CREATE TABLE IF NOT EXISTS decryption_requests (
	id TEXT PRIMARY KEY,
	employee_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_decryption_requests_employee ON decryption_requests(employee_id);
`

// Store owns the database handle shared by the repositories.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at the supplied DSN.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open %q: %w", dsn, err)
	}
	// modernc.org/sqlite serialises writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent callers.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the schema. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: failed to apply schema: %w", err)
	}
	return nil
}

// withTransaction executes fn inside a transaction, rolling back on error.
func (s *Store) withTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("sqlite: transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: failed to commit transaction: %w", err)
	}
	return nil
}

// mapError converts driver errors to persistence sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return persistence.ErrNotFound
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return persistence.ErrDuplicate
	case strings.Contains(msg, "constraint failed"):
		return persistence.ErrConstraintViolation
	}
	return err
}
