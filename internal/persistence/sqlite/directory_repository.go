package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/confidential-scheduler/internal/persistence"
)

// DirectoryRepository implements persistence.DirectoryRepository on SQLite.
type DirectoryRepository struct {
	store *Store
}

// NewDirectoryRepository creates a SQLite-backed membership directory.
func NewDirectoryRepository(store *Store) *DirectoryRepository {
	return &DirectoryRepository{store: store}
}

// AddMember appends an employee to the end of a team's member list.
func (r *DirectoryRepository) AddMember(ctx context.Context, team, employee string) error {
	if team == "" || employee == "" {
		return persistence.ErrConstraintViolation
	}
	return r.store.withTransaction(ctx, func(tx *sql.Tx) error {
		var next int
		err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM team_members WHERE team_id = ?`, team).Scan(&next)
		if err != nil {
			return mapError(err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO team_members (team_id, position, employee_id) VALUES (?, ?, ?)`, team, next, employee)
		return mapError(err)
	})
}

// Members returns the ordered member list for a team. A team with no members
// yields an empty slice.
func (r *DirectoryRepository) Members(ctx context.Context, team string) ([]string, error) {
	rows, err := r.store.db.QueryContext(ctx, `SELECT employee_id FROM team_members WHERE team_id = ? ORDER BY position ASC`, team)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var employee string
		if err := rows.Scan(&employee); err != nil {
			return nil, mapError(err)
		}
		members = append(members, employee)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return members, nil
}
