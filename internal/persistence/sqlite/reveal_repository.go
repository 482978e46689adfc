package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/confidential-scheduler/internal/persistence"
)

// RevealRepository implements persistence.RevealRepository on SQLite.
type RevealRepository struct {
	store *Store
}

// NewRevealRepository creates a SQLite-backed reveal store.
func NewRevealRepository(store *Store) *RevealRepository {
	return &RevealRepository{store: store}
}

// InitRevealedSchedule creates the zero-valued revealed row for an employee
// if it does not exist yet.
func (r *RevealRepository) InitRevealedSchedule(ctx context.Context, employee string) error {
	if employee == "" {
		return persistence.ErrConstraintViolation
	}
	query := `
		INSERT INTO revealed_schedules (employee_id, office_days, collab_days, revealed)
		VALUES (?, 0, 0, 0)
		ON CONFLICT(employee_id) DO NOTHING
	`
	_, err := r.store.db.ExecContext(ctx, query, employee)
	return mapError(err)
}

// GetRevealedSchedule retrieves the revealed schedule row.
func (r *RevealRepository) GetRevealedSchedule(ctx context.Context, employee string) (persistence.RevealedSchedule, error) {
	query := `SELECT employee_id, office_days, collab_days, revealed, revealed_at FROM revealed_schedules WHERE employee_id = ?`

	var (
		schedule   persistence.RevealedSchedule
		revealed   int
		revealedAt sql.NullString
	)
	err := r.store.db.QueryRowContext(ctx, query, employee).Scan(
		&schedule.Employee,
		&schedule.OfficeDays,
		&schedule.CollabDays,
		&revealed,
		&revealedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.RevealedSchedule{}, persistence.ErrNotFound
		}
		return persistence.RevealedSchedule{}, mapError(err)
	}
	schedule.Revealed = revealed != 0
	if revealedAt.Valid {
		parsed, err := time.Parse(time.RFC3339Nano, revealedAt.String)
		if err != nil {
			return persistence.RevealedSchedule{}, err
		}
		schedule.RevealedAt = &parsed
	}
	return schedule, nil
}

// CreateRequest records a pending decryption request. The unique index on
// employee_id rejects a second pending request for the same employee.
func (r *RevealRepository) CreateRequest(ctx context.Context, request persistence.DecryptionRequest) error {
	if request.ID == "" || request.Employee == "" {
		return persistence.ErrConstraintViolation
	}
	query := `INSERT INTO decryption_requests (id, employee_id, kind, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.store.db.ExecContext(ctx, query,
		request.ID,
		request.Employee,
		request.Kind,
		request.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return mapError(err)
}

// GetRequest retrieves a pending request by identifier.
func (r *RevealRepository) GetRequest(ctx context.Context, id string) (persistence.DecryptionRequest, error) {
	query := `SELECT id, employee_id, kind, created_at FROM decryption_requests WHERE id = ?`
	return r.scanRequest(r.store.db.QueryRowContext(ctx, query, id))
}

// PendingRequest retrieves the pending request for an employee, if any.
func (r *RevealRepository) PendingRequest(ctx context.Context, employee string) (persistence.DecryptionRequest, error) {
	query := `SELECT id, employee_id, kind, created_at FROM decryption_requests WHERE employee_id = ?`
	return r.scanRequest(r.store.db.QueryRowContext(ctx, query, employee))
}

func (r *RevealRepository) scanRequest(row *sql.Row) (persistence.DecryptionRequest, error) {
	var (
		request   persistence.DecryptionRequest
		createdAt string
	)
	err := row.Scan(&request.ID, &request.Employee, &request.Kind, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.DecryptionRequest{}, persistence.ErrNotFound
		}
		return persistence.DecryptionRequest{}, mapError(err)
	}
	if request.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return persistence.DecryptionRequest{}, err
	}
	return request, nil
}

// CommitReveal consumes the correlation entry and commits the plaintext in
// one transaction. The revealed flag is checked inside the transaction so a
// racing second resolution cannot commit twice.
func (r *RevealRepository) CommitReveal(ctx context.Context, requestID, employee string, officeDays, collabDays uint32, revealedAt time.Time) error {
	return r.store.withTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM decryption_requests WHERE id = ?`, requestID)
		if err != nil {
			return mapError(err)
		}
		deleted, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if deleted == 0 {
			return persistence.ErrNotFound
		}

		result, err = tx.ExecContext(ctx, `
			UPDATE revealed_schedules
			SET office_days = ?, collab_days = ?, revealed = 1, revealed_at = ?
			WHERE employee_id = ? AND revealed = 0
		`, officeDays, collabDays, revealedAt.UTC().Format(time.RFC3339Nano), employee)
		if err != nil {
			return mapError(err)
		}
		updated, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if updated == 0 {
			return persistence.ErrDuplicate
		}
		return nil
	})
}
