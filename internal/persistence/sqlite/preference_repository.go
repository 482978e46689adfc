package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/confidential-scheduler/internal/persistence"
)

// PreferenceRepository implements persistence.PreferenceRepository on SQLite.
type PreferenceRepository struct {
	store *Store
}

// NewPreferenceRepository creates a SQLite-backed preference ledger.
func NewPreferenceRepository(store *Store) *PreferenceRepository {
	return &PreferenceRepository{store: store}
}

// AppendPreference inserts a new ledger record and returns it with the
// assigned sequential identifier.
func (r *PreferenceRepository) AppendPreference(ctx context.Context, record persistence.PreferenceRecord) (persistence.PreferenceRecord, error) {
	if record.Employee == "" {
		return persistence.PreferenceRecord{}, persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO preference_records (employee_id, days_in_office, team_days, focus_days, flexibility, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.store.db.ExecContext(ctx, query,
		record.Employee,
		record.DaysInOffice,
		record.TeamDays,
		record.FocusDays,
		record.Flexibility,
		record.SubmittedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return persistence.PreferenceRecord{}, mapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return persistence.PreferenceRecord{}, err
	}
	record.ID = uint64(id)
	return record, nil
}

// LatestPreference returns the most recently appended record for an employee.
func (r *PreferenceRepository) LatestPreference(ctx context.Context, employee string) (persistence.PreferenceRecord, error) {
	query := `
		SELECT id, employee_id, days_in_office, team_days, focus_days, flexibility, submitted_at
		FROM preference_records
		WHERE employee_id = ?
		ORDER BY id DESC
		LIMIT 1
	`
	return r.scanRecord(r.store.db.QueryRowContext(ctx, query, employee))
}

// PreferenceHistory returns every record for an employee in append order.
func (r *PreferenceRepository) PreferenceHistory(ctx context.Context, employee string) ([]persistence.PreferenceRecord, error) {
	query := `
		SELECT id, employee_id, days_in_office, team_days, focus_days, flexibility, submitted_at
		FROM preference_records
		WHERE employee_id = ?
		ORDER BY id ASC
	`
	rows, err := r.store.db.QueryContext(ctx, query, employee)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var records []persistence.PreferenceRecord
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PreferenceRepository) scanRecord(row rowScanner) (persistence.PreferenceRecord, error) {
	var (
		record      persistence.PreferenceRecord
		submittedAt string
	)
	err := row.Scan(
		&record.ID,
		&record.Employee,
		&record.DaysInOffice,
		&record.TeamDays,
		&record.FocusDays,
		&record.Flexibility,
		&submittedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.PreferenceRecord{}, persistence.ErrNotFound
		}
		return persistence.PreferenceRecord{}, mapError(err)
	}

	record.SubmittedAt, err = time.Parse(time.RFC3339Nano, submittedAt)
	if err != nil {
		return persistence.PreferenceRecord{}, err
	}
	return record, nil
}
