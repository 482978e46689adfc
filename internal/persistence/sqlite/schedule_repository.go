package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/confidential-scheduler/internal/persistence"
)

// ScheduleRepository implements persistence.ScheduleRepository on SQLite.
type ScheduleRepository struct {
	store *Store
}

// NewScheduleRepository creates a SQLite-backed schedule store.
func NewScheduleRepository(store *Store) *ScheduleRepository {
	return &ScheduleRepository{store: store}
}

// GetTeamSchedule retrieves the team schedule row.
func (r *ScheduleRepository) GetTeamSchedule(ctx context.Context, team string) (persistence.TeamSchedule, error) {
	query := `SELECT team_id, office_days, collab_days, overlap_score, optimized, updated_at FROM team_schedules WHERE team_id = ?`

	var (
		schedule  persistence.TeamSchedule
		optimized int
		updatedAt string
	)
	err := r.store.db.QueryRowContext(ctx, query, team).Scan(
		&schedule.Team,
		&schedule.OfficeDays,
		&schedule.CollabDays,
		&schedule.OverlapScore,
		&optimized,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.TeamSchedule{}, persistence.ErrNotFound
		}
		return persistence.TeamSchedule{}, mapError(err)
	}
	schedule.Optimized = optimized != 0
	if schedule.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return persistence.TeamSchedule{}, err
	}
	return schedule, nil
}

// PutTeamSchedules overwrites the supplied team schedule rows in a single
// transaction.
func (r *ScheduleRepository) PutTeamSchedules(ctx context.Context, schedules ...persistence.TeamSchedule) error {
	if len(schedules) == 0 {
		return nil
	}
	for _, schedule := range schedules {
		if schedule.Team == "" {
			return persistence.ErrConstraintViolation
		}
	}
	query := `
		INSERT INTO team_schedules (team_id, office_days, collab_days, overlap_score, optimized, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(team_id) DO UPDATE SET
			office_days = excluded.office_days,
			collab_days = excluded.collab_days,
			overlap_score = excluded.overlap_score,
			optimized = excluded.optimized,
			updated_at = excluded.updated_at
	`
	return r.store.withTransaction(ctx, func(tx *sql.Tx) error {
		for _, schedule := range schedules {
			_, err := tx.ExecContext(ctx, query,
				schedule.Team,
				schedule.OfficeDays,
				schedule.CollabDays,
				schedule.OverlapScore,
				boolToInt(schedule.Optimized),
				schedule.UpdatedAt.UTC().Format(time.RFC3339Nano),
			)
			if err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// GetPersonalSchedule retrieves the personal schedule row.
func (r *ScheduleRepository) GetPersonalSchedule(ctx context.Context, employee string) (persistence.PersonalSchedule, error) {
	query := `SELECT employee_id, office_days, collab_days, assigned, updated_at FROM personal_schedules WHERE employee_id = ?`

	var (
		schedule  persistence.PersonalSchedule
		assigned  int
		updatedAt string
	)
	err := r.store.db.QueryRowContext(ctx, query, employee).Scan(
		&schedule.Employee,
		&schedule.OfficeDays,
		&schedule.CollabDays,
		&assigned,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.PersonalSchedule{}, persistence.ErrNotFound
		}
		return persistence.PersonalSchedule{}, mapError(err)
	}
	schedule.Assigned = assigned != 0
	if schedule.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return persistence.PersonalSchedule{}, err
	}
	return schedule, nil
}

// PutPersonalSchedule overwrites the personal schedule row.
func (r *ScheduleRepository) PutPersonalSchedule(ctx context.Context, schedule persistence.PersonalSchedule) error {
	if schedule.Employee == "" {
		return persistence.ErrConstraintViolation
	}
	query := `
		INSERT INTO personal_schedules (employee_id, office_days, collab_days, assigned, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			office_days = excluded.office_days,
			collab_days = excluded.collab_days,
			assigned = excluded.assigned,
			updated_at = excluded.updated_at
	`
	_, err := r.store.db.ExecContext(ctx, query,
		schedule.Employee,
		schedule.OfficeDays,
		schedule.CollabDays,
		boolToInt(schedule.Assigned),
		schedule.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return mapError(err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
