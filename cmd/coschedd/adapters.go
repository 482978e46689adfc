package main

import (
	"context"
	"time"

	"github.com/example/confidential-scheduler/internal/application"
	"github.com/example/confidential-scheduler/internal/fhe"
	"github.com/example/confidential-scheduler/internal/persistence"
)

// The adapters below bridge the application interfaces to the persistence
// repositories. Ciphertext handles are serialized at this boundary; storage
// only ever sees sealed blobs.

type preferenceLedgerAdapter struct {
	repo persistence.PreferenceRepository
}

func newPreferenceLedgerAdapter(repo persistence.PreferenceRepository) *preferenceLedgerAdapter {
	return &preferenceLedgerAdapter{repo: repo}
}

func (a *preferenceLedgerAdapter) AppendPreference(ctx context.Context, record application.PreferenceRecord) (application.PreferenceRecord, error) {
	stored, err := a.repo.AppendPreference(ctx, toPersistencePreference(record))
	if err != nil {
		return application.PreferenceRecord{}, err
	}
	return toApplicationPreference(stored), nil
}

func (a *preferenceLedgerAdapter) LatestPreference(ctx context.Context, employee string) (application.PreferenceRecord, error) {
	stored, err := a.repo.LatestPreference(ctx, employee)
	if err != nil {
		return application.PreferenceRecord{}, err
	}
	return toApplicationPreference(stored), nil
}

func (a *preferenceLedgerAdapter) PreferenceHistory(ctx context.Context, employee string) ([]application.PreferenceRecord, error) {
	stored, err := a.repo.PreferenceHistory(ctx, employee)
	if err != nil {
		return nil, err
	}
	records := make([]application.PreferenceRecord, 0, len(stored))
	for _, record := range stored {
		records = append(records, toApplicationPreference(record))
	}
	return records, nil
}

func toPersistencePreference(record application.PreferenceRecord) persistence.PreferenceRecord {
	return persistence.PreferenceRecord{
		ID:           record.ID,
		Employee:     record.Employee,
		DaysInOffice: fhe.Marshal(record.DaysInOffice),
		TeamDays:     fhe.Marshal(record.TeamDays),
		FocusDays:    fhe.Marshal(record.FocusDays),
		Flexibility:  fhe.Marshal(record.Flexibility),
		SubmittedAt:  record.SubmittedAt,
	}
}

func toApplicationPreference(record persistence.PreferenceRecord) application.PreferenceRecord {
	return application.PreferenceRecord{
		ID:           record.ID,
		Employee:     record.Employee,
		DaysInOffice: fhe.Unmarshal(record.DaysInOffice),
		TeamDays:     fhe.Unmarshal(record.TeamDays),
		FocusDays:    fhe.Unmarshal(record.FocusDays),
		Flexibility:  fhe.Unmarshal(record.Flexibility),
		SubmittedAt:  record.SubmittedAt,
	}
}

type scheduleStoreAdapter struct {
	repo persistence.ScheduleRepository
}

func newScheduleStoreAdapter(repo persistence.ScheduleRepository) *scheduleStoreAdapter {
	return &scheduleStoreAdapter{repo: repo}
}

func (a *scheduleStoreAdapter) GetTeamSchedule(ctx context.Context, team string) (application.TeamSchedule, error) {
	stored, err := a.repo.GetTeamSchedule(ctx, team)
	if err != nil {
		return application.TeamSchedule{}, err
	}
	return application.TeamSchedule{
		Team:         stored.Team,
		OfficeDays:   fhe.Unmarshal(stored.OfficeDays),
		CollabDays:   fhe.Unmarshal(stored.CollabDays),
		OverlapScore: fhe.Unmarshal(stored.OverlapScore),
		Optimized:    stored.Optimized,
		UpdatedAt:    stored.UpdatedAt,
	}, nil
}

func (a *scheduleStoreAdapter) PutTeamSchedules(ctx context.Context, schedules ...application.TeamSchedule) error {
	stored := make([]persistence.TeamSchedule, 0, len(schedules))
	for _, schedule := range schedules {
		stored = append(stored, persistence.TeamSchedule{
			Team:         schedule.Team,
			OfficeDays:   fhe.Marshal(schedule.OfficeDays),
			CollabDays:   fhe.Marshal(schedule.CollabDays),
			OverlapScore: fhe.Marshal(schedule.OverlapScore),
			Optimized:    schedule.Optimized,
			UpdatedAt:    schedule.UpdatedAt,
		})
	}
	return a.repo.PutTeamSchedules(ctx, stored...)
}

func (a *scheduleStoreAdapter) GetPersonalSchedule(ctx context.Context, employee string) (application.PersonalSchedule, error) {
	stored, err := a.repo.GetPersonalSchedule(ctx, employee)
	if err != nil {
		return application.PersonalSchedule{}, err
	}
	return application.PersonalSchedule{
		Employee:   stored.Employee,
		OfficeDays: fhe.Unmarshal(stored.OfficeDays),
		CollabDays: fhe.Unmarshal(stored.CollabDays),
		Assigned:   stored.Assigned,
		UpdatedAt:  stored.UpdatedAt,
	}, nil
}

func (a *scheduleStoreAdapter) PutPersonalSchedule(ctx context.Context, schedule application.PersonalSchedule) error {
	return a.repo.PutPersonalSchedule(ctx, persistence.PersonalSchedule{
		Employee:   schedule.Employee,
		OfficeDays: fhe.Marshal(schedule.OfficeDays),
		CollabDays: fhe.Marshal(schedule.CollabDays),
		Assigned:   schedule.Assigned,
		UpdatedAt:  schedule.UpdatedAt,
	})
}

type revealStoreAdapter struct {
	repo persistence.RevealRepository
}

func newRevealStoreAdapter(repo persistence.RevealRepository) *revealStoreAdapter {
	return &revealStoreAdapter{repo: repo}
}

func (a *revealStoreAdapter) InitRevealedSchedule(ctx context.Context, employee string) error {
	return a.repo.InitRevealedSchedule(ctx, employee)
}

func (a *revealStoreAdapter) GetRevealedSchedule(ctx context.Context, employee string) (application.RevealedSchedule, error) {
	stored, err := a.repo.GetRevealedSchedule(ctx, employee)
	if err != nil {
		return application.RevealedSchedule{}, err
	}
	return application.RevealedSchedule{
		Employee:   stored.Employee,
		OfficeDays: stored.OfficeDays,
		CollabDays: stored.CollabDays,
		Revealed:   stored.Revealed,
		RevealedAt: stored.RevealedAt,
	}, nil
}

func (a *revealStoreAdapter) CreateRequest(ctx context.Context, request application.DecryptionRequest) error {
	return a.repo.CreateRequest(ctx, persistence.DecryptionRequest{
		ID:        request.ID,
		Employee:  request.Employee,
		Kind:      string(request.Kind),
		CreatedAt: request.CreatedAt,
	})
}

func (a *revealStoreAdapter) GetRequest(ctx context.Context, id string) (application.DecryptionRequest, error) {
	stored, err := a.repo.GetRequest(ctx, id)
	if err != nil {
		return application.DecryptionRequest{}, err
	}
	return toApplicationRequest(stored), nil
}

func (a *revealStoreAdapter) PendingRequest(ctx context.Context, employee string) (application.DecryptionRequest, error) {
	stored, err := a.repo.PendingRequest(ctx, employee)
	if err != nil {
		return application.DecryptionRequest{}, err
	}
	return toApplicationRequest(stored), nil
}

func (a *revealStoreAdapter) CommitReveal(ctx context.Context, requestID, employee string, officeDays, collabDays uint32, revealedAt time.Time) error {
	return a.repo.CommitReveal(ctx, requestID, employee, officeDays, collabDays, revealedAt)
}

func toApplicationRequest(stored persistence.DecryptionRequest) application.DecryptionRequest {
	return application.DecryptionRequest{
		ID:        stored.ID,
		Employee:  stored.Employee,
		Kind:      application.RequestKind(stored.Kind),
		CreatedAt: stored.CreatedAt,
	}
}
