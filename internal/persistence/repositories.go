package persistence

import (
	"context"
	"time"
)

// PreferenceRepository stores the append-only preference ledger.
// AppendPreference assigns the next sequential identifier and returns the
// stored record; history is returned in append order and never shrinks.
type PreferenceRepository interface {
	AppendPreference(ctx context.Context, record PreferenceRecord) (PreferenceRecord, error)
	LatestPreference(ctx context.Context, employee string) (PreferenceRecord, error)
	PreferenceHistory(ctx context.Context, employee string) ([]PreferenceRecord, error)
}

// DirectoryRepository stores ordered team member lists.
type DirectoryRepository interface {
	AddMember(ctx context.Context, team, employee string) error
	Members(ctx context.Context, team string) ([]string, error)
}

// ScheduleRepository stores encrypted team and personal schedules. Writes
// fully overwrite the addressed row; PutTeamSchedules commits all supplied
// schedules atomically.
type ScheduleRepository interface {
	GetTeamSchedule(ctx context.Context, team string) (TeamSchedule, error)
	PutTeamSchedules(ctx context.Context, schedules ...TeamSchedule) error
	GetPersonalSchedule(ctx context.Context, employee string) (PersonalSchedule, error)
	PutPersonalSchedule(ctx context.Context, schedule PersonalSchedule) error
}

// RevealRepository stores revealed plaintext rows and the pending decryption
// request table. CommitReveal atomically writes the plaintext, flips the
// revealed flag and deletes the correlation entry: it fails with ErrNotFound
// when the request no longer exists and with ErrDuplicate when the target
// was already revealed, mutating nothing in either case.
type RevealRepository interface {
	InitRevealedSchedule(ctx context.Context, employee string) error
	GetRevealedSchedule(ctx context.Context, employee string) (RevealedSchedule, error)
	CreateRequest(ctx context.Context, request DecryptionRequest) error
	GetRequest(ctx context.Context, id string) (DecryptionRequest, error)
	PendingRequest(ctx context.Context, employee string) (DecryptionRequest, error)
	CommitReveal(ctx context.Context, requestID, employee string, officeDays, collabDays uint32, revealedAt time.Time) error
}
