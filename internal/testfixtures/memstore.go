package testfixtures

import (
	"context"
	"sync"
	"time"

	"github.com/example/confidential-scheduler/internal/application"
	"github.com/example/confidential-scheduler/internal/persistence"
)

// MemoryStore is an in-memory implementation of every storage interface the
// application services depend on. It mirrors the SQLite repositories' error
// contract, returning the persistence sentinels the services translate.
type MemoryStore struct {
	mu sync.Mutex

	nextRecordID uint64
	preferences  map[string][]application.PreferenceRecord
	members      map[string][]string
	teams        map[string]application.TeamSchedule
	personals    map[string]application.PersonalSchedule
	revealed     map[string]application.RevealedSchedule
	requests     map[string]application.DecryptionRequest
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		preferences: make(map[string][]application.PreferenceRecord),
		members:     make(map[string][]string),
		teams:       make(map[string]application.TeamSchedule),
		personals:   make(map[string]application.PersonalSchedule),
		revealed:    make(map[string]application.RevealedSchedule),
		requests:    make(map[string]application.DecryptionRequest),
	}
}

// AppendPreference assigns the next record identifier and appends the record.
func (s *MemoryStore) AppendPreference(_ context.Context, record application.PreferenceRecord) (application.PreferenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextRecordID++
	record.ID = s.nextRecordID
	s.preferences[record.Employee] = append(s.preferences[record.Employee], record)
	return record, nil
}

// LatestPreference returns the most recently appended record for the employee.
func (s *MemoryStore) LatestPreference(_ context.Context, employee string) (application.PreferenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.preferences[employee]
	if len(history) == 0 {
		return application.PreferenceRecord{}, persistence.ErrNotFound
	}
	return history[len(history)-1], nil
}

// PreferenceHistory returns every record for the employee in submission order.
func (s *MemoryStore) PreferenceHistory(_ context.Context, employee string) ([]application.PreferenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.preferences[employee]
	out := make([]application.PreferenceRecord, len(history))
	copy(out, history)
	return out, nil
}

// AddMember appends the employee to the team roster.
func (s *MemoryStore) AddMember(_ context.Context, team, employee string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.members[team] = append(s.members[team], employee)
	return nil
}

// Members returns the team roster in insertion order.
func (s *MemoryStore) Members(_ context.Context, team string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roster := s.members[team]
	out := make([]string, len(roster))
	copy(out, roster)
	return out, nil
}

// GetTeamSchedule returns the stored schedule for the team.
func (s *MemoryStore) GetTeamSchedule(_ context.Context, team string) (application.TeamSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule, ok := s.teams[team]
	if !ok {
		return application.TeamSchedule{}, persistence.ErrNotFound
	}
	return schedule, nil
}

// PutTeamSchedules stores every supplied schedule in one step.
func (s *MemoryStore) PutTeamSchedules(_ context.Context, schedules ...application.TeamSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, schedule := range schedules {
		s.teams[schedule.Team] = schedule
	}
	return nil
}

// GetPersonalSchedule returns the stored schedule for the employee.
func (s *MemoryStore) GetPersonalSchedule(_ context.Context, employee string) (application.PersonalSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule, ok := s.personals[employee]
	if !ok {
		return application.PersonalSchedule{}, persistence.ErrNotFound
	}
	return schedule, nil
}

// PutPersonalSchedule stores the schedule for its employee.
func (s *MemoryStore) PutPersonalSchedule(_ context.Context, schedule application.PersonalSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.personals[schedule.Employee] = schedule
	return nil
}

// InitRevealedSchedule creates an unrevealed row unless one already exists.
func (s *MemoryStore) InitRevealedSchedule(_ context.Context, employee string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.revealed[employee]; ok {
		return nil
	}
	s.revealed[employee] = application.RevealedSchedule{Employee: employee}
	return nil
}

// GetRevealedSchedule returns the revealed row for the employee.
func (s *MemoryStore) GetRevealedSchedule(_ context.Context, employee string) (application.RevealedSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule, ok := s.revealed[employee]
	if !ok {
		return application.RevealedSchedule{}, persistence.ErrNotFound
	}
	return schedule, nil
}

// CreateRequest records a pending decryption request. A second pending
// request for the same employee, or a reused identifier, is a duplicate.
func (s *MemoryStore) CreateRequest(_ context.Context, request application.DecryptionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[request.ID]; ok {
		return persistence.ErrDuplicate
	}
	for _, pending := range s.requests {
		if pending.Employee == request.Employee {
			return persistence.ErrDuplicate
		}
	}
	s.requests[request.ID] = request
	return nil
}

// GetRequest returns the pending request with the given identifier.
func (s *MemoryStore) GetRequest(_ context.Context, id string) (application.DecryptionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[id]
	if !ok {
		return application.DecryptionRequest{}, persistence.ErrNotFound
	}
	return request, nil
}

// PendingRequest returns the pending request for the employee, if any.
func (s *MemoryStore) PendingRequest(_ context.Context, employee string) (application.DecryptionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, request := range s.requests {
		if request.Employee == employee {
			return request, nil
		}
	}
	return application.DecryptionRequest{}, persistence.ErrNotFound
}

// CommitReveal atomically consumes the request and marks the employee's
// schedule revealed. A missing request reports ErrNotFound; an already
// revealed schedule reports ErrDuplicate.
func (s *MemoryStore) CommitReveal(_ context.Context, requestID, employee string, officeDays, collabDays uint32, revealedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[requestID]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.requests, requestID)

	schedule, ok := s.revealed[employee]
	if !ok || schedule.Revealed {
		return persistence.ErrDuplicate
	}

	schedule.OfficeDays = officeDays
	schedule.CollabDays = collabDays
	schedule.Revealed = true
	schedule.RevealedAt = &revealedAt
	s.revealed[employee] = schedule
	return nil
}
