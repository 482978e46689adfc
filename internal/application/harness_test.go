package application

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/example/confidential-scheduler/internal/fhe"
	"github.com/example/confidential-scheduler/internal/persistence"
)

// storeStub backs the service tests with an in-memory implementation of the
// ledger, directory, schedule and reveal interfaces. Error fields allow
// individual operations to be forced to fail.
type storeStub struct {
	mu sync.Mutex

	nextID      uint64
	preferences map[string][]PreferenceRecord
	appendErr   error

	members map[string][]string

	teams        map[string]TeamSchedule
	personals    map[string]PersonalSchedule
	putTeamErr   error
	putPersonErr error

	revealed  map[string]RevealedSchedule
	requests  map[string]DecryptionRequest
	createErr error
	commitErr error
}

func newStoreStub() *storeStub {
	return &storeStub{
		preferences: make(map[string][]PreferenceRecord),
		members:     make(map[string][]string),
		teams:       make(map[string]TeamSchedule),
		personals:   make(map[string]PersonalSchedule),
		revealed:    make(map[string]RevealedSchedule),
		requests:    make(map[string]DecryptionRequest),
	}
}

func (s *storeStub) AppendPreference(_ context.Context, record PreferenceRecord) (PreferenceRecord, error) {
	if s.appendErr != nil {
		return PreferenceRecord{}, s.appendErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	record.ID = s.nextID
	s.preferences[record.Employee] = append(s.preferences[record.Employee], record)
	return record, nil
}

func (s *storeStub) LatestPreference(_ context.Context, employee string) (PreferenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.preferences[employee]
	if len(history) == 0 {
		return PreferenceRecord{}, persistence.ErrNotFound
	}
	return history[len(history)-1], nil
}

func (s *storeStub) PreferenceHistory(_ context.Context, employee string) ([]PreferenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.preferences[employee]
	out := make([]PreferenceRecord, len(history))
	copy(out, history)
	return out, nil
}

func (s *storeStub) AddMember(_ context.Context, team, employee string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[team] = append(s.members[team], employee)
	return nil
}

func (s *storeStub) Members(_ context.Context, team string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roster := s.members[team]
	out := make([]string, len(roster))
	copy(out, roster)
	return out, nil
}

func (s *storeStub) GetTeamSchedule(_ context.Context, team string) (TeamSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	schedule, ok := s.teams[team]
	if !ok {
		return TeamSchedule{}, persistence.ErrNotFound
	}
	return schedule, nil
}

func (s *storeStub) PutTeamSchedules(_ context.Context, schedules ...TeamSchedule) error {
	if s.putTeamErr != nil {
		return s.putTeamErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, schedule := range schedules {
		s.teams[schedule.Team] = schedule
	}
	return nil
}

func (s *storeStub) GetPersonalSchedule(_ context.Context, employee string) (PersonalSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	schedule, ok := s.personals[employee]
	if !ok {
		return PersonalSchedule{}, persistence.ErrNotFound
	}
	return schedule, nil
}

func (s *storeStub) PutPersonalSchedule(_ context.Context, schedule PersonalSchedule) error {
	if s.putPersonErr != nil {
		return s.putPersonErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.personals[schedule.Employee] = schedule
	return nil
}

func (s *storeStub) InitRevealedSchedule(_ context.Context, employee string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.revealed[employee]; !ok {
		s.revealed[employee] = RevealedSchedule{Employee: employee}
	}
	return nil
}

func (s *storeStub) GetRevealedSchedule(_ context.Context, employee string) (RevealedSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	schedule, ok := s.revealed[employee]
	if !ok {
		return RevealedSchedule{}, persistence.ErrNotFound
	}
	return schedule, nil
}

func (s *storeStub) CreateRequest(_ context.Context, request DecryptionRequest) error {
	if s.createErr != nil {
		return s.createErr
	}
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

func (s *storeStub) GetRequest(_ context.Context, id string) (DecryptionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[id]
	if !ok {
		return DecryptionRequest{}, persistence.ErrNotFound
	}
	return request, nil
}

func (s *storeStub) PendingRequest(_ context.Context, employee string) (DecryptionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, request := range s.requests {
		if request.Employee == employee {
			return request, nil
		}
	}
	return DecryptionRequest{}, persistence.ErrNotFound
}

func (s *storeStub) CommitReveal(_ context.Context, requestID, employee string, officeDays, collabDays uint32, revealedAt time.Time) error {
	if s.commitErr != nil {
		return s.commitErr
	}
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

func newTestCoprocessor(t *testing.T) *fhe.SoftwareCoprocessor {
	t.Helper()
	sealKey := bytes.Repeat([]byte{0x42}, 32)
	attestKey := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{0x24}, ed25519.SeedSize))
	coproc, err := fhe.NewSoftwareCoprocessor(sealKey, attestKey)
	if err != nil {
		t.Fatalf("failed to construct co-processor: %v", err)
	}
	return coproc
}

func newTestVerifier(t *testing.T, coproc *fhe.SoftwareCoprocessor) *fhe.Ed25519Verifier {
	t.Helper()
	verifier, err := fhe.NewEd25519Verifier(coproc.AttestationPublicKey())
	if err != nil {
		t.Fatalf("failed to construct verifier: %v", err)
	}
	return verifier
}

// decryptValue resolves a handle to its plaintext through the co-processor's
// decryption path.
func decryptValue(t *testing.T, coproc *fhe.SoftwareCoprocessor, handle fhe.Handle) uint32 {
	t.Helper()
	requestID, err := coproc.RequestDecryption(context.Background(), [][]byte{fhe.Marshal(handle)})
	if err != nil {
		t.Fatalf("RequestDecryption returned error: %v", err)
	}
	result, err := coproc.Deliver(requestID)
	if err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if len(result.Plaintext) != 4 {
		t.Fatalf("expected 4 byte plaintext, got %d bytes", len(result.Plaintext))
	}
	return binary.BigEndian.Uint32(result.Plaintext)
}

func encryptValue(t *testing.T, coproc *fhe.SoftwareCoprocessor, value uint32) fhe.Handle {
	t.Helper()
	handle, err := coproc.Encrypt(value)
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	return handle
}

func submitParams(t *testing.T, coproc *fhe.SoftwareCoprocessor, employee string, office, team, focus, flexibility uint32) SubmitPreferenceParams {
	t.Helper()
	return SubmitPreferenceParams{
		Principal:    Principal{UserID: employee},
		DaysInOffice: encryptValue(t, coproc, office),
		TeamDays:     encryptValue(t, coproc, team),
		FocusDays:    encryptValue(t, coproc, focus),
		Flexibility:  encryptValue(t, coproc, flexibility),
	}
}
