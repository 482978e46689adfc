package application

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/confidential-scheduler/internal/fhe"
	"github.com/example/confidential-scheduler/internal/persistence"
)

// revealedPayloadSize is two big-endian uint32 values: office days and
// collaboration days.
const revealedPayloadSize = 8

// RevealService coordinates the asynchronous decryption protocol. A reveal
// request packages the personal schedule's ciphertexts for the external
// co-processor; the result arrives later through ResolveReveal, which
// verifies the attestation, commits the plaintext exactly once and consumes
// the correlation entry.
type RevealService struct {
	schedules ScheduleStore
	reveals   RevealStore
	decryptor fhe.Decryptor
	verifier  fhe.ProofVerifier
	events    EventPublisher
	now       func() time.Time
	logger    *slog.Logger
}

// NewRevealService wires dependencies for the reveal protocol.
func NewRevealService(schedules ScheduleStore, reveals RevealStore, decryptor fhe.Decryptor, verifier fhe.ProofVerifier, events EventPublisher, now func() time.Time, logger *slog.Logger) *RevealService {
	if now == nil {
		now = time.Now
	}
	return &RevealService{
		schedules: schedules,
		reveals:   reveals,
		decryptor: decryptor,
		verifier:  verifier,
		events:    events,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *RevealService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RevealService", operation, attrs...)
}

// RequestReveal issues a decryption request for the caller's personal
// schedule. Only the owning employee may request their own reveal; a request
// is rejected while an earlier one is still pending, and a revealed schedule
// never starts a new cycle.
func (s *RevealService) RequestReveal(ctx context.Context, principal Principal, employee string) (requestID string, err error) {
	if s == nil {
		err = fmt.Errorf("RevealService is nil")
		return
	}
	if s.schedules == nil || s.reveals == nil || s.decryptor == nil {
		err = fmt.Errorf("reveal dependencies not configured")
		return
	}

	logger := s.loggerWith(ctx, "RequestReveal", "employee_id", employee)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "reveal request failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("request_id", requestID).InfoContext(ctx, "reveal requested")
	}()

	// Plaintext is disclosed to the owning employee only; administrators
	// cannot reveal on someone's behalf.
	if principal.UserID == "" || principal.UserID != employee {
		err = ErrUnauthorized
		return
	}

	schedule, getErr := s.schedules.GetPersonalSchedule(ctx, employee)
	if getErr != nil {
		if isNotFound(getErr) {
			err = ErrNotAssigned
			return
		}
		err = getErr
		return
	}
	if !schedule.Assigned {
		err = ErrNotAssigned
		return
	}

	revealed, getErr := s.reveals.GetRevealedSchedule(ctx, employee)
	if getErr != nil && !isNotFound(getErr) {
		err = getErr
		return
	}
	if revealed.Revealed {
		err = ErrAlreadyRevealed
		return
	}

	if _, pendingErr := s.reveals.PendingRequest(ctx, employee); pendingErr == nil {
		err = ErrRevealPending
		return
	} else if !isNotFound(pendingErr) {
		err = pendingErr
		return
	}

	ciphertexts := [][]byte{
		fhe.Marshal(schedule.OfficeDays),
		fhe.Marshal(schedule.CollabDays),
	}
	requestID, err = s.decryptor.RequestDecryption(ctx, ciphertexts)
	if err != nil {
		return
	}

	err = s.reveals.CreateRequest(ctx, DecryptionRequest{
		ID:        requestID,
		Employee:  employee,
		Kind:      RequestKindPersonalSchedule,
		CreatedAt: s.now(),
	})
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			err = ErrRevealPending
		}
		requestID = ""
		return
	}
	return
}

// ResolveReveal processes an asynchronous decryption delivery. The proof is
// verified before any plaintext is decoded, the revealed flag is re-checked
// at commit time, and the correlation entry is deleted in the same commit so
// a request identifier can never resolve twice. Protocol failures mutate
// nothing.
func (s *RevealService) ResolveReveal(ctx context.Context, requestID string, plaintext, proof []byte) (err error) {
	if s == nil {
		return fmt.Errorf("RevealService is nil")
	}
	if s.reveals == nil || s.verifier == nil {
		return fmt.Errorf("reveal dependencies not configured")
	}

	logger := s.loggerWith(ctx, "ResolveReveal", "request_id", requestID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "reveal resolution failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "schedule revealed")
	}()

	request, getErr := s.reveals.GetRequest(ctx, requestID)
	if getErr != nil {
		if isNotFound(getErr) {
			return ErrUnknownRequest
		}
		return getErr
	}

	// Authenticity gates everything else: the payload is untrusted until the
	// proof over (requestID, plaintext) checks out.
	if verr := s.verifier.Verify(requestID, plaintext, proof); verr != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, verr)
	}

	if len(plaintext) != revealedPayloadSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedPayload, len(plaintext), revealedPayloadSize)
	}
	officeDays := binary.BigEndian.Uint32(plaintext[0:4])
	collabDays := binary.BigEndian.Uint32(plaintext[4:8])

	// Re-check at commit time to close the double-resolution window.
	revealed, getErr := s.reveals.GetRevealedSchedule(ctx, request.Employee)
	if getErr != nil && !isNotFound(getErr) {
		return getErr
	}
	if revealed.Revealed {
		return ErrAlreadyRevealed
	}

	if err = s.reveals.CommitReveal(ctx, requestID, request.Employee, officeDays, collabDays, s.now()); err != nil {
		switch {
		case errors.Is(err, persistence.ErrNotFound):
			return ErrUnknownRequest
		case errors.Is(err, persistence.ErrDuplicate):
			return ErrAlreadyRevealed
		}
		return err
	}

	publish(ctx, s.events, Event{Kind: EventRevealed, Employee: request.Employee, At: s.now()})
	return nil
}

// RevealStatus reports the coordinator state for an employee without
// exposing plaintext.
func (s *RevealService) RevealStatus(ctx context.Context, principal Principal, employee string) (RevealState, error) {
	if s == nil {
		return "", fmt.Errorf("RevealService is nil")
	}
	if s.schedules == nil || s.reveals == nil {
		return "", fmt.Errorf("reveal dependencies not configured")
	}
	if err := requireSelfOrAdmin(principal, employee); err != nil {
		return "", err
	}

	revealed, err := s.reveals.GetRevealedSchedule(ctx, employee)
	if err != nil && !isNotFound(err) {
		return "", err
	}
	if revealed.Revealed {
		return RevealStateRevealed, nil
	}

	if _, err := s.reveals.PendingRequest(ctx, employee); err == nil {
		return RevealStatePending, nil
	} else if !isNotFound(err) {
		return "", err
	}

	schedule, err := s.schedules.GetPersonalSchedule(ctx, employee)
	if err != nil {
		if isNotFound(err) {
			return RevealStateUnassigned, nil
		}
		return "", err
	}
	if schedule.Assigned {
		return RevealStateAssigned, nil
	}
	return RevealStateUnassigned, nil
}

// RevealedSchedule returns the committed plaintext schedule. Only the owning
// employee may read it, and only after a successful reveal.
func (s *RevealService) RevealedSchedule(ctx context.Context, principal Principal, employee string) (RevealedSchedule, error) {
	if s == nil {
		return RevealedSchedule{}, fmt.Errorf("RevealService is nil")
	}
	if s.reveals == nil {
		return RevealedSchedule{}, fmt.Errorf("reveal dependencies not configured")
	}
	if principal.UserID == "" || principal.UserID != employee {
		return RevealedSchedule{}, ErrUnauthorized
	}

	revealed, err := s.reveals.GetRevealedSchedule(ctx, employee)
	if err != nil {
		if isNotFound(err) {
			return RevealedSchedule{}, ErrNotFound
		}
		return RevealedSchedule{}, err
	}
	if !revealed.Revealed {
		return RevealedSchedule{}, ErrNotFound
	}
	return revealed, nil
}
