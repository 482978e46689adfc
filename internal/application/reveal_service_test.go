package application

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/example/confidential-scheduler/internal/fhe"
)

type revealHarness struct {
	svc    *RevealService
	store  *storeStub
	coproc *fhe.SoftwareCoprocessor
	now    time.Time
}

func newRevealHarness(t *testing.T) *revealHarness {
	t.Helper()

	now := time.Date(2026, time.February, 3, 9, 30, 0, 0, time.UTC)
	coproc := newTestCoprocessor(t)
	store := newStoreStub()
	verifier := newTestVerifier(t, coproc)
	svc := NewRevealService(store, store, coproc, verifier, nil, func() time.Time { return now }, nil)
	return &revealHarness{svc: svc, store: store, coproc: coproc, now: now}
}

// assign seeds an assigned personal schedule plus the unrevealed row created
// at first submission.
func (h *revealHarness) assign(t *testing.T, employee string, office, collab uint32) {
	t.Helper()
	h.store.personals[employee] = PersonalSchedule{
		Employee:   employee,
		OfficeDays: encryptValue(t, h.coproc, office),
		CollabDays: encryptValue(t, h.coproc, collab),
		Assigned:   true,
	}
	if err := h.store.InitRevealedSchedule(context.Background(), employee); err != nil {
		t.Fatalf("InitRevealedSchedule returned error: %v", err)
	}
}

func TestRevealService_RequestReveal(t *testing.T) {
	t.Parallel()

	t.Run("only the owning employee may request", func(t *testing.T) {
		h := newRevealHarness(t)
		h.assign(t, "alice", 3, 7)

		if _, err := h.svc.RequestReveal(context.Background(), Principal{UserID: "mallory"}, "alice"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized for another employee, got %v", err)
		}
		if _, err := h.svc.RequestReveal(context.Background(), Principal{UserID: "root", IsAdmin: true}, "alice"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized for administrator, got %v", err)
		}
	})

	t.Run("requires an assigned schedule", func(t *testing.T) {
		h := newRevealHarness(t)
		if _, err := h.svc.RequestReveal(context.Background(), Principal{UserID: "alice"}, "alice"); !errors.Is(err, ErrNotAssigned) {
			t.Fatalf("expected ErrNotAssigned, got %v", err)
		}
	})

	t.Run("rejects a second request while one is pending", func(t *testing.T) {
		h := newRevealHarness(t)
		h.assign(t, "alice", 3, 7)
		self := Principal{UserID: "alice"}

		if _, err := h.svc.RequestReveal(context.Background(), self, "alice"); err != nil {
			t.Fatalf("first request failed: %v", err)
		}
		if _, err := h.svc.RequestReveal(context.Background(), self, "alice"); !errors.Is(err, ErrRevealPending) {
			t.Fatalf("expected ErrRevealPending, got %v", err)
		}
	})

	t.Run("records the correlation entry", func(t *testing.T) {
		h := newRevealHarness(t)
		h.assign(t, "alice", 3, 7)

		requestID, err := h.svc.RequestReveal(context.Background(), Principal{UserID: "alice"}, "alice")
		if err != nil {
			t.Fatalf("RequestReveal returned error: %v", err)
		}
		request, err := h.store.GetRequest(context.Background(), requestID)
		if err != nil {
			t.Fatalf("expected correlation entry, got %v", err)
		}
		if request.Employee != "alice" || request.Kind != RequestKindPersonalSchedule {
			t.Fatalf("unexpected correlation entry: %+v", request)
		}
	})

	t.Run("leaves no pending request when the correlation write fails", func(t *testing.T) {
		h := newRevealHarness(t)
		h.assign(t, "alice", 3, 7)

		storeErr := errors.New("write rejected")
		h.store.createErr = storeErr

		if _, err := h.svc.RequestReveal(context.Background(), Principal{UserID: "alice"}, "alice"); !errors.Is(err, storeErr) {
			t.Fatalf("expected the store failure, got %v", err)
		}
		state, err := h.svc.RevealStatus(context.Background(), Principal{UserID: "alice"}, "alice")
		if err != nil {
			t.Fatalf("RevealStatus returned error: %v", err)
		}
		if state != RevealStateAssigned {
			t.Fatalf("expected state %q after the failed request, got %q", RevealStateAssigned, state)
		}
	})
}

func TestRevealService_ResolveReveal(t *testing.T) {
	t.Parallel()

	t.Run("commits the delivered plaintext exactly once", func(t *testing.T) {
		h := newRevealHarness(t)
		h.assign(t, "alice", 3, 7)
		self := Principal{UserID: "alice"}

		requestID, err := h.svc.RequestReveal(context.Background(), self, "alice")
		if err != nil {
			t.Fatalf("RequestReveal returned error: %v", err)
		}
		result, err := h.coproc.Deliver(requestID)
		if err != nil {
			t.Fatalf("Deliver returned error: %v", err)
		}

		if err := h.svc.ResolveReveal(context.Background(), result.RequestID, result.Plaintext, result.Proof); err != nil {
			t.Fatalf("ResolveReveal returned error: %v", err)
		}

		revealed, err := h.svc.RevealedSchedule(context.Background(), self, "alice")
		if err != nil {
			t.Fatalf("RevealedSchedule returned error: %v", err)
		}
		if revealed.OfficeDays != 3 || revealed.CollabDays != 7 {
			t.Fatalf("unexpected plaintext: %+v", revealed)
		}
		if revealed.RevealedAt == nil || !revealed.RevealedAt.Equal(h.now) {
			t.Fatalf("expected reveal timestamp %v, got %v", h.now, revealed.RevealedAt)
		}

		// The correlation entry is consumed with the commit.
		if err := h.svc.ResolveReveal(context.Background(), result.RequestID, result.Plaintext, result.Proof); !errors.Is(err, ErrUnknownRequest) {
			t.Fatalf("expected ErrUnknownRequest on replay, got %v", err)
		}
	})

	t.Run("rejects deliveries for unknown requests", func(t *testing.T) {
		h := newRevealHarness(t)
		err := h.svc.ResolveReveal(context.Background(), "no-such-request", []byte{0, 0, 0, 1, 0, 0, 0, 2}, []byte("proof"))
		if !errors.Is(err, ErrUnknownRequest) {
			t.Fatalf("expected ErrUnknownRequest, got %v", err)
		}
	})

	t.Run("verifies the proof before decoding and mutates nothing on failure", func(t *testing.T) {
		h := newRevealHarness(t)
		h.assign(t, "alice", 3, 7)
		self := Principal{UserID: "alice"}

		requestID, err := h.svc.RequestReveal(context.Background(), self, "alice")
		if err != nil {
			t.Fatalf("RequestReveal returned error: %v", err)
		}
		result, err := h.coproc.Deliver(requestID)
		if err != nil {
			t.Fatalf("Deliver returned error: %v", err)
		}

		tampered := make([]byte, len(result.Plaintext))
		copy(tampered, result.Plaintext)
		binary.BigEndian.PutUint32(tampered[:4], 9999)

		if err := h.svc.ResolveReveal(context.Background(), result.RequestID, tampered, result.Proof); !errors.Is(err, ErrInvalidProof) {
			t.Fatalf("expected ErrInvalidProof, got %v", err)
		}

		// The request stays pending and the schedule stays unrevealed.
		if _, err := h.store.GetRequest(context.Background(), requestID); err != nil {
			t.Fatalf("expected correlation entry to survive, got %v", err)
		}
		state, err := h.svc.RevealStatus(context.Background(), self, "alice")
		if err != nil {
			t.Fatalf("RevealStatus returned error: %v", err)
		}
		if state != RevealStatePending {
			t.Fatalf("expected pending state after failed delivery, got %s", state)
		}

		// The untampered delivery still resolves.
		if err := h.svc.ResolveReveal(context.Background(), result.RequestID, result.Plaintext, result.Proof); err != nil {
			t.Fatalf("expected valid delivery to resolve, got %v", err)
		}
	})

	t.Run("a revealed schedule never starts a new cycle", func(t *testing.T) {
		h := newRevealHarness(t)
		h.assign(t, "alice", 3, 7)
		self := Principal{UserID: "alice"}

		requestID, err := h.svc.RequestReveal(context.Background(), self, "alice")
		if err != nil {
			t.Fatalf("RequestReveal returned error: %v", err)
		}
		result, err := h.coproc.Deliver(requestID)
		if err != nil {
			t.Fatalf("Deliver returned error: %v", err)
		}
		if err := h.svc.ResolveReveal(context.Background(), result.RequestID, result.Plaintext, result.Proof); err != nil {
			t.Fatalf("ResolveReveal returned error: %v", err)
		}

		if _, err := h.svc.RequestReveal(context.Background(), self, "alice"); !errors.Is(err, ErrAlreadyRevealed) {
			t.Fatalf("expected ErrAlreadyRevealed, got %v", err)
		}
	})

	t.Run("stays pending when the commit fails", func(t *testing.T) {
		h := newRevealHarness(t)
		h.assign(t, "alice", 3, 7)
		self := Principal{UserID: "alice"}

		requestID, err := h.svc.RequestReveal(context.Background(), self, "alice")
		if err != nil {
			t.Fatalf("RequestReveal returned error: %v", err)
		}
		result, err := h.coproc.Deliver(requestID)
		if err != nil {
			t.Fatalf("Deliver returned error: %v", err)
		}

		storeErr := errors.New("commit rejected")
		h.store.commitErr = storeErr

		if err := h.svc.ResolveReveal(context.Background(), result.RequestID, result.Plaintext, result.Proof); !errors.Is(err, storeErr) {
			t.Fatalf("expected the commit failure, got %v", err)
		}
		state, err := h.svc.RevealStatus(context.Background(), self, "alice")
		if err != nil {
			t.Fatalf("RevealStatus returned error: %v", err)
		}
		if state != RevealStatePending {
			t.Fatalf("expected pending state after the failed commit, got %s", state)
		}

		h.store.commitErr = nil
		if err := h.svc.ResolveReveal(context.Background(), result.RequestID, result.Plaintext, result.Proof); err != nil {
			t.Fatalf("redelivery after recovery failed: %v", err)
		}
	})
}

func TestRevealService_Status(t *testing.T) {
	t.Parallel()

	h := newRevealHarness(t)
	self := Principal{UserID: "alice"}

	state, err := h.svc.RevealStatus(context.Background(), self, "alice")
	if err != nil {
		t.Fatalf("RevealStatus returned error: %v", err)
	}
	if state != RevealStateUnassigned {
		t.Fatalf("expected unassigned state, got %s", state)
	}

	h.assign(t, "alice", 3, 7)
	if state, _ = h.svc.RevealStatus(context.Background(), self, "alice"); state != RevealStateAssigned {
		t.Fatalf("expected assigned state, got %s", state)
	}

	requestID, err := h.svc.RequestReveal(context.Background(), self, "alice")
	if err != nil {
		t.Fatalf("RequestReveal returned error: %v", err)
	}
	if state, _ = h.svc.RevealStatus(context.Background(), self, "alice"); state != RevealStatePending {
		t.Fatalf("expected pending state, got %s", state)
	}

	result, err := h.coproc.Deliver(requestID)
	if err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if err := h.svc.ResolveReveal(context.Background(), result.RequestID, result.Plaintext, result.Proof); err != nil {
		t.Fatalf("ResolveReveal returned error: %v", err)
	}
	if state, _ = h.svc.RevealStatus(context.Background(), self, "alice"); state != RevealStateRevealed {
		t.Fatalf("expected revealed state, got %s", state)
	}
}

func TestRevealService_RevealedSchedule(t *testing.T) {
	t.Parallel()

	t.Run("unrevealed schedules read as absent", func(t *testing.T) {
		h := newRevealHarness(t)
		h.assign(t, "alice", 3, 7)

		if _, err := h.svc.RevealedSchedule(context.Background(), Principal{UserID: "alice"}, "alice"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("plaintext is visible to the owner only", func(t *testing.T) {
		h := newRevealHarness(t)
		h.assign(t, "alice", 3, 7)
		self := Principal{UserID: "alice"}

		requestID, err := h.svc.RequestReveal(context.Background(), self, "alice")
		if err != nil {
			t.Fatalf("RequestReveal returned error: %v", err)
		}
		result, err := h.coproc.Deliver(requestID)
		if err != nil {
			t.Fatalf("Deliver returned error: %v", err)
		}
		if err := h.svc.ResolveReveal(context.Background(), result.RequestID, result.Plaintext, result.Proof); err != nil {
			t.Fatalf("ResolveReveal returned error: %v", err)
		}

		if _, err := h.svc.RevealedSchedule(context.Background(), Principal{UserID: "root", IsAdmin: true}, "alice"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized for administrator, got %v", err)
		}
	})
}
