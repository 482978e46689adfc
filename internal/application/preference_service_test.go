package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/confidential-scheduler/internal/fhe"
)

func TestPreferenceService_SubmitPreference(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.February, 3, 9, 30, 0, 0, time.UTC)

	t.Run("rejects anonymous submissions", func(t *testing.T) {
		coproc := newTestCoprocessor(t)
		store := newStoreStub()
		svc := NewPreferenceService(store, store, store, coproc, nil, func() time.Time { return now }, nil)

		params := submitParams(t, coproc, "alice", 3, 2, 1, 50)
		params.Principal.UserID = "   "

		if _, err := svc.SubmitPreference(context.Background(), params); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects missing ciphertext handles", func(t *testing.T) {
		coproc := newTestCoprocessor(t)
		store := newStoreStub()
		svc := NewPreferenceService(store, store, store, coproc, nil, func() time.Time { return now }, nil)

		params := submitParams(t, coproc, "alice", 3, 2, 1, 50)
		params.Flexibility = fhe.Handle{}

		if _, err := svc.SubmitPreference(context.Background(), params); !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("expected ErrMalformedPayload, got %v", err)
		}
	})

	t.Run("appends records and initialises schedules", func(t *testing.T) {
		coproc := newTestCoprocessor(t)
		store := newStoreStub()
		recorder := &EventRecorder{}
		svc := NewPreferenceService(store, store, store, coproc, recorder, func() time.Time { return now }, nil)

		record, err := svc.SubmitPreference(context.Background(), submitParams(t, coproc, "alice", 3, 2, 1, 50))
		if err != nil {
			t.Fatalf("SubmitPreference returned error: %v", err)
		}
		if record.ID != 1 {
			t.Fatalf("expected record ID 1, got %d", record.ID)
		}
		if !record.SubmittedAt.Equal(now) {
			t.Fatalf("expected submission time %v, got %v", now, record.SubmittedAt)
		}

		personal, err := store.GetPersonalSchedule(context.Background(), "alice")
		if err != nil {
			t.Fatalf("expected personal schedule to be created: %v", err)
		}
		if personal.Assigned {
			t.Fatalf("expected fresh personal schedule to be unassigned")
		}
		if got := decryptValue(t, coproc, personal.OfficeDays); got != 0 {
			t.Fatalf("expected zero-valued office days, got %d", got)
		}

		revealed, err := store.GetRevealedSchedule(context.Background(), "alice")
		if err != nil {
			t.Fatalf("expected revealed row to be created: %v", err)
		}
		if revealed.Revealed {
			t.Fatalf("expected revealed row to start unrevealed")
		}

		events := recorder.Events()
		if len(events) != 1 || events[0].Kind != EventSubmitted {
			t.Fatalf("expected one submitted event, got %v", events)
		}
	})

	t.Run("resubmission appends rather than overwrites", func(t *testing.T) {
		coproc := newTestCoprocessor(t)
		store := newStoreStub()
		svc := NewPreferenceService(store, store, store, coproc, nil, func() time.Time { return now }, nil)

		first, err := svc.SubmitPreference(context.Background(), submitParams(t, coproc, "alice", 3, 2, 1, 50))
		if err != nil {
			t.Fatalf("first submission failed: %v", err)
		}
		second, err := svc.SubmitPreference(context.Background(), submitParams(t, coproc, "alice", 4, 3, 2, 60))
		if err != nil {
			t.Fatalf("second submission failed: %v", err)
		}
		if second.ID <= first.ID {
			t.Fatalf("expected strictly increasing record IDs, got %d then %d", first.ID, second.ID)
		}

		history, err := store.PreferenceHistory(context.Background(), "alice")
		if err != nil {
			t.Fatalf("PreferenceHistory returned error: %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("expected two ledger entries, got %d", len(history))
		}
	})

	t.Run("leaves the ledger untouched when schedule initialisation fails", func(t *testing.T) {
		coproc := newTestCoprocessor(t)
		store := newStoreStub()
		recorder := &EventRecorder{}
		svc := NewPreferenceService(store, store, store, coproc, recorder, func() time.Time { return now }, nil)

		storeErr := errors.New("disk full")
		store.putPersonErr = storeErr

		if _, err := svc.SubmitPreference(context.Background(), submitParams(t, coproc, "alice", 3, 2, 1, 50)); !errors.Is(err, storeErr) {
			t.Fatalf("expected the store failure, got %v", err)
		}

		history, err := store.PreferenceHistory(context.Background(), "alice")
		if err != nil {
			t.Fatalf("PreferenceHistory returned error: %v", err)
		}
		if len(history) != 0 {
			t.Fatalf("expected an empty ledger after the failed submission, got %d record(s)", len(history))
		}
		if events := recorder.Events(); len(events) != 0 {
			t.Fatalf("expected no events after the failed submission, got %v", events)
		}

		store.putPersonErr = nil
		if _, err := svc.SubmitPreference(context.Background(), submitParams(t, coproc, "alice", 3, 2, 1, 50)); err != nil {
			t.Fatalf("resubmission after recovery failed: %v", err)
		}
	})

	t.Run("publishes no event when the ledger append fails", func(t *testing.T) {
		coproc := newTestCoprocessor(t)
		store := newStoreStub()
		recorder := &EventRecorder{}
		svc := NewPreferenceService(store, store, store, coproc, recorder, func() time.Time { return now }, nil)

		storeErr := errors.New("ledger unavailable")
		store.appendErr = storeErr

		if _, err := svc.SubmitPreference(context.Background(), submitParams(t, coproc, "alice", 3, 2, 1, 50)); !errors.Is(err, storeErr) {
			t.Fatalf("expected the ledger failure, got %v", err)
		}
		if events := recorder.Events(); len(events) != 0 {
			t.Fatalf("expected no events after the failed append, got %v", events)
		}
	})
}

func TestPreferenceService_LedgerReads(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.February, 3, 9, 30, 0, 0, time.UTC)

	newService := func(t *testing.T) (*PreferenceService, *storeStub, *fhe.SoftwareCoprocessor) {
		coproc := newTestCoprocessor(t)
		store := newStoreStub()
		svc := NewPreferenceService(store, store, store, coproc, nil, func() time.Time { return now }, nil)
		return svc, store, coproc
	}

	t.Run("history grows by one per submission and latest matches the last entry", func(t *testing.T) {
		svc, _, coproc := newService(t)
		self := Principal{UserID: "alice"}

		const submissions = 5
		for i := 0; i < submissions; i++ {
			if _, err := svc.SubmitPreference(context.Background(), submitParams(t, coproc, "alice", uint32(i), 2, 1, 50)); err != nil {
				t.Fatalf("submission %d failed: %v", i, err)
			}

			history, err := svc.PreferenceHistory(context.Background(), self, "alice")
			if err != nil {
				t.Fatalf("PreferenceHistory returned error: %v", err)
			}
			if len(history) != i+1 {
				t.Fatalf("expected history length %d, got %d", i+1, len(history))
			}

			latest, err := svc.LatestPreference(context.Background(), self, "alice")
			if err != nil {
				t.Fatalf("LatestPreference returned error: %v", err)
			}
			if latest.ID != history[len(history)-1].ID {
				t.Fatalf("latest record %d does not match last history entry %d", latest.ID, history[len(history)-1].ID)
			}
			if got := decryptValue(t, coproc, latest.DaysInOffice); got != uint32(i) {
				t.Fatalf("expected latest office days %d, got %d", i, got)
			}
		}
	})

	t.Run("denies reads of another employee's ledger", func(t *testing.T) {
		svc, _, coproc := newService(t)
		if _, err := svc.SubmitPreference(context.Background(), submitParams(t, coproc, "alice", 3, 2, 1, 50)); err != nil {
			t.Fatalf("submission failed: %v", err)
		}

		if _, err := svc.LatestPreference(context.Background(), Principal{UserID: "mallory"}, "alice"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if _, err := svc.PreferenceHistory(context.Background(), Principal{UserID: "mallory"}, "alice"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("permits administrator reads", func(t *testing.T) {
		svc, _, coproc := newService(t)
		if _, err := svc.SubmitPreference(context.Background(), submitParams(t, coproc, "alice", 3, 2, 1, 50)); err != nil {
			t.Fatalf("submission failed: %v", err)
		}

		if _, err := svc.LatestPreference(context.Background(), Principal{UserID: "root", IsAdmin: true}, "alice"); err != nil {
			t.Fatalf("expected administrator read to succeed, got %v", err)
		}
	})

	t.Run("reports missing preferences distinctly", func(t *testing.T) {
		svc, _, _ := newService(t)

		if _, err := svc.LatestPreference(context.Background(), Principal{UserID: "alice"}, "alice"); !errors.Is(err, ErrNoPreference) {
			t.Fatalf("expected ErrNoPreference, got %v", err)
		}
	})
}
