package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/confidential-scheduler/internal/persistence"
)

func testRecord(employee string, marker byte) persistence.PreferenceRecord {
	return persistence.PreferenceRecord{
		Employee:     employee,
		DaysInOffice: []byte{marker, 1},
		TeamDays:     []byte{marker, 2},
		FocusDays:    []byte{marker, 3},
		Flexibility:  []byte{marker, 4},
		SubmittedAt:  time.Date(2026, time.February, 3, 9, 30, 0, 0, time.UTC),
	}
}

func TestPreferenceRepository_AppendAssignsSequentialIDs(t *testing.T) {
	repo := NewPreferenceRepository(setupStore(t))
	ctx := context.Background()

	first, err := repo.AppendPreference(ctx, testRecord("alice", 0x01))
	if err != nil {
		t.Fatalf("AppendPreference failed: %v", err)
	}
	second, err := repo.AppendPreference(ctx, testRecord("alice", 0x02))
	if err != nil {
		t.Fatalf("AppendPreference failed: %v", err)
	}

	if first.ID == 0 {
		t.Fatalf("expected assigned record ID, got 0")
	}
	if second.ID <= first.ID {
		t.Fatalf("expected increasing IDs, got %d then %d", first.ID, second.ID)
	}
}

func TestPreferenceRepository_LatestReturnsLastAppended(t *testing.T) {
	repo := NewPreferenceRepository(setupStore(t))
	ctx := context.Background()

	if _, err := repo.AppendPreference(ctx, testRecord("alice", 0x01)); err != nil {
		t.Fatalf("AppendPreference failed: %v", err)
	}
	second, err := repo.AppendPreference(ctx, testRecord("alice", 0x02))
	if err != nil {
		t.Fatalf("AppendPreference failed: %v", err)
	}

	latest, err := repo.LatestPreference(ctx, "alice")
	if err != nil {
		t.Fatalf("LatestPreference failed: %v", err)
	}
	if latest.ID != second.ID {
		t.Fatalf("expected latest ID %d, got %d", second.ID, latest.ID)
	}
	if len(latest.DaysInOffice) != 2 || latest.DaysInOffice[0] != 0x02 {
		t.Fatalf("unexpected ciphertext blob: %v", latest.DaysInOffice)
	}
	if !latest.SubmittedAt.Equal(second.SubmittedAt) {
		t.Fatalf("expected submission time %v, got %v", second.SubmittedAt, latest.SubmittedAt)
	}
}

func TestPreferenceRepository_LatestForUnknownEmployee(t *testing.T) {
	repo := NewPreferenceRepository(setupStore(t))

	_, err := repo.LatestPreference(context.Background(), "ghost")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPreferenceRepository_HistoryInSubmissionOrder(t *testing.T) {
	repo := NewPreferenceRepository(setupStore(t))
	ctx := context.Background()

	for marker := byte(1); marker <= 3; marker++ {
		if _, err := repo.AppendPreference(ctx, testRecord("alice", marker)); err != nil {
			t.Fatalf("AppendPreference failed: %v", err)
		}
	}
	if _, err := repo.AppendPreference(ctx, testRecord("bob", 0x09)); err != nil {
		t.Fatalf("AppendPreference failed: %v", err)
	}

	history, err := repo.PreferenceHistory(ctx, "alice")
	if err != nil {
		t.Fatalf("PreferenceHistory failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 records, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].ID <= history[i-1].ID {
			t.Fatalf("expected ascending IDs, got %d after %d", history[i].ID, history[i-1].ID)
		}
	}
	if history[0].DaysInOffice[0] != 0x01 || history[2].DaysInOffice[0] != 0x03 {
		t.Fatalf("history out of order: %v", history)
	}
}
