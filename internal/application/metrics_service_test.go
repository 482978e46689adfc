package application

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/example/confidential-scheduler/internal/fhe"
)

type metricsHarness struct {
	svc    *MetricsService
	store  *storeStub
	coproc *fhe.SoftwareCoprocessor
}

func newMetricsHarness(t *testing.T) *metricsHarness {
	t.Helper()
	coproc := newTestCoprocessor(t)
	store := newStoreStub()
	return &metricsHarness{
		svc:    NewMetricsService(store, store, store, coproc, nil),
		store:  store,
		coproc: coproc,
	}
}

func (h *metricsHarness) seedPreference(t *testing.T, employee string, office, team, focus, flexibility uint32) {
	t.Helper()
	_, err := h.store.AppendPreference(context.Background(), PreferenceRecord{
		Employee:     employee,
		DaysInOffice: encryptValue(t, h.coproc, office),
		TeamDays:     encryptValue(t, h.coproc, team),
		FocusDays:    encryptValue(t, h.coproc, focus),
		Flexibility:  encryptValue(t, h.coproc, flexibility),
	})
	if err != nil {
		t.Fatalf("failed to seed preference: %v", err)
	}
}

func (h *metricsHarness) seedPersonal(t *testing.T, employee string, office, collab uint32) {
	t.Helper()
	h.store.personals[employee] = PersonalSchedule{
		Employee:   employee,
		OfficeDays: encryptValue(t, h.coproc, office),
		CollabDays: encryptValue(t, h.coproc, collab),
		Assigned:   true,
	}
}

func (h *metricsHarness) seedTeam(t *testing.T, team string, office, collab, overlap uint32) {
	t.Helper()
	h.store.teams[team] = TeamSchedule{
		Team:         team,
		OfficeDays:   encryptValue(t, h.coproc, office),
		CollabDays:   encryptValue(t, h.coproc, collab),
		OverlapScore: encryptValue(t, h.coproc, overlap),
		Optimized:    true,
	}
}

func TestMetricsService_EmployeeMetrics(t *testing.T) {
	t.Parallel()

	self := Principal{UserID: "alice"}

	t.Run("satisfaction averages the two closeness scores", func(t *testing.T) {
		h := newMetricsHarness(t)
		h.seedPreference(t, "alice", 43, 27, 1, 50)
		h.seedPersonal(t, "alice", 3, 7)

		handle, err := h.svc.Satisfaction(context.Background(), self, "alice")
		if err != nil {
			t.Fatalf("Satisfaction returned error: %v", err)
		}
		// Office: 100 - |3-43|/10 = 96. Collab: 100 - |7-27|/10 = 98.
		if got := decryptValue(t, h.coproc, handle); got != 97 {
			t.Fatalf("expected satisfaction 97, got %d", got)
		}
	})

	t.Run("satisfaction requires an assignment", func(t *testing.T) {
		h := newMetricsHarness(t)
		h.seedPreference(t, "alice", 4, 2, 1, 50)

		if _, err := h.svc.Satisfaction(context.Background(), self, "alice"); !errors.Is(err, ErrNotAssigned) {
			t.Fatalf("expected ErrNotAssigned, got %v", err)
		}
	})

	t.Run("focus time wraps when collaboration exceeds office days", func(t *testing.T) {
		h := newMetricsHarness(t)
		h.seedPersonal(t, "alice", 2, 5)

		handle, err := h.svc.FocusTime(context.Background(), self, "alice")
		if err != nil {
			t.Fatalf("FocusTime returned error: %v", err)
		}
		want := uint32(math.MaxUint32 - 2)
		if got := decryptValue(t, h.coproc, handle); got != want {
			t.Fatalf("expected wrapped focus time %d, got %d", want, got)
		}
	})

	t.Run("work-life balance weights office days", func(t *testing.T) {
		h := newMetricsHarness(t)
		h.seedPersonal(t, "alice", 3, 2)

		handle, err := h.svc.WorkLifeBalance(context.Background(), self, "alice")
		if err != nil {
			t.Fatalf("WorkLifeBalance returned error: %v", err)
		}
		if got := decryptValue(t, h.coproc, handle); got != 70 {
			t.Fatalf("expected balance 100-3*10=70, got %d", got)
		}
	})

	t.Run("recommendation adds a day above the flexibility threshold", func(t *testing.T) {
		h := newMetricsHarness(t)
		h.seedPreference(t, "alice", 4, 2, 1, 80)
		h.seedPersonal(t, "alice", 3, 2)

		handle, err := h.svc.Recommendation(context.Background(), self, "alice")
		if err != nil {
			t.Fatalf("Recommendation returned error: %v", err)
		}
		if got := decryptValue(t, h.coproc, handle); got != 4 {
			t.Fatalf("expected recommendation 3+1=4, got %d", got)
		}
	})

	t.Run("recommendation keeps the assignment at the threshold", func(t *testing.T) {
		h := newMetricsHarness(t)
		h.seedPreference(t, "alice", 4, 2, 1, 70)
		h.seedPersonal(t, "alice", 3, 2)

		handle, err := h.svc.Recommendation(context.Background(), self, "alice")
		if err != nil {
			t.Fatalf("Recommendation returned error: %v", err)
		}
		if got := decryptValue(t, h.coproc, handle); got != 3 {
			t.Fatalf("expected recommendation 3, got %d", got)
		}
	})

	t.Run("adherence blends flexibility with satisfaction", func(t *testing.T) {
		h := newMetricsHarness(t)
		h.seedPreference(t, "alice", 3, 7, 1, 80)
		h.seedPersonal(t, "alice", 3, 7)

		handle, err := h.svc.Adherence(context.Background(), self, "alice")
		if err != nil {
			t.Fatalf("Adherence returned error: %v", err)
		}
		// Satisfaction is 100 when the assignment matches the preference.
		if got := decryptValue(t, h.coproc, handle); got != 90 {
			t.Fatalf("expected adherence (80+100)/2=90, got %d", got)
		}
	})

	t.Run("denies another employee's metrics", func(t *testing.T) {
		h := newMetricsHarness(t)
		h.seedPersonal(t, "alice", 3, 2)

		if _, err := h.svc.FocusTime(context.Background(), Principal{UserID: "mallory"}, "alice"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestMetricsService_TeamMetrics(t *testing.T) {
	t.Parallel()

	viewer := Principal{UserID: "alice"}

	t.Run("team collaboration exposes the overlap score", func(t *testing.T) {
		h := newMetricsHarness(t)
		h.seedTeam(t, "platform", 3, 5, 4)

		handle, err := h.svc.TeamCollaboration(context.Background(), viewer, "platform")
		if err != nil {
			t.Fatalf("TeamCollaboration returned error: %v", err)
		}
		if got := decryptValue(t, h.coproc, handle); got != 4 {
			t.Fatalf("expected overlap 4, got %d", got)
		}
	})

	t.Run("team metrics require an optimized schedule", func(t *testing.T) {
		h := newMetricsHarness(t)
		if _, err := h.svc.TeamCollaboration(context.Background(), viewer, "platform"); !errors.Is(err, ErrTeamNotOptimized) {
			t.Fatalf("expected ErrTeamNotOptimized, got %v", err)
		}
	})

	t.Run("flexibility utilization averages contributing members", func(t *testing.T) {
		h := newMetricsHarness(t)
		h.seedPreference(t, "alice", 4, 2, 1, 60)
		h.seedPreference(t, "bob", 4, 2, 1, 80)
		for _, employee := range []string{"alice", "bob", "carol"} {
			if err := h.store.AddMember(context.Background(), "platform", employee); err != nil {
				t.Fatalf("AddMember returned error: %v", err)
			}
		}

		handle, err := h.svc.FlexibilityUtilization(context.Background(), viewer, "platform")
		if err != nil {
			t.Fatalf("FlexibilityUtilization returned error: %v", err)
		}
		// carol has no preference and is excluded from the mean.
		if got := decryptValue(t, h.coproc, handle); got != 70 {
			t.Fatalf("expected utilization (60+80)/2=70, got %d", got)
		}
	})

	t.Run("flexibility utilization is zero without contributors", func(t *testing.T) {
		h := newMetricsHarness(t)
		handle, err := h.svc.FlexibilityUtilization(context.Background(), viewer, "platform")
		if err != nil {
			t.Fatalf("FlexibilityUtilization returned error: %v", err)
		}
		if got := decryptValue(t, h.coproc, handle); got != 0 {
			t.Fatalf("expected utilization 0, got %d", got)
		}
	})

	t.Run("efficiency scales collaboration by overlap", func(t *testing.T) {
		h := newMetricsHarness(t)
		h.seedTeam(t, "platform", 3, 30, 40)

		handle, err := h.svc.Efficiency(context.Background(), viewer, "platform")
		if err != nil {
			t.Fatalf("Efficiency returned error: %v", err)
		}
		if got := decryptValue(t, h.coproc, handle); got != 12 {
			t.Fatalf("expected efficiency 30*40/100=12, got %d", got)
		}
	})

	t.Run("conflict subtracts office from collaboration", func(t *testing.T) {
		h := newMetricsHarness(t)
		h.seedTeam(t, "platform", 3, 5, 0)

		handle, err := h.svc.Conflict(context.Background(), viewer, "platform")
		if err != nil {
			t.Fatalf("Conflict returned error: %v", err)
		}
		if got := decryptValue(t, h.coproc, handle); got != 2 {
			t.Fatalf("expected conflict 5-3=2, got %d", got)
		}
	})

	t.Run("remote work impact weights remote days", func(t *testing.T) {
		h := newMetricsHarness(t)
		h.seedTeam(t, "platform", 2, 5, 0)

		handle, err := h.svc.RemoteWorkImpact(context.Background(), viewer, "platform")
		if err != nil {
			t.Fatalf("RemoteWorkImpact returned error: %v", err)
		}
		if got := decryptValue(t, h.coproc, handle); got != 60 {
			t.Fatalf("expected impact (5-2)*20=60, got %d", got)
		}
	})

	t.Run("denies anonymous callers", func(t *testing.T) {
		h := newMetricsHarness(t)
		h.seedTeam(t, "platform", 3, 5, 4)

		if _, err := h.svc.TeamCollaboration(context.Background(), Principal{}, "platform"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}
