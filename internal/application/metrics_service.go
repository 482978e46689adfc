package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/confidential-scheduler/internal/fhe"
)

// MetricsService computes derived scores as pure ciphertext arithmetic over
// ledger and schedule state. Every metric returns a handle; plaintext never
// leaves the co-processor. Subtractions follow the unsigned wraparound
// semantics of the underlying ciphertext type.
type MetricsService struct {
	ledger    PreferenceLedger
	directory MembershipDirectory
	schedules ScheduleStore
	coproc    fhe.Coprocessor
	logger    *slog.Logger
}

// NewMetricsService wires dependencies for metric reads.
func NewMetricsService(ledger PreferenceLedger, directory MembershipDirectory, schedules ScheduleStore, coproc fhe.Coprocessor, logger *slog.Logger) *MetricsService {
	return &MetricsService{
		ledger:    ledger,
		directory: directory,
		schedules: schedules,
		coproc:    coproc,
		logger:    defaultLogger(logger),
	}
}

func (s *MetricsService) checkDeps() error {
	if s == nil {
		return fmt.Errorf("MetricsService is nil")
	}
	if s.ledger == nil || s.directory == nil || s.schedules == nil || s.coproc == nil {
		return fmt.Errorf("metrics dependencies not configured")
	}
	return nil
}

func (s *MetricsService) assignedSchedule(ctx context.Context, employee string) (PersonalSchedule, error) {
	schedule, err := s.schedules.GetPersonalSchedule(ctx, employee)
	if err != nil {
		if isNotFound(err) {
			return PersonalSchedule{}, ErrNotAssigned
		}
		return PersonalSchedule{}, err
	}
	if !schedule.Assigned {
		return PersonalSchedule{}, ErrNotAssigned
	}
	return schedule, nil
}

func (s *MetricsService) optimizedSchedule(ctx context.Context, team string) (TeamSchedule, error) {
	schedule, err := s.schedules.GetTeamSchedule(ctx, team)
	if err != nil {
		if isNotFound(err) {
			return TeamSchedule{}, ErrTeamNotOptimized
		}
		return TeamSchedule{}, err
	}
	if !schedule.Optimized {
		return TeamSchedule{}, ErrTeamNotOptimized
	}
	return schedule, nil
}

func (s *MetricsService) latestPreference(ctx context.Context, employee string) (PreferenceRecord, error) {
	pref, err := s.ledger.LatestPreference(ctx, employee)
	if err != nil {
		if isNotFound(err) {
			return PreferenceRecord{}, ErrNoPreference
		}
		return PreferenceRecord{}, err
	}
	return pref, nil
}

// Satisfaction scores how closely the assigned schedule tracks the latest
// preference: 100 - |assigned - preferred|/10 for office days, averaged with
// the analogous collaboration term.
func (s *MetricsService) Satisfaction(ctx context.Context, principal Principal, employee string) (fhe.Handle, error) {
	if err := s.checkDeps(); err != nil {
		return fhe.Handle{}, err
	}
	if err := requireSelfOrAdmin(principal, employee); err != nil {
		return fhe.Handle{}, err
	}
	return s.satisfaction(ctx, employee)
}

func (s *MetricsService) satisfaction(ctx context.Context, employee string) (fhe.Handle, error) {
	schedule, err := s.assignedSchedule(ctx, employee)
	if err != nil {
		return fhe.Handle{}, err
	}
	pref, err := s.latestPreference(ctx, employee)
	if err != nil {
		return fhe.Handle{}, err
	}

	officeScore, err := s.closenessScore(schedule.OfficeDays, pref.DaysInOffice)
	if err != nil {
		return fhe.Handle{}, err
	}
	collabScore, err := s.closenessScore(schedule.CollabDays, pref.TeamDays)
	if err != nil {
		return fhe.Handle{}, err
	}

	sum, err := s.coproc.Add(officeScore, collabScore)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	two, err := s.coproc.Encrypt(2)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	result, err := s.coproc.Div(sum, two)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	return result, nil
}

// closenessScore computes 100 - |a - b| / 10.
func (s *MetricsService) closenessScore(a, b fhe.Handle) (fhe.Handle, error) {
	distance, err := s.coproc.AbsDiff(a, b)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	ten, err := s.coproc.Encrypt(10)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	scaled, err := s.coproc.Div(distance, ten)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	hundred, err := s.coproc.Encrypt(100)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	score, err := s.coproc.Sub(hundred, scaled)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	return score, nil
}

// TeamCollaboration returns the accumulated overlap score of an optimized
// team.
func (s *MetricsService) TeamCollaboration(ctx context.Context, principal Principal, team string) (fhe.Handle, error) {
	if err := s.checkDeps(); err != nil {
		return fhe.Handle{}, err
	}
	if err := requireRecognized(principal); err != nil {
		return fhe.Handle{}, err
	}
	schedule, err := s.optimizedSchedule(ctx, team)
	if err != nil {
		return fhe.Handle{}, err
	}
	return schedule.OverlapScore, nil
}

// FlexibilityUtilization returns the mean flexibility score over members
// holding a preference, or an encrypted zero when none do.
func (s *MetricsService) FlexibilityUtilization(ctx context.Context, principal Principal, team string) (fhe.Handle, error) {
	if err := s.checkDeps(); err != nil {
		return fhe.Handle{}, err
	}
	if err := requireRecognized(principal); err != nil {
		return fhe.Handle{}, err
	}

	members, err := s.directory.Members(ctx, team)
	if err != nil && !isNotFound(err) {
		return fhe.Handle{}, err
	}

	total, err := s.coproc.Encrypt(0)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	counted := uint32(0)
	for _, member := range members {
		pref, lookupErr := s.ledger.LatestPreference(ctx, member)
		if lookupErr != nil {
			if isNotFound(lookupErr) {
				continue
			}
			return fhe.Handle{}, lookupErr
		}
		if total, err = s.coproc.Add(total, pref.Flexibility); err != nil {
			return fhe.Handle{}, mapArithmeticError(err)
		}
		counted++
	}
	if counted == 0 {
		return total, nil
	}

	divisor, err := s.coproc.Encrypt(counted)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	mean, err := s.coproc.Div(total, divisor)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	return mean, nil
}

// FocusTime returns assigned office days minus collaboration days, wrapping
// when collaboration exceeds office time.
func (s *MetricsService) FocusTime(ctx context.Context, principal Principal, employee string) (fhe.Handle, error) {
	if err := s.checkDeps(); err != nil {
		return fhe.Handle{}, err
	}
	if err := requireSelfOrAdmin(principal, employee); err != nil {
		return fhe.Handle{}, err
	}
	schedule, err := s.assignedSchedule(ctx, employee)
	if err != nil {
		return fhe.Handle{}, err
	}
	result, err := s.coproc.Sub(schedule.OfficeDays, schedule.CollabDays)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	return result, nil
}

// Efficiency returns (collab * overlap) / 100 for an optimized team.
func (s *MetricsService) Efficiency(ctx context.Context, principal Principal, team string) (fhe.Handle, error) {
	if err := s.checkDeps(); err != nil {
		return fhe.Handle{}, err
	}
	if err := requireRecognized(principal); err != nil {
		return fhe.Handle{}, err
	}
	schedule, err := s.optimizedSchedule(ctx, team)
	if err != nil {
		return fhe.Handle{}, err
	}
	product, err := s.coproc.Mul(schedule.CollabDays, schedule.OverlapScore)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	hundred, err := s.coproc.Encrypt(100)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	result, err := s.coproc.Div(product, hundred)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	return result, nil
}

// Conflict returns collab minus office for an optimized team; the difference
// wraps when office exceeds collaboration.
func (s *MetricsService) Conflict(ctx context.Context, principal Principal, team string) (fhe.Handle, error) {
	if err := s.checkDeps(); err != nil {
		return fhe.Handle{}, err
	}
	if err := requireRecognized(principal); err != nil {
		return fhe.Handle{}, err
	}
	schedule, err := s.optimizedSchedule(ctx, team)
	if err != nil {
		return fhe.Handle{}, err
	}
	result, err := s.coproc.Sub(schedule.CollabDays, schedule.OfficeDays)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	return result, nil
}

// WorkLifeBalance returns 100 - office*10 for an assigned employee.
func (s *MetricsService) WorkLifeBalance(ctx context.Context, principal Principal, employee string) (fhe.Handle, error) {
	if err := s.checkDeps(); err != nil {
		return fhe.Handle{}, err
	}
	if err := requireSelfOrAdmin(principal, employee); err != nil {
		return fhe.Handle{}, err
	}
	schedule, err := s.assignedSchedule(ctx, employee)
	if err != nil {
		return fhe.Handle{}, err
	}
	ten, err := s.coproc.Encrypt(10)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	weighted, err := s.coproc.Mul(schedule.OfficeDays, ten)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	hundred, err := s.coproc.Encrypt(100)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	result, err := s.coproc.Sub(hundred, weighted)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	return result, nil
}

// RemoteWorkImpact returns (5 - office) * 20 for an optimized team.
func (s *MetricsService) RemoteWorkImpact(ctx context.Context, principal Principal, team string) (fhe.Handle, error) {
	if err := s.checkDeps(); err != nil {
		return fhe.Handle{}, err
	}
	if err := requireRecognized(principal); err != nil {
		return fhe.Handle{}, err
	}
	schedule, err := s.optimizedSchedule(ctx, team)
	if err != nil {
		return fhe.Handle{}, err
	}
	five, err := s.coproc.Encrypt(5)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	remote, err := s.coproc.Sub(five, schedule.OfficeDays)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	twenty, err := s.coproc.Encrypt(20)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	result, err := s.coproc.Mul(remote, twenty)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	return result, nil
}

// Recommendation suggests one extra office day when the employee's
// flexibility exceeds 70, via conditional select.
func (s *MetricsService) Recommendation(ctx context.Context, principal Principal, employee string) (fhe.Handle, error) {
	if err := s.checkDeps(); err != nil {
		return fhe.Handle{}, err
	}
	if err := requireSelfOrAdmin(principal, employee); err != nil {
		return fhe.Handle{}, err
	}
	schedule, err := s.assignedSchedule(ctx, employee)
	if err != nil {
		return fhe.Handle{}, err
	}
	pref, err := s.latestPreference(ctx, employee)
	if err != nil {
		return fhe.Handle{}, err
	}

	threshold, err := s.coproc.Encrypt(70)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	flexible, err := s.coproc.Gt(pref.Flexibility, threshold)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	one, err := s.coproc.Encrypt(1)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	raised, err := s.coproc.Add(schedule.OfficeDays, one)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	result, err := s.coproc.Select(flexible, raised, schedule.OfficeDays)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	return result, nil
}

// Adherence returns (flexibility + satisfaction) / 2 for an assigned
// employee.
func (s *MetricsService) Adherence(ctx context.Context, principal Principal, employee string) (fhe.Handle, error) {
	if err := s.checkDeps(); err != nil {
		return fhe.Handle{}, err
	}
	if err := requireSelfOrAdmin(principal, employee); err != nil {
		return fhe.Handle{}, err
	}

	satisfaction, err := s.satisfaction(ctx, employee)
	if err != nil {
		return fhe.Handle{}, err
	}
	pref, err := s.latestPreference(ctx, employee)
	if err != nil {
		return fhe.Handle{}, err
	}

	sum, err := s.coproc.Add(pref.Flexibility, satisfaction)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	two, err := s.coproc.Encrypt(2)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	result, err := s.coproc.Div(sum, two)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	return result, nil
}

func requireRecognized(principal Principal) error {
	if principal.IsAdmin || principal.UserID != "" {
		return nil
	}
	return ErrUnauthorized
}
