package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/confidential-scheduler/internal/fhe"
	"github.com/example/confidential-scheduler/internal/persistence"
)

// OptimizerService computes encrypted team schedules from member preferences
// and blends them into personal assignments. Every arithmetic step operates
// on ciphertext handles; no intermediate value is ever decrypted.
type OptimizerService struct {
	ledger    PreferenceLedger
	directory MembershipDirectory
	schedules ScheduleStore
	coproc    fhe.Coprocessor
	events    EventPublisher
	now       func() time.Time
	logger    *slog.Logger
}

// NewOptimizerService wires dependencies for optimization operations.
func NewOptimizerService(ledger PreferenceLedger, directory MembershipDirectory, schedules ScheduleStore, coproc fhe.Coprocessor, events EventPublisher, now func() time.Time, logger *slog.Logger) *OptimizerService {
	if now == nil {
		now = time.Now
	}
	return &OptimizerService{
		ledger:    ledger,
		directory: directory,
		schedules: schedules,
		coproc:    coproc,
		events:    events,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *OptimizerService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "OptimizerService", operation, attrs...)
}

func (s *OptimizerService) checkDeps() error {
	if s == nil {
		return fmt.Errorf("OptimizerService is nil")
	}
	if s.ledger == nil || s.directory == nil || s.schedules == nil || s.coproc == nil {
		return fmt.Errorf("optimizer dependencies not configured")
	}
	return nil
}

// OptimizeTeam aggregates the latest member preferences into a fresh team
// schedule. Members without a ledger entry are skipped; the pairwise overlap
// pairs each contributing member with the previous contributing member, and
// the mean divides by the raw member count including skipped members.
// Administrator only.
func (s *OptimizerService) OptimizeTeam(ctx context.Context, principal Principal, team string) (schedule TeamSchedule, err error) {
	if err = s.checkDeps(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "OptimizeTeam", "team_id", team)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "team optimization failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "team optimized")
	}()

	if err = requireAdmin(principal); err != nil {
		return
	}

	var members []string
	members, err = s.directory.Members(ctx, team)
	if err != nil && !isNotFound(err) {
		return
	}
	if len(members) == 0 {
		err = ErrEmptyTeam
		return
	}

	totalOffice, err := s.coproc.Encrypt(0)
	if err != nil {
		return TeamSchedule{}, mapArithmeticError(err)
	}
	totalCollab := totalOffice
	overlap := totalOffice

	var prevTeamDays fhe.Handle
	for _, member := range members {
		pref, lookupErr := s.ledger.LatestPreference(ctx, member)
		if lookupErr != nil {
			if isNotFound(lookupErr) {
				continue
			}
			return TeamSchedule{}, lookupErr
		}

		if totalOffice, err = s.coproc.Add(totalOffice, pref.DaysInOffice); err != nil {
			return TeamSchedule{}, mapArithmeticError(err)
		}
		if totalCollab, err = s.coproc.Add(totalCollab, pref.TeamDays); err != nil {
			return TeamSchedule{}, mapArithmeticError(err)
		}

		// Preference values are day-of-week bitmasks, so the AND of two
		// members' collaboration days approximates their shared days.
		if !prevTeamDays.IsEmpty() {
			shared, andErr := s.coproc.And(pref.TeamDays, prevTeamDays)
			if andErr != nil {
				return TeamSchedule{}, mapArithmeticError(andErr)
			}
			if overlap, err = s.coproc.Add(overlap, shared); err != nil {
				return TeamSchedule{}, mapArithmeticError(err)
			}
		}
		prevTeamDays = pref.TeamDays
	}

	divisor, err := s.coproc.Encrypt(uint32(len(members)))
	if err != nil {
		return TeamSchedule{}, mapArithmeticError(err)
	}
	officeDays, err := s.coproc.Div(totalOffice, divisor)
	if err != nil {
		return TeamSchedule{}, mapArithmeticError(err)
	}
	collabDays, err := s.coproc.Div(totalCollab, divisor)
	if err != nil {
		return TeamSchedule{}, mapArithmeticError(err)
	}

	schedule = TeamSchedule{
		Team:         team,
		OfficeDays:   officeDays,
		CollabDays:   collabDays,
		OverlapScore: overlap,
		Optimized:    true,
		UpdatedAt:    s.now(),
	}
	if err = s.schedules.PutTeamSchedules(ctx, schedule); err != nil {
		return TeamSchedule{}, err
	}

	publish(ctx, s.events, Event{Kind: EventOptimized, Team: team, At: s.now()})
	return schedule, nil
}

// AssignPersonal blends an employee's latest preference with their team's
// optimized schedule into a personal assignment. The team arrives
// pre-resolved by the caller. Administrator only.
func (s *OptimizerService) AssignPersonal(ctx context.Context, principal Principal, employee, team string) (schedule PersonalSchedule, err error) {
	if err = s.checkDeps(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "AssignPersonal", "employee_id", employee, "team_id", team)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "personal assignment failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "personal schedule assigned")
	}()

	if err = requireAdmin(principal); err != nil {
		return
	}

	teamSchedule, err := s.schedules.GetTeamSchedule(ctx, team)
	if err != nil {
		if isNotFound(err) {
			return PersonalSchedule{}, ErrTeamNotOptimized
		}
		return PersonalSchedule{}, err
	}
	if !teamSchedule.Optimized {
		return PersonalSchedule{}, ErrTeamNotOptimized
	}

	pref, err := s.ledger.LatestPreference(ctx, employee)
	if err != nil {
		if isNotFound(err) {
			return PersonalSchedule{}, ErrNoPreference
		}
		return PersonalSchedule{}, err
	}

	two, err := s.coproc.Encrypt(2)
	if err != nil {
		return PersonalSchedule{}, mapArithmeticError(err)
	}
	officeDays, err := s.blend(pref.DaysInOffice, teamSchedule.OfficeDays, two)
	if err != nil {
		return PersonalSchedule{}, err
	}
	collabDays, err := s.blend(pref.TeamDays, teamSchedule.CollabDays, two)
	if err != nil {
		return PersonalSchedule{}, err
	}

	schedule = PersonalSchedule{
		Employee:   employee,
		OfficeDays: officeDays,
		CollabDays: collabDays,
		Assigned:   true,
		UpdatedAt:  s.now(),
	}
	if err = s.schedules.PutPersonalSchedule(ctx, schedule); err != nil {
		return PersonalSchedule{}, err
	}

	publish(ctx, s.events, Event{Kind: EventAssigned, Employee: employee, At: s.now()})
	return schedule, nil
}

// blend computes (personal + team) / 2 with integer truncation.
func (s *OptimizerService) blend(personal, team, two fhe.Handle) (fhe.Handle, error) {
	sum, err := s.coproc.Add(personal, team)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	blended, err := s.coproc.Div(sum, two)
	if err != nil {
		return fhe.Handle{}, mapArithmeticError(err)
	}
	return blended, nil
}

// AdjustForTeamEvents adds an encrypted number of event days to a team's
// collaboration schedule. The target must already be optimized.
// Administrator only.
func (s *OptimizerService) AdjustForTeamEvents(ctx context.Context, principal Principal, team string, eventDays fhe.Handle) (err error) {
	if err = s.checkDeps(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "AdjustForTeamEvents", "team_id", team)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "team event adjustment failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "team schedule adjusted for events")
	}()

	if err = requireAdmin(principal); err != nil {
		return
	}

	schedule, err := s.optimizedTeamSchedule(ctx, team)
	if err != nil {
		return err
	}

	adjusted, err := s.coproc.Add(schedule.CollabDays, eventDays)
	if err != nil {
		return mapArithmeticError(err)
	}
	schedule.CollabDays = adjusted
	schedule.UpdatedAt = s.now()
	return s.schedules.PutTeamSchedules(ctx, schedule)
}

// AdjustForPersonalConstraints clamps an assigned personal schedule's office
// days to an encrypted upper bound. Administrator only.
func (s *OptimizerService) AdjustForPersonalConstraints(ctx context.Context, principal Principal, employee string, maxOfficeDays fhe.Handle) (err error) {
	if err = s.checkDeps(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "AdjustForPersonalConstraints", "employee_id", employee)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "personal constraint adjustment failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "personal schedule adjusted for constraints")
	}()

	if err = requireAdmin(principal); err != nil {
		return
	}

	schedule, err := s.schedules.GetPersonalSchedule(ctx, employee)
	if err != nil {
		if isNotFound(err) {
			return ErrNotAssigned
		}
		return err
	}
	if !schedule.Assigned {
		return ErrNotAssigned
	}

	over, err := s.coproc.Gt(schedule.OfficeDays, maxOfficeDays)
	if err != nil {
		return mapArithmeticError(err)
	}
	clamped, err := s.coproc.Select(over, maxOfficeDays, schedule.OfficeDays)
	if err != nil {
		return mapArithmeticError(err)
	}
	schedule.OfficeDays = clamped
	schedule.UpdatedAt = s.now()
	return s.schedules.PutPersonalSchedule(ctx, schedule)
}

// OptimizeCrossTeamCollab raises both teams' overlap scores by the AND of
// their collaboration-day bitmasks. Both teams must already be optimized;
// the two updated schedules are committed together. Administrator only.
func (s *OptimizerService) OptimizeCrossTeamCollab(ctx context.Context, principal Principal, teamA, teamB string) (err error) {
	if err = s.checkDeps(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "OptimizeCrossTeamCollab", "team_a", teamA, "team_b", teamB)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "cross-team optimization failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "cross-team collaboration optimized")
	}()

	if err = requireAdmin(principal); err != nil {
		return
	}

	a, err := s.optimizedTeamSchedule(ctx, teamA)
	if err != nil {
		return err
	}
	b, err := s.optimizedTeamSchedule(ctx, teamB)
	if err != nil {
		return err
	}

	shared, err := s.coproc.And(a.CollabDays, b.CollabDays)
	if err != nil {
		return mapArithmeticError(err)
	}
	if a.OverlapScore, err = s.coproc.Add(a.OverlapScore, shared); err != nil {
		return mapArithmeticError(err)
	}
	if b.OverlapScore, err = s.coproc.Add(b.OverlapScore, shared); err != nil {
		return mapArithmeticError(err)
	}

	now := s.now()
	a.UpdatedAt = now
	b.UpdatedAt = now
	return s.schedules.PutTeamSchedules(ctx, a, b)
}

func (s *OptimizerService) optimizedTeamSchedule(ctx context.Context, team string) (TeamSchedule, error) {
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

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}

func mapArithmeticError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fhe.ErrDegenerateDivisor) {
		return fmt.Errorf("%w: %v", ErrArithmeticDegenerate, err)
	}
	return err
}
