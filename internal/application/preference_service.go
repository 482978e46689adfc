package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/confidential-scheduler/internal/fhe"
)

// PreferenceLedger captures the append-only persistence interactions needed
// by the service. AppendPreference assigns the next sequential record
// identifier; the ledger never shrinks.
type PreferenceLedger interface {
	AppendPreference(ctx context.Context, record PreferenceRecord) (PreferenceRecord, error)
	LatestPreference(ctx context.Context, employee string) (PreferenceRecord, error)
	PreferenceHistory(ctx context.Context, employee string) ([]PreferenceRecord, error)
}

// ScheduleStore exposes encrypted schedule persistence shared by the
// preference, optimizer and reveal services.
type ScheduleStore interface {
	GetTeamSchedule(ctx context.Context, team string) (TeamSchedule, error)
	PutTeamSchedules(ctx context.Context, schedules ...TeamSchedule) error
	GetPersonalSchedule(ctx context.Context, employee string) (PersonalSchedule, error)
	PutPersonalSchedule(ctx context.Context, schedule PersonalSchedule) error
}

// RevealStore exposes revealed-schedule rows and the pending decryption
// request table.
type RevealStore interface {
	InitRevealedSchedule(ctx context.Context, employee string) error
	GetRevealedSchedule(ctx context.Context, employee string) (RevealedSchedule, error)
	CreateRequest(ctx context.Context, request DecryptionRequest) error
	GetRequest(ctx context.Context, id string) (DecryptionRequest, error)
	PendingRequest(ctx context.Context, employee string) (DecryptionRequest, error)
	CommitReveal(ctx context.Context, requestID, employee string, officeDays, collabDays uint32, revealedAt time.Time) error
}

// PreferenceService accepts encrypted preference submissions and serves
// ledger reads. Ciphertext content is never validated; confidentiality is
// structural.
type PreferenceService struct {
	ledger    PreferenceLedger
	schedules ScheduleStore
	reveals   RevealStore
	coproc    fhe.Coprocessor
	events    EventPublisher
	now       func() time.Time
	logger    *slog.Logger
}

// NewPreferenceService wires dependencies for preference operations.
func NewPreferenceService(ledger PreferenceLedger, schedules ScheduleStore, reveals RevealStore, coproc fhe.Coprocessor, events EventPublisher, now func() time.Time, logger *slog.Logger) *PreferenceService {
	if now == nil {
		now = time.Now
	}
	return &PreferenceService{
		ledger:    ledger,
		schedules: schedules,
		reveals:   reveals,
		coproc:    coproc,
		events:    events,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *PreferenceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PreferenceService", operation, attrs...)
}

// SubmitPreference appends a new ledger record for the submitting employee
// and zero-initialises the personal and revealed schedules on first contact.
func (s *PreferenceService) SubmitPreference(ctx context.Context, params SubmitPreferenceParams) (record PreferenceRecord, err error) {
	if s == nil {
		err = fmt.Errorf("PreferenceService is nil")
		return
	}
	if s.ledger == nil {
		err = fmt.Errorf("preference ledger not configured")
		return
	}

	employee := strings.TrimSpace(params.Principal.UserID)
	logger := s.loggerWith(ctx, "SubmitPreference", "employee_id", employee)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "preference submission failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("record_id", record.ID).InfoContext(ctx, "preference submitted")
	}()

	if employee == "" {
		err = ErrUnauthorized
		return
	}
	if params.DaysInOffice.IsEmpty() || params.TeamDays.IsEmpty() || params.FocusDays.IsEmpty() || params.Flexibility.IsEmpty() {
		err = fmt.Errorf("%w: missing ciphertext handle", ErrMalformedPayload)
		return
	}

	// Schedule rows are created before the ledger grows so that a failed
	// initialization leaves no partial state behind.
	if err = s.ensureSchedules(ctx, employee); err != nil {
		return
	}

	record, err = s.ledger.AppendPreference(ctx, PreferenceRecord{
		Employee:     employee,
		DaysInOffice: params.DaysInOffice,
		TeamDays:     params.TeamDays,
		FocusDays:    params.FocusDays,
		Flexibility:  params.Flexibility,
		SubmittedAt:  s.now(),
	})
	if err != nil {
		return
	}

	publish(ctx, s.events, Event{Kind: EventSubmitted, RecordID: record.ID, Employee: employee, At: s.now()})
	return
}

// ensureSchedules creates the zero-valued personal and revealed rows for an
// employee if they do not exist yet.
func (s *PreferenceService) ensureSchedules(ctx context.Context, employee string) error {
	if s.schedules != nil {
		if _, err := s.schedules.GetPersonalSchedule(ctx, employee); err != nil {
			if !isNotFound(err) {
				return err
			}
			zero, zeroErr := s.encryptZero()
			if zeroErr != nil {
				return zeroErr
			}
			if err := s.schedules.PutPersonalSchedule(ctx, PersonalSchedule{
				Employee:   employee,
				OfficeDays: zero,
				CollabDays: zero,
				Assigned:   false,
				UpdatedAt:  s.now(),
			}); err != nil {
				return err
			}
		}
	}
	if s.reveals != nil {
		if err := s.reveals.InitRevealedSchedule(ctx, employee); err != nil {
			return err
		}
	}
	return nil
}

func (s *PreferenceService) encryptZero() (fhe.Handle, error) {
	if s.coproc == nil {
		return fhe.Handle{}, fmt.Errorf("coprocessor not configured")
	}
	return s.coproc.Encrypt(0)
}

// LatestPreference returns the most recent ledger entry for an employee.
// Readable by the employee themselves or an administrator.
func (s *PreferenceService) LatestPreference(ctx context.Context, principal Principal, employee string) (PreferenceRecord, error) {
	if s == nil {
		return PreferenceRecord{}, fmt.Errorf("PreferenceService is nil")
	}
	if s.ledger == nil {
		return PreferenceRecord{}, fmt.Errorf("preference ledger not configured")
	}
	if err := requireSelfOrAdmin(principal, employee); err != nil {
		return PreferenceRecord{}, err
	}

	record, err := s.ledger.LatestPreference(ctx, employee)
	if err != nil {
		if isNotFound(err) {
			return PreferenceRecord{}, ErrNoPreference
		}
		return PreferenceRecord{}, err
	}
	return record, nil
}

// PreferenceHistory returns every ledger entry for an employee in submission
// order. The full history is retained for audit; it is never rewritten.
func (s *PreferenceService) PreferenceHistory(ctx context.Context, principal Principal, employee string) ([]PreferenceRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("PreferenceService is nil")
	}
	if s.ledger == nil {
		return nil, fmt.Errorf("preference ledger not configured")
	}
	if err := requireSelfOrAdmin(principal, employee); err != nil {
		return nil, err
	}
	return s.ledger.PreferenceHistory(ctx, employee)
}

func requireSelfOrAdmin(principal Principal, employee string) error {
	if principal.IsAdmin {
		return nil
	}
	if principal.UserID != "" && principal.UserID == employee {
		return nil
	}
	return ErrUnauthorized
}

func requireAdmin(principal Principal) error {
	if principal.IsAdmin {
		return nil
	}
	return ErrUnauthorized
}
