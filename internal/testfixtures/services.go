package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/confidential-scheduler/internal/application"
	"github.com/example/confidential-scheduler/internal/fhe"
)

// ServiceFactory assists tests with constructing application services against
// a deterministic clock and co-processor.
type ServiceFactory struct {
	Clock *Clock
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock: NewClock(time.Time{}),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// PreferenceServiceDeps captures dependencies for constructing a preference
// service.
type PreferenceServiceDeps struct {
	Ledger      application.PreferenceLedger
	Schedules   application.ScheduleStore
	Reveals     application.RevealStore
	Coprocessor fhe.Coprocessor
	Events      application.EventPublisher
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewPreferenceService builds a preference service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewPreferenceService(deps PreferenceServiceDeps) *application.PreferenceService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewPreferenceService(
		deps.Ledger,
		deps.Schedules,
		deps.Reveals,
		deps.Coprocessor,
		deps.Events,
		now,
		deps.Logger,
	)
}

// DirectoryServiceDeps captures dependencies for constructing a directory
// service.
type DirectoryServiceDeps struct {
	Directory application.MembershipDirectory
	Logger    *slog.Logger
}

// NewDirectoryService builds a directory service using the supplied
// dependencies.
func (f *ServiceFactory) NewDirectoryService(deps DirectoryServiceDeps) *application.DirectoryService {
	return application.NewDirectoryService(deps.Directory, deps.Logger)
}

// OptimizerServiceDeps captures dependencies for constructing an optimizer
// service.
type OptimizerServiceDeps struct {
	Ledger      application.PreferenceLedger
	Directory   application.MembershipDirectory
	Schedules   application.ScheduleStore
	Coprocessor fhe.Coprocessor
	Events      application.EventPublisher
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewOptimizerService builds an optimizer service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewOptimizerService(deps OptimizerServiceDeps) *application.OptimizerService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewOptimizerService(
		deps.Ledger,
		deps.Directory,
		deps.Schedules,
		deps.Coprocessor,
		deps.Events,
		now,
		deps.Logger,
	)
}

// MetricsServiceDeps captures dependencies for constructing a metrics service.
type MetricsServiceDeps struct {
	Ledger      application.PreferenceLedger
	Directory   application.MembershipDirectory
	Schedules   application.ScheduleStore
	Coprocessor fhe.Coprocessor
	Logger      *slog.Logger
}

// NewMetricsService builds a metrics service using the supplied dependencies.
func (f *ServiceFactory) NewMetricsService(deps MetricsServiceDeps) *application.MetricsService {
	return application.NewMetricsService(
		deps.Ledger,
		deps.Directory,
		deps.Schedules,
		deps.Coprocessor,
		deps.Logger,
	)
}

// RevealServiceDeps captures dependencies for constructing a reveal service.
type RevealServiceDeps struct {
	Schedules application.ScheduleStore
	Reveals   application.RevealStore
	Decryptor fhe.Decryptor
	Verifier  fhe.ProofVerifier
	Events    application.EventPublisher
	Now       func() time.Time
	Logger    *slog.Logger
}

// NewRevealService builds a reveal service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewRevealService(deps RevealServiceDeps) *application.RevealService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewRevealService(
		deps.Schedules,
		deps.Reveals,
		deps.Decryptor,
		deps.Verifier,
		deps.Events,
		now,
		deps.Logger,
	)
}
