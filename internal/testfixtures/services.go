package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/college-admin/internal/application"
	"github.com/example/college-admin/internal/push"
	"github.com/example/college-admin/internal/recurrence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Location    *time.Location
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Location:    time.UTC,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Location == nil {
		factory.Location = time.UTC
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLocation sets the campus time zone used for slot expansion and dates.
func WithLocation(loc *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Location = loc
	}
}

// ScheduleServiceDeps captures dependencies for constructing a schedule service.
type ScheduleServiceDeps struct {
	Courses     application.CourseCatalog
	Enrollments application.EnrollmentReader
	Events      application.PersonalEventRepository
	Tasks       application.TaskReader
	Cache       *application.SlotCache
	Config      application.ScheduleConfig
	Logger      *slog.Logger
}

// NewScheduleService builds a schedule service whose engine runs in the
// factory location.
func (f *ServiceFactory) NewScheduleService(deps ScheduleServiceDeps) *application.ScheduleService {
	return application.NewScheduleServiceWithLogger(
		deps.Courses,
		deps.Enrollments,
		deps.Events,
		deps.Tasks,
		recurrence.NewEngine(f.Location),
		deps.Cache,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		deps.Config,
		deps.Logger,
	)
}

// NotificationServiceDeps captures dependencies for constructing a
// notification service. A nil Sender disables push.
type NotificationServiceDeps struct {
	Notifications application.NotificationRepository
	Tokens        application.PushTokenStore
	Sender        push.Sender
	Courses       application.CourseCatalog
	Enrollments   application.EnrollmentReader
	Config        application.NotificationConfig
	Logger        *slog.Logger
}

// NewNotificationService builds a notification service. The audience resolver
// is derived from Enrollments when present.
func (f *ServiceFactory) NewNotificationService(deps NotificationServiceDeps) *application.NotificationService {
	var audience *application.AudienceResolver
	if deps.Enrollments != nil {
		audience = application.NewAudienceResolverWithLogger(deps.Enrollments, deps.Logger)
	}
	cfg := deps.Config
	if cfg.Location == nil {
		cfg.Location = f.Location
	}
	return application.NewNotificationServiceWithLogger(
		deps.Notifications,
		deps.Tokens,
		deps.Sender,
		deps.Courses,
		audience,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		cfg,
		deps.Logger,
	)
}

// NewEnrollmentService builds an enrollment service.
func (f *ServiceFactory) NewEnrollmentService(courses application.CourseCatalog, enrollments application.EnrollmentRepository, logger *slog.Logger) *application.EnrollmentService {
	return application.NewEnrollmentServiceWithLogger(courses, enrollments, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), logger)
}

// NewPushTokenService builds a push token service.
func (f *ServiceFactory) NewPushTokenService(tokens application.PushTokenStore, logger *slog.Logger) *application.PushTokenService {
	return application.NewPushTokenServiceWithLogger(tokens, f.Clock.NowFunc(), logger)
}
