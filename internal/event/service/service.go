// Package service orchestrates the event lifecycle, registrations, check-in
// verification and certificate issuance.
//
// Every state-changing operation runs inside StoreTx.RunInTx keyed by the
// event it touches, so the read-check-write sequences below observe a single
// consistent view of that event and its registrations.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"volunteerhub/internal/event/metrics"
	"volunteerhub/internal/event/models"
	"volunteerhub/internal/geo"
	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/platform/sentinel"
	"volunteerhub/pkg/requestcontext"
)

// Store persists events and registrations.
//
// Writes that guard on a prior status return sentinel.ErrConflict when the
// stored row no longer carries that status. Lookups return sentinel.ErrNotFound.
type Store interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	FindEvent(ctx context.Context, eventID id.EventID) (*models.Event, error)
	// FindEventForUpdate loads the event and, where the backend supports it,
	// locks the row until the surrounding transaction ends.
	FindEventForUpdate(ctx context.Context, eventID id.EventID) (*models.Event, error)
	UpdateEvent(ctx context.Context, event *models.Event, expected models.EventStatus) error
	// MarkCertificatesIssued flips certificates_issued false -> true for a
	// completed, signed event. Returns false when another caller already did.
	MarkCertificatesIssued(ctx context.Context, eventID id.EventID, at time.Time) (bool, error)
	ListEventsByOrganizer(ctx context.Context, organizerID id.UserID) ([]*models.Event, error)

	CreateRegistration(ctx context.Context, reg *models.Registration) error
	FindRegistration(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	FindActiveRegistration(ctx context.Context, eventID id.EventID, volunteerID id.UserID) (*models.Registration, error)
	UpdateRegistration(ctx context.Context, reg *models.Registration, expected models.RegistrationStatus) error
	ListRegistrationsByEvent(ctx context.Context, eventID id.EventID) ([]*models.Registration, error)
	ListRegistrationsByVolunteer(ctx context.Context, volunteerID id.UserID) ([]*models.Registration, error)
	CountActiveRegistrations(ctx context.Context, eventID id.EventID) (int, error)
	// MarkCertificateEligible flags every completed registration of the event
	// and returns how many registrations are eligible afterwards.
	MarkCertificateEligible(ctx context.Context, eventID id.EventID, at time.Time) (int, error)
}

const (
	auditEventCreated          = "event_created"
	auditEventPublished        = "event_published"
	auditEventCancelled        = "event_cancelled"
	auditEventCompleted        = "event_completed"
	auditSignatureRecorded     = "event_signature_recorded"
	auditCertificatesIssued    = "certificates_issued"
	auditRegistrationCreated   = "registration_created"
	auditRegistrationCancelled = "registration_cancelled"
	auditCheckInRecorded       = "check_in_recorded"
	auditCheckInRejected       = "check_in_rejected"
	auditCheckInUndone         = "check_in_undone"
)

// AttemptGuard throttles repeated wrong check-in codes per volunteer and event.
type AttemptGuard interface {
	Check(ctx context.Context, eventID id.EventID, volunteerID id.UserID) error
	RecordFailure(ctx context.Context, eventID id.EventID, volunteerID id.UserID) error
	Clear(ctx context.Context, eventID id.EventID, volunteerID id.UserID) error
}

// Service implements the event lifecycle and attendance verification.
type Service struct {
	store   Store
	tx      StoreTx
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	clock   func() time.Time
	loc     *time.Location
	fence   geo.Fence
	codes   CodeGenerator
	guard   AttemptGuard
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTx replaces the default in-memory transaction with a database-backed one.
func WithTx(tx StoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// WithClock overrides the time source. Tests use it to move across event start.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithLocation sets the zone in which event dates and start times are interpreted.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithFence(fence geo.Fence) Option {
	return func(s *Service) {
		s.fence = fence
	}
}

func WithCodeGenerator(gen CodeGenerator) Option {
	return func(s *Service) {
		s.codes = gen
	}
}

// WithAttemptGuard enables lockout after repeated wrong check-in codes.
func WithAttemptGuard(guard AttemptGuard) Option {
	return func(s *Service) {
		s.guard = guard
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service. Without WithTx the service serializes writes per
// event with in-process sharded locks, which is correct for the memory store only.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tracer: otel.Tracer("volunteerhub/internal/event/service"),
		clock:  time.Now,
		loc:    time.UTC,
		fence:  geo.DefaultFence(),
		codes:  GenerateCheckInCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = NewShardedTx(store)
	}
	return s
}

// Location is the zone used to resolve event start instants.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// loadOwnedEvent loads the event and checks that organizer created it.
func loadOwnedEvent(ctx context.Context, store Store, eventID id.EventID, organizer id.UserID, forUpdate bool) (*models.Event, error) {
	var (
		event *models.Event
		err   error
	)
	if forUpdate {
		event, err = store.FindEventForUpdate(ctx, eventID)
	} else {
		event, err = store.FindEvent(ctx, eventID)
	}
	if err != nil {
		return nil, storeErr(err, "event")
	}
	if !event.IsOwnedBy(organizer) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the event organizer may perform this action")
	}
	return event, nil
}

// storeErr translates store sentinels into domain errors. Domain errors pass through.
func storeErr(err error, entity string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, entity+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, entity+" was modified concurrently")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "operation timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access "+entity)
	}
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
