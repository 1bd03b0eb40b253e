// Package service manages the per-event broadcast log: organizers append and
// remove announcements, anyone who can see the event reads them newest first.
package service

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"volunteerhub/internal/broadcast/metrics"
	"volunteerhub/internal/broadcast/models"
	eventModels "volunteerhub/internal/event/models"
	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/platform/circuit"
	"volunteerhub/pkg/platform/sentinel"
	"volunteerhub/pkg/requestcontext"
)

// DefaultPageSize is how many entries List fetches from the store at a time.
const DefaultPageSize = 50

// Store persists broadcasts.
type Store interface {
	Create(ctx context.Context, b *models.Broadcast) error
	Delete(ctx context.Context, eventID id.EventID, broadcastID id.BroadcastID) error
	// ListPage returns up to limit entries strictly older than after, newest first.
	ListPage(ctx context.Context, eventID id.EventID, after models.Cursor, limit int) ([]*models.Broadcast, error)
}

// EventReader loads the event a broadcast belongs to.
type EventReader interface {
	FindEvent(ctx context.Context, eventID id.EventID) (*eventModels.Event, error)
}

// Publisher hands stored broadcasts to the notification delivery system.
type Publisher interface {
	Publish(ctx context.Context, b *models.Broadcast) error
}

const (
	auditBroadcastCreated = "broadcast_created"
	auditBroadcastDeleted = "broadcast_deleted"
)

type Service struct {
	store     Store
	events    EventReader
	publisher Publisher
	breaker   *circuit.Breaker
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	clock     func() time.Time
	pageSize  int
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

// WithPublisher enables fan-out of new broadcasts. Without it broadcasts are
// only stored.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithBreaker stops publish attempts while the broker keeps failing.
func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		s.breaker = b
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(store Store, events EventReader, opts ...Option) *Service {
	s := &Service{
		store:    store,
		events:   events,
		tracer:   otel.Tracer("volunteerhub/internal/broadcast/service"),
		clock:    time.Now,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create appends a broadcast to the event's log and publishes it.
// Cancelled events accept no new broadcasts. Publication is best effort.
func (s *Service) Create(ctx context.Context, organizer id.UserID, eventID id.EventID, message string) (b *models.Broadcast, err error) {
	ctx, span := s.tracer.Start(ctx, "broadcast.Create", trace.WithAttributes(attribute.String("event_id", eventID.String())))
	defer func() { endSpan(span, err) }()

	event, err := s.ownedEvent(ctx, organizer, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status == eventModels.EventStatusCancelled {
		return nil, dErrors.New(dErrors.CodeInvalidState, "cannot broadcast to a cancelled event")
	}

	// Postgres keeps microseconds; truncating keeps cursors identical across stores.
	now := s.clock().UTC().Truncate(time.Microsecond)
	b, err = models.NewBroadcast(id.NewBroadcastID(), eventID, organizer, message, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, storeErr(err)
	}
	s.metrics.IncrementCreated()
	s.logAudit(ctx, auditBroadcastCreated,
		"event_id", eventID.String(),
		"broadcast_id", b.ID.String(),
		"organizer_id", organizer.String())

	s.publish(ctx, b)
	return b, nil
}

func (s *Service) publish(ctx context.Context, b *models.Broadcast) {
	if s.publisher == nil {
		return
	}
	if s.breaker != nil && !s.breaker.Allow() {
		s.metrics.IncrementPublished("skipped")
		return
	}
	if err := s.publisher.Publish(ctx, b); err != nil {
		s.metrics.IncrementPublished("error")
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to publish broadcast",
				"request_id", requestcontext.RequestID(ctx),
				"event_id", b.EventID.String(),
				"broadcast_id", b.ID.String(),
				"error", err)
		}
		if s.breaker != nil {
			if _, change := s.breaker.RecordFailure(); change.Opened && s.logger != nil {
				s.logger.WarnContext(ctx, "broadcast publishing suspended", "circuit", s.breaker.Name())
			}
		}
		return
	}
	s.metrics.IncrementPublished("ok")
	if s.breaker != nil {
		if _, change := s.breaker.RecordSuccess(); change.Closed && s.logger != nil {
			s.logger.InfoContext(ctx, "broadcast publishing resumed", "circuit", s.breaker.Name())
		}
	}
}

// Delete removes one broadcast from the event's log.
func (s *Service) Delete(ctx context.Context, organizer id.UserID, eventID id.EventID, broadcastID id.BroadcastID) (err error) {
	ctx, span := s.tracer.Start(ctx, "broadcast.Delete", trace.WithAttributes(
		attribute.String("event_id", eventID.String()),
		attribute.String("broadcast_id", broadcastID.String())))
	defer func() { endSpan(span, err) }()

	if _, err := s.ownedEvent(ctx, organizer, eventID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, eventID, broadcastID); err != nil {
		return storeErr(err)
	}
	s.metrics.IncrementDeleted()
	s.logAudit(ctx, auditBroadcastDeleted,
		"event_id", eventID.String(),
		"broadcast_id", broadcastID.String(),
		"organizer_id", organizer.String())
	return nil
}

// List returns the event's broadcasts newest first. The sequence fetches pages
// from the store only as the caller consumes it, and every range over it starts
// again from the newest entry. A failure is yielded once as the final element.
//
// Draft events are visible only to their organizer.
func (s *Service) List(ctx context.Context, viewer id.UserID, eventID id.EventID) iter.Seq2[*models.Broadcast, error] {
	return func(yield func(*models.Broadcast, error) bool) {
		event, err := s.events.FindEvent(ctx, eventID)
		if err != nil {
			yield(nil, eventErr(err))
			return
		}
		if event.Status == eventModels.EventStatusDraft && !event.IsOwnedBy(viewer) {
			yield(nil, dErrors.New(dErrors.CodeNotFound, "event not found"))
			return
		}

		var cursor models.Cursor
		for {
			page, err := s.store.ListPage(ctx, eventID, cursor, s.pageSize)
			if err != nil {
				yield(nil, storeErr(err))
				return
			}
			s.metrics.IncrementPages()
			for _, b := range page {
				if !yield(b, nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			cursor = models.After(page[len(page)-1])
		}
	}
}

func (s *Service) ownedEvent(ctx context.Context, organizer id.UserID, eventID id.EventID) (*eventModels.Event, error) {
	event, err := s.events.FindEvent(ctx, eventID)
	if err != nil {
		return nil, eventErr(err)
	}
	if !event.IsOwnedBy(organizer) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the event organizer may manage broadcasts")
	}
	return event, nil
}

func eventErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "event not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
}

func storeErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "broadcast not found")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "operation timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access broadcasts")
	}
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
