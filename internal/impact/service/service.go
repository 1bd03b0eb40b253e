// Package service computes organizer analytics and volunteer impact from the
// event store. It never writes; results may be served from a short-lived cache.
package service

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	eventModels "volunteerhub/internal/event/models"
	"volunteerhub/internal/impact/calculator"
	"volunteerhub/internal/impact/metrics"
	"volunteerhub/internal/impact/models"
	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/requestcontext"
)

const (
	// batchSize bounds the number of IDs sent in one store query.
	batchSize = 100
	// maxConcurrentBatches bounds parallel store queries per computation.
	maxConcurrentBatches = 4

	kindOrg       = "org"
	kindVolunteer = "volunteer"
)

// Store is the read side of the event store.
type Store interface {
	ListEventsByOrganizer(ctx context.Context, organizerID id.UserID) ([]*eventModels.Event, error)
	ListEventsByIDs(ctx context.Context, ids []id.EventID) ([]*eventModels.Event, error)
	ListRegistrationsByEvents(ctx context.Context, ids []id.EventID) ([]*eventModels.Registration, error)
	ListRegistrationsByVolunteer(ctx context.Context, volunteerID id.UserID) ([]*eventModels.Registration, error)
}

// Cache holds computed results keyed by subject.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
}

type Service struct {
	store   Store
	cache   Cache
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time
	loc     *time.Location
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

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

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithLocation sets the zone used to decide whether an event has started.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		clock: time.Now,
		loc:   time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ComputeOrgAnalytics aggregates every event the organizer created.
func (s *Service) ComputeOrgAnalytics(ctx context.Context, organizerID id.UserID) (*models.OrgAnalytics, error) {
	if organizerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "organizer id is required")
	}
	return cached(ctx, s, kindOrg, organizerID.String(), func(ctx context.Context) (*models.OrgAnalytics, error) {
		return s.computeOrg(ctx, organizerID)
	})
}

// ComputeVolunteerImpact aggregates one volunteer's registrations and lists
// the upcoming events they hold a slot for.
func (s *Service) ComputeVolunteerImpact(ctx context.Context, volunteerID id.UserID) (*models.VolunteerImpact, error) {
	if volunteerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "volunteer id is required")
	}
	return cached(ctx, s, kindVolunteer, volunteerID.String(), func(ctx context.Context) (*models.VolunteerImpact, error) {
		return s.computeVolunteer(ctx, volunteerID)
	})
}

func (s *Service) computeOrg(ctx context.Context, organizerID id.UserID) (*models.OrgAnalytics, error) {
	defer s.metrics.ObserveCompute(kindOrg, time.Now())

	events, err := s.store.ListEventsByOrganizer(ctx, organizerID)
	if err != nil {
		return nil, storeErr(err)
	}
	byID := indexEvents(events)
	regs, err := s.registrationsFor(ctx, slices.Collect(maps.Keys(byID)))
	if err != nil {
		return nil, err
	}

	out := &models.OrgAnalytics{OrganizerID: organizerID, TotalEvents: len(events), ComputedAt: s.clock().UTC()}
	for _, e := range events {
		switch e.Status {
		case eventModels.EventStatusDraft:
			out.DraftEvents++
		case eventModels.EventStatusPublished:
			out.PublishedEvents++
		case eventModels.EventStatusCompleted:
			out.CompletedEvents++
		case eventModels.EventStatusCancelled:
			out.CancelledEvents++
		}
	}

	records := make([]calculator.Attendance, 0, len(regs))
	for _, r := range regs {
		event, ok := byID[r.EventID]
		if !ok {
			continue
		}
		if r.Status.HoldsSlot() {
			out.TotalRegistrations++
		}
		records = append(records, calculator.NewAttendance(event, r))
	}
	completed, missed := calculator.Tally(records)
	out.TotalHours = calculator.TotalHours(records)
	out.UniqueVolunteers = calculator.UniqueVolunteerCount(records)
	out.AttendanceRate = calculator.AttendanceRate(completed, missed)
	out.ImpactScore = calculator.ImpactScore(out.TotalHours, out.CompletedEvents)
	return out, nil
}

func (s *Service) computeVolunteer(ctx context.Context, volunteerID id.UserID) (*models.VolunteerImpact, error) {
	defer s.metrics.ObserveCompute(kindVolunteer, time.Now())

	regs, err := s.store.ListRegistrationsByVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, storeErr(err)
	}
	unique := make(map[id.EventID]struct{}, len(regs))
	for _, r := range regs {
		unique[r.EventID] = struct{}{}
	}
	events, err := s.eventsFor(ctx, slices.Collect(maps.Keys(unique)))
	if err != nil {
		return nil, err
	}
	byID := indexEvents(events)

	now := s.clock().UTC()
	out := &models.VolunteerImpact{VolunteerID: volunteerID, Upcoming: []models.UpcomingEvent{}, ComputedAt: now}
	records := make([]calculator.Attendance, 0, len(regs))
	for _, r := range regs {
		event, ok := byID[r.EventID]
		if !ok {
			continue
		}
		records = append(records, calculator.NewAttendance(event, r))
		if r.Status == eventModels.RegistrationStatusRegistered &&
			event.Status == eventModels.EventStatusPublished &&
			!event.HasStarted(now, s.loc) {
			out.Upcoming = append(out.Upcoming, models.UpcomingEvent{
				EventID:        event.ID,
				RegistrationID: r.ID,
				Title:          event.Title,
				StartsAt:       event.StartsAt(s.loc),
				EndsAt:         event.EndsAt(s.loc),
				Status:         r.Status,
			})
		}
	}
	slices.SortFunc(out.Upcoming, func(a, b models.UpcomingEvent) int {
		return a.StartsAt.Compare(b.StartsAt)
	})

	out.EventsCompleted, out.EventsMissed = calculator.Tally(records)
	out.TotalHours = calculator.TotalHours(records)
	out.AttendanceRate = calculator.AttendanceRate(out.EventsCompleted, out.EventsMissed)
	out.ImpactScore = calculator.ImpactScore(out.TotalHours, out.EventsCompleted)
	return out, nil
}

// registrationsFor loads registrations for ids in batches queried concurrently.
func (s *Service) registrationsFor(ctx context.Context, ids []id.EventID) ([]*eventModels.Registration, error) {
	return fanOut(ctx, ids, s.store.ListRegistrationsByEvents)
}

func (s *Service) eventsFor(ctx context.Context, ids []id.EventID) ([]*eventModels.Event, error) {
	return fanOut(ctx, ids, s.store.ListEventsByIDs)
}

func fanOut[T any](ctx context.Context, ids []id.EventID, load func(context.Context, []id.EventID) ([]T, error)) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	batches := slices.Collect(slices.Chunk(ids, batchSize))
	results := make([][]T, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBatches)
	for i, batch := range batches {
		g.Go(func() error {
			items, err := load(gctx, batch)
			if err != nil {
				return storeErr(err)
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(results...), nil
}

// cached serves kind/key from the cache, collapsing concurrent misses for the
// same key into one computation. Cache failures degrade to recomputing.
func cached[T any](ctx context.Context, s *Service, kind, key string, compute func(context.Context) (*T, error)) (*T, error) {
	cacheKey := kind + ":" + key
	if s.cache != nil {
		var hit T
		found, err := s.cache.Get(ctx, cacheKey, &hit)
		switch {
		case err != nil:
			s.metrics.IncrementCacheLookup(kind, "error")
			s.warn(ctx, "analytics cache read failed", cacheKey, err)
		case found:
			s.metrics.IncrementCacheLookup(kind, "hit")
			return &hit, nil
		default:
			s.metrics.IncrementCacheLookup(kind, "miss")
		}
	}

	v, err, shared := s.group.Do(cacheKey, func() (any, error) {
		detached := context.WithoutCancel(ctx)
		result, err := compute(detached)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(detached, cacheKey, result); err != nil {
				s.warn(ctx, "analytics cache write failed", cacheKey, err)
			}
		}
		return result, nil
	})
	if shared {
		s.metrics.IncrementShared()
	}
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

func (s *Service) warn(ctx context.Context, msg, key string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"key", key,
		"error", err)
}

func indexEvents(events []*eventModels.Event) map[id.EventID]*eventModels.Event {
	byID := make(map[id.EventID]*eventModels.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}
	return byID
}

func storeErr(err error) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "analytics computation timed out")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load analytics data")
}
