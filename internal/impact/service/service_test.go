package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	eventModels "volunteerhub/internal/event/models"
	"volunteerhub/internal/event/store"
	"volunteerhub/internal/geo"
	"volunteerhub/internal/impact/metrics"
	"volunteerhub/internal/impact/models"
	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
)

var created = time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

// mapCache is an in-process Cache; failing makes every call error.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	failing bool
}

func newMapCache() *mapCache { return &mapCache{entries: map[string][]byte{}} }

func (c *mapCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return false, errors.New("cache down")
	}
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *mapCache) Set(_ context.Context, key string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("cache down")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

// countingStore counts batched registration loads.
type countingStore struct {
	*store.InMemory
	batches atomic.Int32
}

func (c *countingStore) ListRegistrationsByEvents(ctx context.Context, ids []id.EventID) ([]*eventModels.Registration, error) {
	c.batches.Add(1)
	return c.InMemory.ListRegistrationsByEvents(ctx, ids)
}

type ImpactServiceSuite struct {
	suite.Suite
	ctx       context.Context
	store     *countingStore
	cache     *mapCache
	service   *Service
	now       time.Time
	organizer id.UserID
}

func TestImpactServiceSuite(t *testing.T) {
	suite.Run(t, new(ImpactServiceSuite))
}

func (s *ImpactServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = &countingStore{InMemory: store.NewInMemory()}
	s.cache = newMapCache()
	s.now = time.Date(2026, 10, 5, 12, 0, 0, 0, time.UTC)
	s.organizer = id.NewUserID()
	s.service = New(s.store,
		WithCache(s.cache),
		WithClock(func() time.Time { return s.now }),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *ImpactServiceSuite) seedEvent(day time.Time, start, end string, status eventModels.EventStatus) *eventModels.Event {
	event, err := eventModels.NewEvent(id.NewEventID(), eventModels.NewEventParams{
		OrganizerID:          s.organizer,
		Title:                "Tree planting",
		EventDate:            day,
		StartTime:            eventModels.MustParseTimeOfDay(start),
		EndTime:              eventModels.MustParseTimeOfDay(end),
		TotalSlots:           20,
		RegistrationDeadline: day.Add(-24 * time.Hour),
		Venue:                geo.Point{Lat: 40.4168, Lon: -3.7038},
	}, id.NewEventID().String()[:8], created, time.UTC)
	s.Require().NoError(err)
	event.Status = status
	s.Require().NoError(s.store.CreateEvent(s.ctx, event))
	return event
}

func (s *ImpactServiceSuite) seedRegistration(event *eventModels.Event, volunteer id.UserID, status eventModels.RegistrationStatus) {
	reg, err := eventModels.NewRegistration(id.NewRegistrationID(), event.ID, volunteer, created)
	s.Require().NoError(err)
	reg.Status = status
	s.Require().NoError(s.store.CreateRegistration(s.ctx, reg))
}

func day(d int) time.Time { return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC) }

func (s *ImpactServiceSuite) TestComputeOrgAnalytics() {
	alice, bob, carol, dave := id.NewUserID(), id.NewUserID(), id.NewUserID(), id.NewUserID()

	done := s.seedEvent(day(2), "09:00", "12:30", eventModels.EventStatusCompleted)
	s.seedRegistration(done, alice, eventModels.RegistrationStatusCompleted)
	s.seedRegistration(done, bob, eventModels.RegistrationStatusCompleted)
	s.seedRegistration(done, carol, eventModels.RegistrationStatusMissed)
	s.seedRegistration(done, dave, eventModels.RegistrationStatusCancelled)

	open := s.seedEvent(day(20), "14:00", "16:00", eventModels.EventStatusPublished)
	s.seedRegistration(open, dave, eventModels.RegistrationStatusRegistered)
	s.seedEvent(day(21), "10:00", "11:00", eventModels.EventStatusCancelled)
	s.seedEvent(day(22), "10:00", "11:00", eventModels.EventStatusDraft)

	got, err := s.service.ComputeOrgAnalytics(s.ctx, s.organizer)
	s.Require().NoError(err)
	s.Equal(4, got.TotalEvents)
	s.Equal(1, got.DraftEvents)
	s.Equal(1, got.PublishedEvents)
	s.Equal(1, got.CompletedEvents)
	s.Equal(1, got.CancelledEvents)
	s.Equal(4, got.TotalRegistrations)
	s.InDelta(7.0, got.TotalHours, 1e-9)
	s.Equal(2, got.UniqueVolunteers)
	s.InDelta(66.667, got.AttendanceRate, 0.001)
	s.Equal(120, got.ImpactScore)
}

func (s *ImpactServiceSuite) TestOrgWithoutEvents() {
	got, err := s.service.ComputeOrgAnalytics(s.ctx, id.NewUserID())
	s.Require().NoError(err)
	s.Zero(got.TotalEvents)
	s.Equal(100.0, got.AttendanceRate)
	s.Zero(got.ImpactScore)
}

func (s *ImpactServiceSuite) TestComputeVolunteerImpact() {
	volunteer := id.NewUserID()

	past := s.seedEvent(day(2), "09:00", "12:30", eventModels.EventStatusCompleted)
	s.seedRegistration(past, volunteer, eventModels.RegistrationStatusCompleted)
	skipped := s.seedEvent(day(3), "09:00", "10:00", eventModels.EventStatusCompleted)
	s.seedRegistration(skipped, volunteer, eventModels.RegistrationStatusMissed)

	later := s.seedEvent(day(25), "08:00", "09:00", eventModels.EventStatusPublished)
	s.seedRegistration(later, volunteer, eventModels.RegistrationStatusRegistered)
	sooner := s.seedEvent(day(12), "08:00", "09:00", eventModels.EventStatusPublished)
	s.seedRegistration(sooner, volunteer, eventModels.RegistrationStatusRegistered)
	called := s.seedEvent(day(13), "08:00", "09:00", eventModels.EventStatusCancelled)
	s.seedRegistration(called, volunteer, eventModels.RegistrationStatusCancelled)

	got, err := s.service.ComputeVolunteerImpact(s.ctx, volunteer)
	s.Require().NoError(err)
	s.InDelta(3.5, got.TotalHours, 1e-9)
	s.Equal(1, got.EventsCompleted)
	s.Equal(1, got.EventsMissed)
	s.Equal(50.0, got.AttendanceRate)
	s.Equal(85, got.ImpactScore)

	s.Require().Len(got.Upcoming, 2)
	s.Equal(sooner.ID, got.Upcoming[0].EventID)
	s.Equal(later.ID, got.Upcoming[1].EventID)
	s.Equal(time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC), got.Upcoming[0].StartsAt)
}

func (s *ImpactServiceSuite) TestStartedEventIsNotUpcoming() {
	volunteer := id.NewUserID()
	today := s.seedEvent(day(5), "11:00", "15:00", eventModels.EventStatusPublished)
	s.seedRegistration(today, volunteer, eventModels.RegistrationStatusRegistered)

	got, err := s.service.ComputeVolunteerImpact(s.ctx, volunteer)
	s.Require().NoError(err)
	s.Empty(got.Upcoming)
}

func (s *ImpactServiceSuite) TestResultsAreCached() {
	volunteer := id.NewUserID()
	past := s.seedEvent(day(2), "09:00", "12:30", eventModels.EventStatusCompleted)
	s.seedRegistration(past, volunteer, eventModels.RegistrationStatusCompleted)

	first, err := s.service.ComputeVolunteerImpact(s.ctx, volunteer)
	s.Require().NoError(err)

	more := s.seedEvent(day(3), "09:00", "10:00", eventModels.EventStatusCompleted)
	s.seedRegistration(more, volunteer, eventModels.RegistrationStatusCompleted)

	second, err := s.service.ComputeVolunteerImpact(s.ctx, volunteer)
	s.Require().NoError(err)
	s.Equal(first.TotalHours, second.TotalHours, "served from cache until the entry expires")

	s.cache.entries = map[string][]byte{}
	third, err := s.service.ComputeVolunteerImpact(s.ctx, volunteer)
	s.Require().NoError(err)
	s.InDelta(4.5, third.TotalHours, 1e-9)
}

func (s *ImpactServiceSuite) TestCacheFailureFallsBackToStore() {
	s.cache.failing = true
	done := s.seedEvent(day(2), "09:00", "12:30", eventModels.EventStatusCompleted)
	s.seedRegistration(done, id.NewUserID(), eventModels.RegistrationStatusCompleted)

	got, err := s.service.ComputeOrgAnalytics(s.ctx, s.organizer)
	s.Require().NoError(err)
	s.InDelta(3.5, got.TotalHours, 1e-9)
}

func (s *ImpactServiceSuite) TestRegistrationsLoadInBatches() {
	for i := range 2*batchSize + 1 {
		s.seedEvent(day(1+i%28), "09:00", "10:00", eventModels.EventStatusCompleted)
	}
	got, err := s.service.ComputeOrgAnalytics(s.ctx, s.organizer)
	s.Require().NoError(err)
	s.Equal(2*batchSize+1, got.TotalEvents)
	s.Equal(int32(3), s.store.batches.Load())
}

func (s *ImpactServiceSuite) TestConcurrentCallersAgree() {
	done := s.seedEvent(day(2), "09:00", "12:30", eventModels.EventStatusCompleted)
	s.seedRegistration(done, id.NewUserID(), eventModels.RegistrationStatusCompleted)

	var wg sync.WaitGroup
	results := make([]*models.OrgAnalytics, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.service.ComputeOrgAnalytics(s.ctx, s.organizer)
			if err == nil {
				results[i] = got
			}
		}()
	}
	wg.Wait()
	for _, got := range results {
		s.Require().NotNil(got)
		s.Equal(85, got.ImpactScore)
	}
}

func (s *ImpactServiceSuite) TestNilIDsAreRejected() {
	_, err := s.service.ComputeOrgAnalytics(s.ctx, id.UserID{})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	_, err = s.service.ComputeVolunteerImpact(s.ctx, id.UserID{})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
