package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"volunteerhub/internal/broadcast/metrics"
	"volunteerhub/internal/broadcast/models"
	"volunteerhub/internal/broadcast/store"
	eventModels "volunteerhub/internal/event/models"
	eventStore "volunteerhub/internal/event/store"
	"volunteerhub/internal/geo"
	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/platform/circuit"
)

type recordingPublisher struct {
	mu        sync.Mutex
	published []*models.Broadcast
	attempts  int
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, b *models.Broadcast) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, b)
	return nil
}

// countingStore counts ListPage calls to observe laziness.
type countingStore struct {
	*store.InMemory
	pages int
}

func (c *countingStore) ListPage(ctx context.Context, eventID id.EventID, after models.Cursor, limit int) ([]*models.Broadcast, error) {
	c.pages++
	return c.InMemory.ListPage(ctx, eventID, after, limit)
}

type BroadcastServiceSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	events    *eventStore.InMemory
	store     *countingStore
	publisher *recordingPublisher
	service   *Service
	organizer id.UserID
}

func TestBroadcastServiceSuite(t *testing.T) {
	suite.Run(t, new(BroadcastServiceSuite))
}

func (s *BroadcastServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	s.events = eventStore.NewInMemory()
	s.store = &countingStore{InMemory: store.NewInMemory()}
	s.publisher = &recordingPublisher{}
	s.organizer = id.NewUserID()
	s.service = New(s.store, s.events,
		WithClock(func() time.Time {
			s.now = s.now.Add(time.Second)
			return s.now
		}),
		WithPublisher(s.publisher),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
		WithPageSize(3),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *BroadcastServiceSuite) event(status eventModels.EventStatus) *eventModels.Event {
	day := time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC)
	event, err := eventModels.NewEvent(id.NewEventID(), eventModels.NewEventParams{
		OrganizerID:          s.organizer,
		Title:                "Food bank shift",
		EventDate:            day,
		StartTime:            eventModels.MustParseTimeOfDay("10:00"),
		EndTime:              eventModels.MustParseTimeOfDay("14:00"),
		TotalSlots:           4,
		RegistrationDeadline: day.Add(8 * time.Hour),
		Venue:                geo.Point{Lat: 48.8566, Lon: 2.3522},
	}, id.NewEventID().String()[:8], s.now, time.UTC)
	s.Require().NoError(err)
	event.Status = status
	s.Require().NoError(s.events.CreateEvent(s.ctx, event))
	return event
}

func (s *BroadcastServiceSuite) collect(viewer id.UserID, eventID id.EventID) ([]*models.Broadcast, error) {
	var out []*models.Broadcast
	for b, err := range s.service.List(s.ctx, viewer, eventID) {
		if err != nil {
			return out, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *BroadcastServiceSuite) TestCreate() {
	event := s.event(eventModels.EventStatusPublished)

	s.Run("stores and publishes", func() {
		b, err := s.service.Create(s.ctx, s.organizer, event.ID, "  Meet at gate B  ")
		s.Require().NoError(err)
		s.Equal("Meet at gate B", b.Message)
		s.Equal(s.organizer, b.AuthorID)
		s.Require().Len(s.publisher.published, 1)
		s.Equal(b.ID, s.publisher.published[0].ID)
	})

	s.Run("publish failure does not fail create", func() {
		s.publisher.err = errors.New("broker down")
		defer func() { s.publisher.err = nil }()
		b, err := s.service.Create(s.ctx, s.organizer, event.ID, "Parking is full")
		s.Require().NoError(err)
		s.Len(s.publisher.published, 1)

		listed, err := s.collect(s.organizer, event.ID)
		s.Require().NoError(err)
		s.Equal(b.ID, listed[0].ID)
	})

	s.Run("cancelled event is invalid state", func() {
		cancelled := s.event(eventModels.EventStatusCancelled)
		_, err := s.service.Create(s.ctx, s.organizer, cancelled.ID, "hello")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("completed event still accepts broadcasts", func() {
		completed := s.event(eventModels.EventStatusCompleted)
		_, err := s.service.Create(s.ctx, s.organizer, completed.ID, "Thanks everyone")
		s.NoError(err)
	})

	s.Run("other organizer is forbidden", func() {
		_, err := s.service.Create(s.ctx, id.NewUserID(), event.ID, "hello")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown event is not found", func() {
		_, err := s.service.Create(s.ctx, s.organizer, id.NewEventID(), "hello")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("empty message is a validation error", func() {
		_, err := s.service.Create(s.ctx, s.organizer, event.ID, " \t ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *BroadcastServiceSuite) TestPublishCircuit() {
	event := s.event(eventModels.EventStatusPublished)
	breakerNow := s.now
	breaker := circuit.New("broadcast-publisher",
		circuit.WithFailureThreshold(2),
		circuit.WithSuccessThreshold(1),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return breakerNow }))
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := New(s.store, s.events, WithPublisher(pub), WithBreaker(breaker))

	for range 2 {
		_, err := svc.Create(s.ctx, s.organizer, event.ID, "shift moved")
		s.Require().NoError(err)
	}
	s.True(breaker.IsOpen())
	s.Equal(2, pub.attempts)

	_, err := svc.Create(s.ctx, s.organizer, event.ID, "still stored")
	s.Require().NoError(err)
	s.Equal(2, pub.attempts, "open circuit skips the broker")

	pub.err = nil
	breakerNow = breakerNow.Add(time.Minute)
	_, err = svc.Create(s.ctx, s.organizer, event.ID, "probe")
	s.Require().NoError(err)
	s.Equal(3, pub.attempts)
	s.False(breaker.IsOpen())

	listed, err := s.collect(s.organizer, event.ID)
	s.Require().NoError(err)
	s.Len(listed, 4)
}

func (s *BroadcastServiceSuite) TestDelete() {
	event := s.event(eventModels.EventStatusPublished)
	keep, err := s.service.Create(s.ctx, s.organizer, event.ID, "keep")
	s.Require().NoError(err)
	drop, err := s.service.Create(s.ctx, s.organizer, event.ID, "drop")
	s.Require().NoError(err)

	s.Require().NoError(s.service.Delete(s.ctx, s.organizer, event.ID, drop.ID))

	listed, err := s.collect(s.organizer, event.ID)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(keep.ID, listed[0].ID)

	err = s.service.Delete(s.ctx, s.organizer, event.ID, drop.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = s.service.Delete(s.ctx, id.NewUserID(), event.ID, keep.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *BroadcastServiceSuite) TestListNewestFirstAcrossPages() {
	event := s.event(eventModels.EventStatusPublished)
	for i := range 7 {
		_, err := s.service.Create(s.ctx, s.organizer, event.ID, fmt.Sprintf("update %d", i))
		s.Require().NoError(err)
	}

	listed, err := s.collect(id.NewUserID(), event.ID)
	s.Require().NoError(err)
	s.Require().Len(listed, 7)
	for i, b := range listed {
		s.Equal(fmt.Sprintf("update %d", 6-i), b.Message)
	}
}

func (s *BroadcastServiceSuite) TestListIsLazyAndRestartable() {
	event := s.event(eventModels.EventStatusPublished)
	for i := range 7 {
		_, err := s.service.Create(s.ctx, s.organizer, event.ID, fmt.Sprintf("update %d", i))
		s.Require().NoError(err)
	}

	seq := s.service.List(s.ctx, s.organizer, event.ID)
	s.Zero(s.store.pages, "building the sequence must not touch the store")

	taken := 0
	for b, err := range seq {
		s.Require().NoError(err)
		s.Equal("update 6", b.Message)
		taken++
		break
	}
	s.Equal(1, taken)
	s.Equal(1, s.store.pages)

	var again []string
	for b, err := range seq {
		s.Require().NoError(err)
		again = append(again, b.Message)
	}
	s.Len(again, 7)
	s.Equal("update 6", again[0])
	s.Equal(1+3, s.store.pages)
}

func (s *BroadcastServiceSuite) TestListVisibility() {
	draft := s.event(eventModels.EventStatusDraft)

	_, err := s.collect(id.NewUserID(), draft.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	listed, err := s.collect(s.organizer, draft.ID)
	s.NoError(err)
	s.Empty(listed)

	_, err = s.collect(s.organizer, id.NewEventID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
