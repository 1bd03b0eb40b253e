// Package store persists events and registrations in memory or PostgreSQL.
//
// Error Contract:
//   - Return sentinel.ErrNotFound when the requested record does not exist
//   - Return sentinel.ErrConflict when a status-guarded write finds another status
//   - Return sentinel.ErrAlreadyUsed when a unique value is taken
//   - Return wrapped errors with context for infrastructure failures
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"volunteerhub/internal/event/models"
	id "volunteerhub/pkg/domain"
	"volunteerhub/pkg/platform/sentinel"
)

// InMemory stores events and registrations in process memory for tests/dev.
// Records are copied on the way in and out so callers never share state.
type InMemory struct {
	mu            sync.RWMutex
	events        map[id.EventID]*models.Event
	codes         map[string]id.EventID
	registrations map[id.RegistrationID]*models.Registration
	byEvent       map[id.EventID][]id.RegistrationID
}

func NewInMemory() *InMemory {
	return &InMemory{
		events:        make(map[id.EventID]*models.Event),
		codes:         make(map[string]id.EventID),
		registrations: make(map[id.RegistrationID]*models.Registration),
		byEvent:       make(map[id.EventID][]id.RegistrationID),
	}
}

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

func (s *InMemory) CreateEvent(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; ok {
		return fmt.Errorf("event %s exists: %w", event.ID, sentinel.ErrAlreadyUsed)
	}
	if _, ok := s.codes[event.CheckInCode]; ok {
		return fmt.Errorf("check-in code in use: %w", sentinel.ErrAlreadyUsed)
	}
	s.events[event.ID] = cloneEvent(event)
	s.codes[event.CheckInCode] = event.ID
	return nil
}

func (s *InMemory) FindEvent(_ context.Context, eventID id.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[eventID]
	if !ok {
		return nil, fmt.Errorf("event not found: %w", sentinel.ErrNotFound)
	}
	return cloneEvent(event), nil
}

// FindEventForUpdate is FindEvent; the service's sharded transaction provides the lock.
func (s *InMemory) FindEventForUpdate(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	return s.FindEvent(ctx, eventID)
}

// UpdateEvent writes mutable event fields when the stored status equals expected.
// The check-in code and certificates flag are never written here.
func (s *InMemory) UpdateEvent(_ context.Context, event *models.Event, expected models.EventStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.events[event.ID]
	if !ok {
		return fmt.Errorf("event not found: %w", sentinel.ErrNotFound)
	}
	if stored.Status != expected {
		return fmt.Errorf("event is %s, expected %s: %w", stored.Status, expected, sentinel.ErrConflict)
	}
	updated := cloneEvent(event)
	updated.CheckInCode = stored.CheckInCode
	updated.CertificatesIssued = stored.CertificatesIssued
	s.events[event.ID] = updated
	return nil
}

func (s *InMemory) MarkCertificatesIssued(_ context.Context, eventID id.EventID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.events[eventID]
	if !ok {
		return false, fmt.Errorf("event not found: %w", sentinel.ErrNotFound)
	}
	if stored.Status != models.EventStatusCompleted || stored.SignatureURL == "" || stored.CertificatesIssued {
		return false, nil
	}
	stored.CertificatesIssued = true
	stored.UpdatedAt = at
	return true, nil
}

func (s *InMemory) ListEventsByOrganizer(_ context.Context, organizerID id.UserID) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Event
	for _, event := range s.events {
		if event.OrganizerID == organizerID {
			out = append(out, cloneEvent(event))
		}
	}
	sortEvents(out)
	return out, nil
}

// ListEventsByIDs returns the events that exist among ids. Unknown ids are skipped.
func (s *InMemory) ListEventsByIDs(_ context.Context, ids []id.EventID) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Event, 0, len(ids))
	for _, eventID := range ids {
		if event, ok := s.events[eventID]; ok {
			out = append(out, cloneEvent(event))
		}
	}
	sortEvents(out)
	return out, nil
}

// -----------------------------------------------------------------------------
// Registrations
// -----------------------------------------------------------------------------

// CreateRegistration inserts reg unless the volunteer already holds a
// non-cancelled registration for the event.
func (s *InMemory) CreateRegistration(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[reg.EventID]; !ok {
		return fmt.Errorf("event not found: %w", sentinel.ErrNotFound)
	}
	if s.activeLocked(reg.EventID, reg.VolunteerID) != nil {
		return fmt.Errorf("volunteer already registered: %w", sentinel.ErrAlreadyUsed)
	}
	s.registrations[reg.ID] = cloneRegistration(reg)
	s.byEvent[reg.EventID] = append(s.byEvent[reg.EventID], reg.ID)
	return nil
}

func (s *InMemory) FindRegistration(_ context.Context, regID id.RegistrationID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.registrations[regID]
	if !ok {
		return nil, fmt.Errorf("registration not found: %w", sentinel.ErrNotFound)
	}
	return cloneRegistration(reg), nil
}

func (s *InMemory) FindActiveRegistration(_ context.Context, eventID id.EventID, volunteerID id.UserID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if reg := s.activeLocked(eventID, volunteerID); reg != nil {
		return cloneRegistration(reg), nil
	}
	return nil, fmt.Errorf("registration not found: %w", sentinel.ErrNotFound)
}

func (s *InMemory) activeLocked(eventID id.EventID, volunteerID id.UserID) *models.Registration {
	for _, regID := range s.byEvent[eventID] {
		reg := s.registrations[regID]
		if reg.VolunteerID == volunteerID && reg.Status != models.RegistrationStatusCancelled {
			return reg
		}
	}
	return nil
}

func (s *InMemory) UpdateRegistration(_ context.Context, reg *models.Registration, expected models.RegistrationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.registrations[reg.ID]
	if !ok {
		return fmt.Errorf("registration not found: %w", sentinel.ErrNotFound)
	}
	if stored.Status != expected {
		return fmt.Errorf("registration is %s, expected %s: %w", stored.Status, expected, sentinel.ErrConflict)
	}
	s.registrations[reg.ID] = cloneRegistration(reg)
	return nil
}

func (s *InMemory) ListRegistrationsByEvent(_ context.Context, eventID id.EventID) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byEvent[eventID]
	out := make([]*models.Registration, 0, len(ids))
	for _, regID := range ids {
		out = append(out, cloneRegistration(s.registrations[regID]))
	}
	return out, nil
}

// ListRegistrationsByEvents returns the registrations of every event in ids.
func (s *InMemory) ListRegistrationsByEvents(_ context.Context, ids []id.EventID) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Registration
	for _, eventID := range ids {
		for _, regID := range s.byEvent[eventID] {
			out = append(out, cloneRegistration(s.registrations[regID]))
		}
	}
	return out, nil
}

func (s *InMemory) ListRegistrationsByVolunteer(_ context.Context, volunteerID id.UserID) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Registration
	for _, reg := range s.registrations {
		if reg.VolunteerID == volunteerID {
			out = append(out, cloneRegistration(reg))
		}
	}
	slices.SortFunc(out, func(a, b *models.Registration) int {
		return b.RegisteredAt.Compare(a.RegisteredAt)
	})
	return out, nil
}

func (s *InMemory) CountActiveRegistrations(_ context.Context, eventID id.EventID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, regID := range s.byEvent[eventID] {
		if s.registrations[regID].Status.HoldsSlot() {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) MarkCertificateEligible(_ context.Context, eventID id.EventID, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eligible := 0
	for _, regID := range s.byEvent[eventID] {
		reg := s.registrations[regID]
		reg.MarkCertificateEligible(at)
		if reg.CertificateEligible {
			eligible++
		}
	}
	return eligible, nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func cloneEvent(e *models.Event) *models.Event {
	c := *e
	return &c
}

func cloneRegistration(r *models.Registration) *models.Registration {
	c := *r
	if r.CheckedInAt != nil {
		at := *r.CheckedInAt
		c.CheckedInAt = &at
	}
	if r.CheckInLocation != nil {
		loc := *r.CheckInLocation
		c.CheckInLocation = &loc
	}
	return &c
}

// sortEvents orders by event date descending, then creation time descending.
func sortEvents(events []*models.Event) {
	slices.SortFunc(events, func(a, b *models.Event) int {
		if c := b.EventDate.Compare(a.EventDate); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
