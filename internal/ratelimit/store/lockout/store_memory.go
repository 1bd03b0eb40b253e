// Package lockout persists check-in attempt lockouts. Stores are pure I/O;
// thresholds and durations belong to the service.
package lockout

import (
	"context"
	"sync"
	"time"

	"volunteerhub/internal/ratelimit/models"
)

// InMemoryLockoutStore keeps lockout records in process memory.
type InMemoryLockoutStore struct {
	mu      sync.Mutex
	records map[string]*models.Lockout
}

func NewInMemory() *InMemoryLockoutStore {
	return &InMemoryLockoutStore{records: make(map[string]*models.Lockout)}
}

// Get returns nil without error when no record exists.
func (s *InMemoryLockoutStore) Get(_ context.Context, key string) (*models.Lockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[key]; ok {
		return clone(r), nil
	}
	return nil, nil
}

// RecordFailure increments the failure count, restarting the window when it
// began at or before cutoff.
func (s *InMemoryLockoutStore) RecordFailure(_ context.Context, key string, now, cutoff time.Time) (*models.Lockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[key]
	if !ok {
		created, err := models.NewLockout(key, now)
		if err != nil {
			return nil, err
		}
		s.records[key] = created
		return clone(created), nil
	}
	if !r.WindowStart.After(cutoff) {
		r.FailureCount = 1
		r.WindowStart = now
	} else {
		r.FailureCount++
	}
	r.LastFailureAt = now
	return clone(r), nil
}

func (s *InMemoryLockoutStore) Update(_ context.Context, record *models.Lockout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Key] = clone(record)
	return nil
}

func (s *InMemoryLockoutStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func clone(r *models.Lockout) *models.Lockout {
	c := *r
	if r.LockedUntil != nil {
		until := *r.LockedUntil
		c.LockedUntil = &until
	}
	return &c
}

// DeleteExpired removes records whose window and lock both ended before cutoff.
func (s *InMemoryLockoutStore) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, r := range s.records {
		if r.LastFailureAt.Before(cutoff) && (r.LockedUntil == nil || r.LockedUntil.Before(cutoff)) {
			delete(s.records, key)
			n++
		}
	}
	return n, nil
}
