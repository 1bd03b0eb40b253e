// Package store persists the broadcast log in memory or PostgreSQL.
//
// Error Contract:
//   - Return sentinel.ErrNotFound when deleting an entry that does not exist
//   - Return wrapped errors with context for infrastructure failures
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"volunteerhub/internal/broadcast/models"
	id "volunteerhub/pkg/domain"
	"volunteerhub/pkg/platform/sentinel"
)

// InMemory keeps each event's broadcasts sorted newest first.
type InMemory struct {
	mu      sync.RWMutex
	byEvent map[id.EventID][]*models.Broadcast
}

func NewInMemory() *InMemory {
	return &InMemory{byEvent: make(map[id.EventID][]*models.Broadcast)}
}

func (s *InMemory) Create(_ context.Context, b *models.Broadcast) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.byEvent[b.EventID]
	for _, existing := range entries {
		if existing.ID == b.ID {
			return fmt.Errorf("broadcast %s exists: %w", b.ID, sentinel.ErrAlreadyUsed)
		}
	}
	stored := *b
	pos, _ := slices.BinarySearchFunc(entries, &stored, func(e, target *models.Broadcast) int {
		switch {
		case models.Newer(e, target):
			return -1
		case models.Newer(target, e):
			return 1
		}
		return 0
	})
	s.byEvent[b.EventID] = slices.Insert(entries, pos, &stored)
	return nil
}

func (s *InMemory) Delete(_ context.Context, eventID id.EventID, broadcastID id.BroadcastID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.byEvent[eventID]
	i := slices.IndexFunc(entries, func(b *models.Broadcast) bool { return b.ID == broadcastID })
	if i < 0 {
		return fmt.Errorf("broadcast not found: %w", sentinel.ErrNotFound)
	}
	s.byEvent[eventID] = slices.Delete(entries, i, i+1)
	return nil
}

// ListPage returns up to limit entries strictly older than after, newest first.
func (s *InMemory) ListPage(_ context.Context, eventID id.EventID, after models.Cursor, limit int) ([]*models.Broadcast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	page := make([]*models.Broadcast, 0, limit)
	for _, b := range s.byEvent[eventID] {
		if !after.Precedes(b) {
			continue
		}
		copied := *b
		page = append(page, &copied)
		if len(page) == limit {
			break
		}
	}
	return page, nil
}
