// Package models holds the broadcast log entry and its paging cursor.
package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
)

// MaxMessageLength bounds a broadcast message, counted in characters after trimming.
const MaxMessageLength = 2000

// Broadcast is one organizer announcement on an event. Entries are append-only:
// they are created and deleted, never edited.
type Broadcast struct {
	ID        id.BroadcastID `json:"id"`
	EventID   id.EventID     `json:"event_id"`
	AuthorID  id.UserID      `json:"author_id"`
	Message   string         `json:"message"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewBroadcast trims and checks message before building the entry.
func NewBroadcast(broadcastID id.BroadcastID, eventID id.EventID, author id.UserID, message string, now time.Time) (*Broadcast, error) {
	if eventID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event is required")
	}
	if author.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "author is required")
	}
	message, err := NormalizeMessage(message)
	if err != nil {
		return nil, err
	}
	return &Broadcast{
		ID:        broadcastID,
		EventID:   eventID,
		AuthorID:  author,
		Message:   message,
		CreatedAt: now,
	}, nil
}

// NormalizeMessage trims surrounding whitespace and enforces 1..MaxMessageLength characters.
func NormalizeMessage(message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", dErrors.New(dErrors.CodeValidation, "message is required")
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return "", dErrors.New(dErrors.CodeValidation, "message must be 2000 characters or less")
	}
	return message, nil
}

// Cursor marks a position in the newest-first ordering (created_at DESC, id DESC).
// The zero Cursor means "start from the newest entry".
type Cursor struct {
	CreatedAt time.Time
	ID        id.BroadcastID
}

func (c Cursor) IsZero() bool {
	return c.CreatedAt.IsZero() && c.ID.IsNil()
}

// After returns the cursor positioned just past b.
func After(b *Broadcast) Cursor {
	return Cursor{CreatedAt: b.CreatedAt, ID: b.ID}
}

// Precedes reports whether b sorts strictly after the cursor position, that is,
// whether it is older than the cursor in newest-first order.
func (c Cursor) Precedes(b *Broadcast) bool {
	if c.IsZero() {
		return true
	}
	if !b.CreatedAt.Equal(c.CreatedAt) {
		return b.CreatedAt.Before(c.CreatedAt)
	}
	return b.ID.String() < c.ID.String()
}

// Newer orders two broadcasts newest first, breaking ties on id descending.
func Newer(a, b *Broadcast) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}
