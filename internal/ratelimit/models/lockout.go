// Package models holds the check-in attempt lockout record.
package models

import (
	"time"

	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
)

// Lockout tracks failed self check-in attempts for one volunteer at one event.
type Lockout struct {
	Key           string     `json:"key"`
	FailureCount  int        `json:"failure_count"` // failures in the current window
	WindowStart   time.Time  `json:"window_start"`
	LastFailureAt time.Time  `json:"last_failure_at"`
	LockedUntil   *time.Time `json:"locked_until,omitempty"`
}

// LockoutKey scopes attempts to an (event, volunteer) pair.
func LockoutKey(eventID id.EventID, volunteerID id.UserID) string {
	return "checkin:" + eventID.String() + ":" + volunteerID.String()
}

// NewLockout starts a record with its first failure at now.
func NewLockout(key string, now time.Time) (*Lockout, error) {
	if key == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "lockout key cannot be empty")
	}
	return &Lockout{
		Key:           key,
		FailureCount:  1,
		WindowStart:   now,
		LastFailureAt: now,
	}, nil
}

// IsLockedAt reports whether the lock is still in force at now.
func (l *Lockout) IsLockedAt(now time.Time) bool {
	return l.LockedUntil != nil && now.Before(*l.LockedUntil)
}

// WindowExpired reports whether the counting window that began at
// WindowStart has closed by now.
func (l *Lockout) WindowExpired(now time.Time, window time.Duration) bool {
	return !now.Before(l.WindowStart.Add(window))
}

// ShouldLock reports whether the failure count reached the limit and no lock
// is active yet.
func (l *Lockout) ShouldLock(limit int, now time.Time) bool {
	return l.FailureCount >= limit && !l.IsLockedAt(now)
}

// ApplyLock blocks further attempts until now+d.
func (l *Lockout) ApplyLock(d time.Duration, now time.Time) {
	until := now.Add(d)
	l.LockedUntil = &until
}

// RetryAfter is how long the caller must wait, zero when not locked.
func (l *Lockout) RetryAfter(now time.Time) time.Duration {
	if !l.IsLockedAt(now) {
		return 0
	}
	return l.LockedUntil.Sub(now)
}
