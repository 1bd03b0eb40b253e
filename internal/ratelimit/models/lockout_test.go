package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
)

func TestLockout(t *testing.T) {
	now := time.Date(2026, 10, 10, 9, 0, 0, 0, time.UTC)

	t.Run("rejects empty key", func(t *testing.T) {
		_, err := NewLockout("", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("locks once limit reached", func(t *testing.T) {
		l, err := NewLockout(LockoutKey(id.NewEventID(), id.NewUserID()), now)
		require.NoError(t, err)
		assert.False(t, l.ShouldLock(3, now))

		l.FailureCount = 3
		assert.True(t, l.ShouldLock(3, now))

		l.ApplyLock(10*time.Minute, now)
		assert.True(t, l.IsLockedAt(now.Add(9*time.Minute)))
		assert.False(t, l.IsLockedAt(now.Add(10*time.Minute)))
		assert.False(t, l.ShouldLock(3, now), "already locked")
		assert.Equal(t, 4*time.Minute, l.RetryAfter(now.Add(6*time.Minute)))
		assert.Zero(t, l.RetryAfter(now.Add(time.Hour)))
	})

	t.Run("window closes after its duration", func(t *testing.T) {
		l := &Lockout{Key: "k", WindowStart: now}
		assert.False(t, l.WindowExpired(now.Add(14*time.Minute), 15*time.Minute))
		assert.True(t, l.WindowExpired(now.Add(15*time.Minute), 15*time.Minute))
	})
}
