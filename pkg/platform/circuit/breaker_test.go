package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBreakerIsClosed(t *testing.T) {
	b := New("kafka-broadcasts")
	assert.Equal(t, "kafka-broadcasts", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())
	assert.True(t, b.Allow())
}

func TestRecordFailure(t *testing.T) {
	t.Run("opens on the threshold failure only", func(t *testing.T) {
		b := New("pub", WithFailureThreshold(3))
		for range 2 {
			useFallback, change := b.RecordFailure()
			require.False(t, useFallback)
			require.False(t, change.Opened)
		}
		useFallback, change := b.RecordFailure()
		assert.True(t, useFallback)
		assert.True(t, change.Opened)
		assert.Equal(t, "open", b.State().String())

		useFallback, change = b.RecordFailure()
		assert.True(t, useFallback)
		assert.False(t, change.Opened, "already open")
	})

	t.Run("a success in between restarts the count", func(t *testing.T) {
		b := New("pub", WithFailureThreshold(2))
		b.RecordFailure()
		b.RecordSuccess()
		b.RecordFailure()
		assert.False(t, b.IsOpen())
		b.RecordFailure()
		assert.True(t, b.IsOpen())
	})
}

func TestRecordSuccessClosesAfterThreshold(t *testing.T) {
	b := New("pub", WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	usePrimary, change := b.RecordSuccess()
	assert.False(t, usePrimary)
	assert.False(t, change.Closed)

	// A failure while recovering discards earlier successes.
	b.RecordFailure()
	b.RecordSuccess()
	assert.True(t, b.IsOpen())

	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
	assert.False(t, b.IsOpen())
}

func TestAllowProbesOncePerCooldown(t *testing.T) {
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	b := New("pub",
		WithFailureThreshold(1),
		WithCooldown(time.Minute),
		WithClock(func() time.Time { return now }))

	b.RecordFailure()
	assert.False(t, b.Allow())

	now = now.Add(time.Minute)
	assert.True(t, b.Allow())
	assert.False(t, b.Allow())

	now = now.Add(time.Minute)
	assert.True(t, b.Allow())
}

func TestReset(t *testing.T) {
	b := New("pub", WithFailureThreshold(1), WithCooldown(time.Hour))
	b.RecordFailure()
	require.False(t, b.Allow())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestOptionsIgnoreNonPositiveValues(t *testing.T) {
	b := New("pub", WithFailureThreshold(0), WithSuccessThreshold(-1), WithCooldown(0))
	assert.Equal(t, 5, b.failureThreshold)
	assert.Equal(t, 3, b.successThreshold)
	assert.Equal(t, 30*time.Second, b.cooldown)
}
