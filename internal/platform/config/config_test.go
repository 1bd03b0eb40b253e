package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"VOLUNTEERHUB_ADDR", "DATABASE_URL", "KAFKA_BROKERS", "JWT_SIGNING_KEY", "EVENT_TIMEZONE", "GEOFENCE_RADIUS_METERS"} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, time.UTC, cfg.Events.Location)
	assert.Equal(t, 200.0, cfg.Events.GeofenceRadiusMeters)
	assert.True(t, cfg.Events.GeofenceInclusive)
	assert.Equal(t, 5, cfg.Events.CheckInMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Events.CheckInWindow)
	assert.Equal(t, 15*time.Minute, cfg.Events.CheckInLockout)
	assert.True(t, cfg.UsesDevSigningKey())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,kafka-1:9092,")
	t.Setenv("CHECKIN_MAX_ATTEMPTS", "3")
	t.Setenv("CHECKIN_LOCKOUT", "5m")
	t.Setenv("EVENT_TIMEZONE", "Europe/Amsterdam")
	t.Setenv("GEOFENCE_RADIUS_METERS", "150.5")
	t.Setenv("GEOFENCE_INCLUSIVE", "false")
	t.Setenv("ANALYTICS_CACHE_TTL", "30s")
	t.Setenv("JWT_SIGNING_KEY", "0123456789abcdef0123")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "Europe/Amsterdam", cfg.Events.Location.String())
	assert.Equal(t, 150.5, cfg.Events.GeofenceRadiusMeters)
	assert.False(t, cfg.Events.GeofenceInclusive)
	assert.Equal(t, 30*time.Second, cfg.Analytics.CacheTTL)
	assert.Equal(t, 3, cfg.Events.CheckInMaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Events.CheckInLockout)
	assert.False(t, cfg.UsesDevSigningKey())
}

func TestFromEnvCollectsErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TX_TIMEOUT", "soon")
	t.Setenv("GEOFENCE_RADIUS_METERS", "-1")
	t.Setenv("JWT_SIGNING_KEY", "short")
	t.Setenv("CHECKIN_MAX_ATTEMPTS", "0")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TX_TIMEOUT")
	assert.Contains(t, err.Error(), "GEOFENCE_RADIUS_METERS")
	assert.Contains(t, err.Error(), "JWT_SIGNING_KEY")
	assert.Contains(t, err.Error(), "CHECKIN_MAX_ATTEMPTS")
}
