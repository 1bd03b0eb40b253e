package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	platformstrings "volunteerhub/pkg/platform/strings"
)

const devSigningKey = "dev-secret-key-change-in-production"

// Config is the process configuration, read once at startup.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Auth      AuthConfig
	Events    EventsConfig
	Analytics AnalyticsConfig
	LogLevel  string
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects the store backend. An empty URL runs on in-memory stores.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	TxTimeout    time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures broadcast fan-out. No brokers disables publishing.
type KafkaConfig struct {
	Brokers        []string
	BroadcastTopic string
}

type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
}

// EventsConfig holds the rules that interpret event times and locations.
type EventsConfig struct {
	Location             *time.Location
	GeofenceRadiusMeters float64
	GeofenceInclusive    bool
	// Wrong check-in codes allowed per window before self check-in locks.
	CheckInMaxAttempts int
	CheckInWindow      time.Duration
	CheckInLockout     time.Duration
}

type AnalyticsConfig struct {
	CacheTTL time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present; real
// environment variables win over it.
func FromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var errs []error
	env := envReader{errs: &errs}

	cfg := Config{
		Server: ServerConfig{
			Addr:            env.stringOr("VOLUNTEERHUB_ADDR", ":8080"),
			ReadTimeout:     env.durationOr("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    env.durationOr("HTTP_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: env.durationOr("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL:          env.stringOr("DATABASE_URL", ""),
			MaxOpenConns: env.intOr("DATABASE_MAX_OPEN_CONNS", 20),
			TxTimeout:    env.durationOr("TX_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          env.stringOr("REDIS_URL", ""),
			PoolSize:     env.intOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: env.intOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  env.durationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  env.durationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: env.durationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:        env.list("KAFKA_BROKERS"),
			BroadcastTopic: env.stringOr("BROADCAST_TOPIC", "volunteerhub.broadcasts"),
		},
		Auth: AuthConfig{
			// Use a default for development - should be overridden in production
			JWTSigningKey: env.stringOr("JWT_SIGNING_KEY", devSigningKey),
			JWTIssuer:     env.stringOr("JWT_ISSUER", "volunteerhub"),
		},
		Events: EventsConfig{
			Location:             env.locationOr("EVENT_TIMEZONE", time.UTC),
			GeofenceRadiusMeters: env.floatOr("GEOFENCE_RADIUS_METERS", 200),
			GeofenceInclusive:    env.boolOr("GEOFENCE_INCLUSIVE", true),
			CheckInMaxAttempts:   env.intOr("CHECKIN_MAX_ATTEMPTS", 5),
			CheckInWindow:        env.durationOr("CHECKIN_ATTEMPT_WINDOW", 15*time.Minute),
			CheckInLockout:       env.durationOr("CHECKIN_LOCKOUT", 15*time.Minute),
		},
		Analytics: AnalyticsConfig{
			CacheTTL: env.durationOr("ANALYTICS_CACHE_TTL", 5*time.Minute),
		},
		LogLevel: env.stringOr("LOG_LEVEL", "info"),
	}

	if cfg.Events.GeofenceRadiusMeters <= 0 {
		errs = append(errs, errors.New("GEOFENCE_RADIUS_METERS must be positive"))
	}
	if cfg.Events.CheckInMaxAttempts < 1 {
		errs = append(errs, errors.New("CHECKIN_MAX_ATTEMPTS must be at least 1"))
	}
	if len(cfg.Auth.JWTSigningKey) < 16 {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be at least 16 bytes"))
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// UsesDevSigningKey reports whether the built-in development key is active.
func (c Config) UsesDevSigningKey() bool {
	return c.Auth.JWTSigningKey == devSigningKey
}

type envReader struct {
	errs *[]error
}

func (e envReader) fail(key string, err error) {
	*e.errs = append(*e.errs, fmt.Errorf("%s: %w", key, err))
}

func (e envReader) stringOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e envReader) intOr(key string, def int) int {
	raw := e.stringOr(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return n
}

func (e envReader) floatOr(key string, def float64) float64 {
	raw := e.stringOr(key, "")
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return f
}

func (e envReader) boolOr(key string, def bool) bool {
	raw := e.stringOr(key, "")
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return b
}

func (e envReader) durationOr(key string, def time.Duration) time.Duration {
	raw := e.stringOr(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return d
}

func (e envReader) locationOr(key string, def *time.Location) *time.Location {
	raw := e.stringOr(key, "")
	if raw == "" {
		return def
	}
	loc, err := time.LoadLocation(raw)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return loc
}

func (e envReader) list(key string) []string {
	raw := e.stringOr(key, "")
	if raw == "" {
		return nil
	}
	return platformstrings.DedupeAndTrim(strings.Split(raw, ","))
}
