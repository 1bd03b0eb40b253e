// Package lockout limits how many wrong check-in codes a volunteer may submit
// for one event before self check-in is refused for a while.
package lockout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"volunteerhub/internal/ratelimit/metrics"
	"volunteerhub/internal/ratelimit/models"
	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/requestcontext"
)

type Store interface {
	Get(ctx context.Context, key string) (*models.Lockout, error)
	RecordFailure(ctx context.Context, key string, now, cutoff time.Time) (*models.Lockout, error)
	Update(ctx context.Context, record *models.Lockout) error
	Clear(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config holds the lockout thresholds.
type Config struct {
	AttemptsPerWindow int
	WindowDuration    time.Duration
	LockDuration      time.Duration
}

// DefaultConfig allows 5 wrong codes per 15 minutes, then locks for 15 minutes.
func DefaultConfig() Config {
	return Config{
		AttemptsPerWindow: 5,
		WindowDuration:    15 * time.Minute,
		LockDuration:      15 * time.Minute,
	}
}

type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	config  Config
	clock   func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithConfig overrides thresholds. Non-positive fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		if cfg.AttemptsPerWindow > 0 {
			s.config.AttemptsPerWindow = cfg.AttemptsPerWindow
		}
		if cfg.WindowDuration > 0 {
			s.config.WindowDuration = cfg.WindowDuration
		}
		if cfg.LockDuration > 0 {
			s.config.LockDuration = cfg.LockDuration
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("lockout store is required")
	}
	svc := &Service{
		store:  store,
		config: DefaultConfig(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Check returns too_many_attempts while the (event, volunteer) pair is locked.
func (s *Service) Check(ctx context.Context, eventID id.EventID, volunteerID id.UserID) error {
	record, err := s.store.Get(ctx, models.LockoutKey(eventID, volunteerID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to get check-in lockout")
	}
	if record == nil {
		return nil
	}
	now := s.clock()
	if record.IsLockedAt(now) {
		s.metrics.IncrementBlocked()
		retry := record.RetryAfter(now).Round(time.Second)
		return dErrors.New(dErrors.CodeTooManyAttempts, "too many wrong check-in codes, try again in "+retry.String())
	}
	return nil
}

// RecordFailure counts a wrong code and locks the pair once the window limit is hit.
func (s *Service) RecordFailure(ctx context.Context, eventID id.EventID, volunteerID id.UserID) error {
	now := s.clock()
	key := models.LockoutKey(eventID, volunteerID)
	current, err := s.store.RecordFailure(ctx, key, now, now.Add(-s.config.WindowDuration))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record check-in failure")
	}
	s.metrics.IncrementFailures()

	if !current.ShouldLock(s.config.AttemptsPerWindow, now) {
		return nil
	}
	current.ApplyLock(s.config.LockDuration, now)
	if err := s.store.Update(ctx, current); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply check-in lockout")
	}
	s.metrics.IncrementLockouts()
	s.logAudit(ctx, "check_in_lockout_triggered",
		"event_id", eventID.String(),
		"volunteer_id", volunteerID.String(),
		"failure_count", current.FailureCount,
		"locked_until", *current.LockedUntil,
	)
	return nil
}

// Clear forgets failures after a successful check-in.
func (s *Service) Clear(ctx context.Context, eventID id.EventID, volunteerID id.UserID) error {
	if err := s.store.Clear(ctx, models.LockoutKey(eventID, volunteerID)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear check-in lockout")
	}
	return nil
}

// Sweep drops records that can no longer affect a decision.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	horizon := max(s.config.WindowDuration, s.config.LockDuration)
	n, err := s.store.DeleteExpired(ctx, s.clock().Add(-horizon))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sweep check-in lockouts")
	}
	return n, nil
}

// RunSweeper calls Sweep every interval until ctx ends.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil && s.logger != nil {
				s.logger.WarnContext(ctx, "lockout sweep failed", "error", err)
				continue
			}
			if n > 0 && s.logger != nil {
				s.logger.DebugContext(ctx, "lockout sweep", "removed", n)
			}
		}
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
