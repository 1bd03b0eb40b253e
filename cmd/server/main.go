package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	broadcastHandler "volunteerhub/internal/broadcast/handler"
	broadcastMetrics "volunteerhub/internal/broadcast/metrics"
	"volunteerhub/internal/broadcast/publisher"
	broadcastService "volunteerhub/internal/broadcast/service"
	broadcastStore "volunteerhub/internal/broadcast/store"
	eventHandler "volunteerhub/internal/event/handler"
	eventMetrics "volunteerhub/internal/event/metrics"
	eventService "volunteerhub/internal/event/service"
	eventStore "volunteerhub/internal/event/store"
	"volunteerhub/internal/geo"
	impactCache "volunteerhub/internal/impact/cache"
	impactHandler "volunteerhub/internal/impact/handler"
	impactMetrics "volunteerhub/internal/impact/metrics"
	impactService "volunteerhub/internal/impact/service"
	jwttoken "volunteerhub/internal/jwt_token"
	"volunteerhub/internal/platform/config"
	"volunteerhub/internal/platform/httpserver"
	"volunteerhub/internal/platform/logger"
	platformMetrics "volunteerhub/internal/platform/metrics"
	"volunteerhub/internal/platform/postgres"
	platformRedis "volunteerhub/internal/platform/redis"
	ratelimitMetrics "volunteerhub/internal/ratelimit/metrics"
	"volunteerhub/internal/ratelimit/service/lockout"
	lockoutStore "volunteerhub/internal/ratelimit/store/lockout"
	"volunteerhub/pkg/platform/circuit"
	"volunteerhub/pkg/platform/httputil"
	authmw "volunteerhub/pkg/platform/middleware/auth"
	"volunteerhub/pkg/platform/middleware/request"
)

// eventBackend is an event store that also feeds impact analytics.
type eventBackend interface {
	eventService.Store
	impactService.Store
}

type stores struct {
	events     eventBackend
	tx         eventService.StoreTx
	broadcasts broadcastService.Store
	lockouts   lockout.Store
}

type infra struct {
	db        *sql.DB
	redis     *platformRedis.Client
	publisher *publisher.Kafka
}

func (i *infra) close(log *slog.Logger) {
	if i.publisher != nil {
		i.publisher.Close()
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Warn("closing redis", "error", err)
		}
	}
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			log.Warn("closing database", "error", err)
		}
	}
}

// main wires dependencies from the environment, mounts every bounded
// context's routes, and serves until SIGINT or SIGTERM.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if cfg.UsesDevSigningKey() {
		log.Warn("using development JWT signing key; set JWT_SIGNING_KEY in production")
	}

	deps := &infra{}
	defer deps.close(log)

	reg := platformMetrics.NewRegistry()

	st, err := buildStores(ctx, cfg, log, deps)
	if err != nil {
		return err
	}
	events := st.events

	guard, err := lockout.New(st.lockouts,
		lockout.WithLogger(log),
		lockout.WithMetrics(ratelimitMetrics.New(reg)),
		lockout.WithConfig(lockout.Config{
			AttemptsPerWindow: cfg.Events.CheckInMaxAttempts,
			WindowDuration:    cfg.Events.CheckInWindow,
			LockDuration:      cfg.Events.CheckInLockout,
		}),
	)
	if err != nil {
		return err
	}
	go guard.RunSweeper(ctx, time.Minute)

	eventSvc := eventService.New(events,
		eventService.WithTx(st.tx),
		eventService.WithAttemptGuard(guard),
		eventService.WithLogger(log),
		eventService.WithMetrics(eventMetrics.New(reg)),
		eventService.WithLocation(cfg.Events.Location),
		eventService.WithFence(geo.Fence{
			RadiusMeters: cfg.Events.GeofenceRadiusMeters,
			Inclusive:    cfg.Events.GeofenceInclusive,
		}),
	)

	broadcastOpts := []broadcastService.Option{
		broadcastService.WithLogger(log),
		broadcastService.WithMetrics(broadcastMetrics.New(reg)),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := publisher.NewKafka(cfg.Kafka.Brokers, publisher.WithTopic(cfg.Kafka.BroadcastTopic))
		if err != nil {
			return err
		}
		deps.publisher = pub
		if err := pub.EnsureTopic(ctx, 3, 1); err != nil {
			log.Warn("could not ensure broadcast topic", "topic", cfg.Kafka.BroadcastTopic, "error", err)
		}
		broadcastOpts = append(broadcastOpts,
			broadcastService.WithPublisher(pub),
			broadcastService.WithBreaker(circuit.New("kafka-broadcasts")),
		)
		log.Info("broadcast publishing enabled", "brokers", cfg.Kafka.Brokers)
	}
	broadcastSvc := broadcastService.New(st.broadcasts, events, broadcastOpts...)

	impactOpts := []impactService.Option{
		impactService.WithLogger(log),
		impactService.WithMetrics(impactMetrics.New(reg)),
		impactService.WithLocation(cfg.Events.Location),
	}
	redisClient, err := platformRedis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		deps.redis = redisClient
		impactOpts = append(impactOpts, impactService.WithCache(
			impactCache.NewRedis(redisClient.Client, impactCache.WithTTL(cfg.Analytics.CacheTTL)),
		))
		log.Info("analytics cache enabled", "ttl", cfg.Analytics.CacheTTL)
	}
	impactSvc := impactService.New(events, impactOpts...)

	jwtValidator := jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer))

	router := newRouter(log, reg, deps, jwtValidator,
		eventHandler.New(eventSvc, log),
		broadcastHandler.New(broadcastSvc, log),
		impactHandler.New(impactSvc, log),
	)

	srv := httpserver.New(cfg.Server, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting volunteerhub", "addr", cfg.Server.Addr, "timezone", cfg.Events.Location.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildStores picks Postgres when DATABASE_URL is set and in-memory stores otherwise.
func buildStores(ctx context.Context, cfg config.Config, log *slog.Logger, deps *infra) (*stores, error) {
	if cfg.Database.URL == "" {
		log.Info("using in-memory stores")
		events := eventStore.NewInMemory()
		return &stores{
			events:     events,
			tx:         eventService.NewShardedTx(events),
			broadcasts: broadcastStore.NewInMemory(),
			lockouts:   lockoutStore.NewInMemory(),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	deps.db = db
	if err := postgres.Migrate(db); err != nil {
		return nil, err
	}
	log.Info("using postgres stores")
	events := eventStore.NewPostgres(db)
	return &stores{
		events:     events,
		tx:         newEventPostgresTx(db, events, cfg.Database.TxTimeout),
		broadcasts: broadcastStore.NewPostgres(db),
		lockouts:   lockoutStore.NewPostgres(db),
	}, nil
}

type registrar interface {
	Register(r chi.Router)
}

func newRouter(log *slog.Logger, reg *prometheus.Registry, deps *infra, validator authmw.JWTValidator, handlers ...registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(request.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if deps.db != nil {
			if err := deps.db.PingContext(req.Context()); err != nil {
				status["database"] = "unavailable"
				code = http.StatusServiceUnavailable
			}
		}
		if deps.redis != nil {
			if err := deps.redis.Health(req.Context()); err != nil {
				status["redis"] = "degraded"
			}
		}
		if deps.publisher != nil {
			if err := deps.publisher.Health(req.Context()); err != nil {
				status["kafka"] = "degraded"
			}
		}
		httputil.WriteJSON(w, code, status)
	})
	r.Handle("/metrics", platformMetrics.Handler(reg))

	r.Group(func(api chi.Router) {
		api.Use(authmw.RequireAuth(validator, log))
		for _, h := range handlers {
			h.Register(api)
		}
	})
	return r
}
