package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/taskquest/taskquest/config"
	"github.com/taskquest/taskquest/internal/application/command"
	"github.com/taskquest/taskquest/internal/application/port"
	"github.com/taskquest/taskquest/internal/application/query"
	"github.com/taskquest/taskquest/internal/domain/badge"
	"github.com/taskquest/taskquest/internal/infrastructure/messaging"
	"github.com/taskquest/taskquest/internal/infrastructure/metrics"
	"github.com/taskquest/taskquest/internal/infrastructure/persistence/memory"
	"github.com/taskquest/taskquest/internal/infrastructure/persistence/postgres"
	"github.com/taskquest/taskquest/internal/infrastructure/persistence/redis"
	"github.com/taskquest/taskquest/internal/infrastructure/scheduler"
	"github.com/taskquest/taskquest/internal/infrastructure/scheduler/jobs"
	"github.com/taskquest/taskquest/internal/interface/http/handlers"
	"github.com/taskquest/taskquest/pkg/circuitbreaker"
	"github.com/taskquest/taskquest/pkg/timeutil"
)

// storeHandle is a unit of work that can report its health.
type storeHandle interface {
	port.UnitOfWork
	handlers.Pinger
}

// sessionHandle is a session store that can report its health.
type sessionHandle interface {
	port.SessionStore
	handlers.Pinger
}

// app holds the wired application. close releases resources in reverse
// order of acquisition.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	clock timeutil.Clock

	store    storeHandle
	sessions sessionHandle
	bus      *messaging.InMemoryEventBus
	metrics  *metrics.Metrics
	registry *prometheus.Registry

	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// openStore connects the configured entity store.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (storeHandle, func(), error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		log.Warn("using in-memory store, data will not survive a restart")
		return memory.NewStore(), func() {}, nil
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.NewMigrator(cfg.Database.URL, log).Up(); err != nil {
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	if cfg.Database.MaxOpenConns > 0 {
		pgCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		pgCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	}
	if cfg.Database.ConnMaxIdleTime > 0 {
		pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	}
	pgCfg.QueryTimeout = cfg.Database.QueryTimeout

	log.Info("connecting to database...")
	conn, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return nil, nil, err
	}
	log.Info("database connection established")

	return postgres.NewStore(conn), conn.Close, nil
}

// openSessions connects Redis or falls back to process memory.
func openSessions(ctx context.Context, cfg *config.Config, log *zap.Logger, clock timeutil.Clock) (sessionHandle, func(), error) {
	if cfg.Redis.Disabled {
		log.Warn("redis disabled, sessions are kept in process memory")
		return memory.NewSessionStore(clock), func() {}, nil
	}

	client, err := redis.NewClient(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Info("redis connection established")

	breaker := redis.NewSessionBreaker(circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
		log.Warn("circuit breaker state changed",
			zap.String("breaker", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}))

	return redis.NewSessionStore(client, redis.WithBreaker(breaker)), func() {
		if err := client.Close(); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("failed to close redis client", zap.Error(err))
		}
	}, nil
}

// newApp wires infrastructure for the serve and seed-badges commands.
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger, withSessions bool) (*app, error) {
	a := &app{
		cfg:   cfg,
		log:   log,
		clock: timeutil.SystemClock(cfg.App.Location),
	}

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, closeStore)

	if withSessions {
		sessions, closeSessions, err := openSessions(ctx, cfg, log, a.clock)
		if err != nil {
			a.close()
			return nil, err
		}
		a.sessions = sessions
		a.closers = append(a.closers, closeSessions)
	}

	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	a.bus = messaging.NewInMemoryEventBus(busCfg)
	a.closers = append(a.closers, func() { _ = a.bus.Close() })

	if err := a.bus.SubscribeAll(messaging.LogEvents(log)); err != nil {
		a.close()
		return nil, err
	}

	if cfg.Observability.MetricsEnabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.metrics = metrics.New(a.registry)
		if err := a.metrics.Subscribe(a.bus); err != nil {
			a.close()
			return nil, err
		}
	}

	return a, nil
}

// seedBadges ensures the default catalog exists.
func (a *app) seedBadges(ctx context.Context) (int, error) {
	return command.NewSeedBadgesHandler(a.store, a.log).Handle(ctx, badge.DefaultCatalog())
}

func (a *app) observer() port.CompletionObserver {
	if a.metrics == nil {
		return port.NopObserver{}
	}
	return a.metrics
}

func (a *app) completeTaskHandler() *command.CompleteTaskHandler {
	features := a.cfg.Features
	return command.NewCompleteTaskHandler(a.store, a.clock, a.bus, a.observer(), a.log, command.CompleteTaskConfig{
		MaxRetries:     a.cfg.Progression.MaxRetries,
		RetryBaseDelay: a.cfg.Progression.RetryBaseDelay,
		RetryMaxDelay:  a.cfg.Progression.RetryMaxDelay,
		OneStreakPerDay: func(userID string) bool {
			return features.IsEnabled(config.FeatureOneStreakPerDay, userID)
		},
	})
}

func (a *app) dashboardHandler() *query.GetDashboardHandler {
	features := a.cfg.Features
	return query.NewGetDashboardHandler(a.store, a.clock, a.bus, a.log, func(userID string) bool {
		return features.IsEnabled(config.FeatureDashboardDecay, userID)
	})
}

func (a *app) decayStreaksHandler() *command.DecayStreaksHandler {
	features := a.cfg.Features
	return command.NewDecayStreaksHandler(a.store, a.clock, a.bus, a.log, func(userID string) bool {
		return features.IsEnabled(config.FeatureDashboardDecay, userID)
	})
}

// newScheduler registers the background jobs enabled in cfg. Job runs are
// reported to the metrics collector when one is configured.
func (a *app) newScheduler() (*scheduler.Scheduler, error) {
	s := scheduler.New(scheduler.Config{
		Logger: a.log,
		Clock:  a.clock,
		OnJobComplete: func(r scheduler.JobResult) {
			a.metrics.ObserveJob(r.JobName, r.Error, r.Duration)
		},
	})

	if a.cfg.Progression.DecaySweepEnabled {
		at, err := scheduler.ParseDaily(a.cfg.Progression.DecaySweepAt, a.cfg.App.Location)
		if err != nil {
			return nil, err
		}
		if err := s.Register(jobs.NewDecayStreaksJob(a.decayStreaksHandler()), at); err != nil {
			return nil, err
		}
	}
	return s, nil
}
