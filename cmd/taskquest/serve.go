package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskquest/taskquest/internal/application/command"
	"github.com/taskquest/taskquest/internal/interface/http/handlers"

	httpserver "github.com/taskquest/taskquest/internal/interface/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the JSON API. On start-up the default badge catalog is seeded and,
when DB_AUTO_MIGRATE is set (the default), pending migrations are applied.
Unless DECAY_SWEEP_ENABLED=false, lapsed streaks are reset every day at
DECAY_SWEEP_AT (HH:MM, default 00:05) in APP_TIMEZONE.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting taskquest",
		zap.String("version", version),
		zap.String("store", cfg.Store.Driver),
		zap.String("timezone", cfg.App.Location.String()),
	)
	for name, f := range cfg.Features.GetAllFeatures() {
		log.Info("feature flag", zap.String("feature", name), zap.Bool("enabled", f.Enabled), zap.Int("rollout_percent", f.RolloutPercent))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 1. INFRASTRUCTURE
	// ─────────────────────────────────────────────────────────────────────────
	a, err := newApp(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer a.close()

	created, err := a.seedBadges(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed badges: %w", err)
	}
	log.Info("badge catalog ready", zap.Int("created", created))

	// ─────────────────────────────────────────────────────────────────────────
	// 2. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	bcryptCost := cfg.Progression.BcryptCost
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}

	health := handlers.NewCompositeHealthChecker(version)
	health.AddCheck("store", handlers.NewPingCheck(a.store))
	health.AddCheck("sessions", handlers.NewPingCheck(a.sessions))

	deps := httpserver.Dependencies{
		RegisterUser:  command.NewRegisterUserHandler(a.store, a.clock, a.bus, log, bcryptCost),
		Sessions:      command.NewSessionHandler(a.store, a.sessions, cfg.Session.TTL, log),
		AddTask:       command.NewAddTaskHandler(a.store, a.clock, a.bus, log),
		CompleteTask:  a.completeTaskHandler(),
		GetDashboard:  a.dashboardHandler(),
		Clock:         a.clock,
		Logger:        log,
		HealthChecker: health,
		Metrics:       a.metrics,
	}
	if a.registry != nil {
		deps.Gatherer = a.registry
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. SCHEDULER AND HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.CookieName = cfg.Session.CookieName
	httpConfig.CookieSecure = cfg.Session.CookieSecure

	sched, err := a.newScheduler()
	if err != nil {
		return fmt.Errorf("failed to configure scheduler: %w", err)
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer func() { _ = sched.Stop() }()

	server := httpserver.NewServer(httpConfig, deps)
	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err, ok := <-errCh:
		if ok && err != nil {
			log.Error("http server failed", zap.Error(err))
			return err
		}
	}

	log.Info("starting graceful shutdown...", zap.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop http server gracefully", zap.Error(err))
		return err
	}

	log.Info("shutdown complete")
	return nil
}
