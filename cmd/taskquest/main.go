// Package main is the entry point for the TaskQuest progression service.
//
// Usage:
//
//	# Start the API server
//	taskquest serve
//
//	# Apply database migrations
//	taskquest migrate up
//
//	# Ensure the default badge catalog exists
//	taskquest seed-badges
//
// Configuration is loaded from environment variables (and an optional .env
// file). See the config package for details.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taskquest/taskquest/config"
	"github.com/taskquest/taskquest/pkg/logger"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "taskquest",
	Short: "Gamified task progression service",
	Long: `taskquest tracks tasks and turns completions into points, levels,
daily streaks and badges.`,
	Version:       fmt.Sprintf("%s (%s)", version, gitCommit),
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedBadgesCmd)
	rootCmd.AddCommand(decayStreaksCmd)
}

// loadConfig loads and validates configuration, then builds the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	opts := logger.DefaultOptions()
	opts.Level = cfg.Observability.LogLevel
	opts.Format = logger.Format(cfg.Observability.LogFormat)
	opts.AddCaller = cfg.IsDevelopment()

	log, err := logger.New(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return cfg, log.With(
		zap.String("app", cfg.App.Name),
		zap.String("env", string(cfg.App.Environment)),
	), nil
}
