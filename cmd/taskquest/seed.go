package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedBadgesCmd = &cobra.Command{
	Use:   "seed-badges",
	Short: "Ensure the default badge catalog exists",
	Long: `Create any badge from the default catalog that is missing, matched by name.
Existing badges are left untouched, so the command is safe to repeat.

Default catalog:
  Beginner         100 points
  Intermediate     500 points
  Expert          1000 points
  Streak Master      7 day streak
  Streak Champion   30 day streak`,
	Args: cobra.NoArgs,
	RunE: runSeedBadges,
}

func runSeedBadges(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	a, err := newApp(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer a.close()

	created, err := a.seedBadges(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed badges: %w", err)
	}

	log.Info("badge catalog seeded", zap.Int("created", created))
	fmt.Fprintf(cmd.OutOrStdout(), "created %d badge(s)\n", created)
	return nil
}
