package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var decayStreaksCmd = &cobra.Command{
	Use:   "decay-streaks",
	Short: "Reset the streaks of users who missed a day",
	Long: `Run the streak decay sweep once and exit. The sweep zeroes the streak of
every user whose last completion is older than yesterday in APP_TIMEZONE.
Points, levels and badges are never touched. ` + "`serve`" + ` runs the same sweep daily.`,
	Args: cobra.NoArgs,
	RunE: runDecayStreaks,
}

func runDecayStreaks(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	a, err := newApp(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.decayStreaksHandler().Handle(ctx)
	if err != nil {
		return fmt.Errorf("streak decay failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "checked %d user(s), reset %d, failed %d\n", res.Candidates, res.Reset, res.Failed)
	if res.Failed > 0 {
		return fmt.Errorf("%d user(s) could not be updated", res.Failed)
	}
	return nil
}
