package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskquest/taskquest/config"
	"github.com/taskquest/taskquest/internal/infrastructure/persistence/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL schema",
	Long: `Apply or roll back the embedded SQL migrations against DATABASE_URL.

Examples:
  # Apply all pending migrations
  taskquest migrate up

  # Roll back the most recent migration
  taskquest migrate down

  # Show the current schema version
  taskquest migrate status`,
}

func init() {
	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m *postgres.Migrator) error {
				return m.Up()
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m *postgres.Migrator) error {
				return m.Down()
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the current schema version",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m *postgres.Migrator) error {
				status, err := m.Status()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version: %d dirty: %t\n", status.Version, status.Dirty)
				return nil
			}),
		},
	)
}

func withMigrator(fn func(*cobra.Command, *postgres.Migrator) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		if cfg.Store.Driver != config.StoreDriverPostgres {
			return fmt.Errorf("migrate requires STORE_DRIVER=%s", config.StoreDriverPostgres)
		}

		return fn(cmd, postgres.NewMigrator(cfg.Database.URL, log))
	}
}
