package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"facility-checklist/internal/storage"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := setup(false)
				if err != nil {
					return err
				}
				defer log.Sync()
				return storage.MigrateUp(cfg.Database.Driver, cfg.Database.URL, log)
			},
		},
		&cobra.Command{
			Use:   "down [N]",
			Short: "Roll back N migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n <= 0 {
						return fmt.Errorf("invalid step count %q", args[0])
					}
					steps = n
				}
				return withMigrator(func(m *migrate.Migrate, log *zap.Logger) error {
					if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
						return fmt.Errorf("migrate down: %w", err)
					}
					log.Info("Rolled back migrations", zap.Int("steps", steps))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *migrate.Migrate, _ *zap.Logger) error {
					version, dirty, err := m.Version()
					if errors.Is(err, migrate.ErrNilVersion) {
						cmd.Println("no migrations applied")
						return nil
					}
					if err != nil {
						return err
					}
					cmd.Printf("version %d (dirty: %t)\n", version, dirty)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "force V",
			Short: "Set the schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return withMigrator(func(m *migrate.Migrate, log *zap.Logger) error {
					if err := m.Force(v); err != nil {
						return fmt.Errorf("force version: %w", err)
					}
					log.Info("Forced schema version", zap.Int("version", v))
					return nil
				})
			},
		},
	)
	return cmd
}

func withMigrator(fn func(m *migrate.Migrate, log *zap.Logger) error) error {
	cfg, log, err := setup(false)
	if err != nil {
		return err
	}
	defer log.Sync()

	m, err := storage.NewMigrator(cfg.Database.Driver, cfg.Database.URL, log)
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m, log)
}
