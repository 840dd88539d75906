package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"facility-checklist/internal/config"
	"facility-checklist/internal/logging"
)

// @title Facility Checklist API
// @version 1.0
// @description Inspection records for facility condition surveys.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "facility-checklist",
		Short:         "Facility inspection tracking server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newCreateUserCmd(),
		newImportCmd(),
	)
	return root
}

// setup loads configuration and builds the logger shared by every command.
func setup(needAuth bool) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if needAuth {
		err = cfg.Validate()
	} else {
		err = cfg.ValidateDatabase()
	}
	if err != nil {
		return nil, nil, err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}
