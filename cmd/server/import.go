package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"facility-checklist/internal/importer"
	"facility-checklist/internal/storage"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load legacy spreadsheet exports (CSV with a header row)",
	}

	var actor string
	inspections := &cobra.Command{
		Use:   "inspections <file.csv>",
		Short: "Import inspection records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], func(ctx context.Context, imp *importer.Importer, r io.Reader) (*importer.Result, error) {
				return imp.ImportInspections(ctx, r, actor)
			})
		},
	}
	inspections.Flags().StringVar(&actor, "actor", "import", "username recorded as creator of imported records")

	users := &cobra.Command{
		Use:   "users <file.csv>",
		Short: "Import user accounts (username plus password_hash or password)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], func(ctx context.Context, imp *importer.Importer, r io.Reader) (*importer.Result, error) {
				return imp.ImportUsers(ctx, r)
			})
		},
	}

	cmd.AddCommand(inspections, users)
	return cmd
}

type importFunc func(ctx context.Context, imp *importer.Importer, r io.Reader) (*importer.Result, error)

func runImport(cmd *cobra.Command, path string, fn importFunc) error {
	cfg, log, err := setup(false)
	if err != nil {
		return err
	}
	defer log.Sync()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx := cmd.Context()
	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.URL, 1, log)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := fn(ctx, importer.New(store, log), f)
	if res != nil {
		for _, re := range res.Errors {
			cmd.PrintErrf("row %d: %v\n", re.Row, re.Err)
		}
		log.Info("Import finished", zap.String("file", path), zap.Int("imported", res.Imported), zap.Int("skipped", res.Skipped))
		cmd.Printf("Imported %d, skipped %d.\n", res.Imported, res.Skipped)
	}
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	return nil
}
