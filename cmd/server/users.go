package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"facility-checklist/internal/auth"
	"facility-checklist/internal/storage"
)

func newCreateUserCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user account if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(false)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.URL, 1, log)
			if err != nil {
				return err
			}
			defer store.Close()

			created, err := createUser(ctx, store, username, password)
			if err != nil {
				return err
			}
			if !created {
				cmd.Printf("User %q already exists.\n", username)
				return nil
			}
			log.Info("User created", zap.String("username", username))
			cmd.Printf("User %q created.\n", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "admin", "username to create")
	cmd.Flags().StringVar(&password, "password", "admin", "initial password")
	return cmd
}

// createUser adds the account unless the username is taken. It reports whether
// a user was created; an existing user is not an error.
func createUser(ctx context.Context, store *storage.Storage, username, password string) (bool, error) {
	username, err := auth.ValidateCredentials(username, password)
	if err != nil {
		return false, err
	}

	if _, err := store.GetUserByUsername(ctx, username); err == nil {
		return false, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	if _, err := store.CreateUser(ctx, username, hash); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
