package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facility-checklist/internal/auth"
	"facility-checklist/internal/testutil"
)

func TestCreateUserIsIdempotent(t *testing.T) {
	store := testutil.OpenStore(t)
	ctx := context.Background()

	created, err := createUser(ctx, store, "admin", "admin")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = createUser(ctx, store, " admin ", "different")
	require.NoError(t, err)
	assert.False(t, created)

	user, err := store.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(user.PasswordHash, "admin"))
	assert.False(t, auth.CheckPassword(user.PasswordHash, "different"))
}

func TestCreateUserRejectsInvalidCredentials(t *testing.T) {
	store := testutil.OpenStore(t)

	_, err := createUser(context.Background(), store, "ab", "admin")
	assert.ErrorIs(t, err, auth.ErrInvalidUsername)
	_, err = createUser(context.Background(), store, "admin", "abc")
	assert.ErrorIs(t, err, auth.ErrPasswordShort)
}

// runCLI executes the root command against a SQLite file and returns stdout.
func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.ExecuteContext(context.Background()), out.String())
	return out.String()
}

func useSQLiteEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DATABASE_URL", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("LOG_LEVEL", "error")
}

func TestMigrateCommands(t *testing.T) {
	useSQLiteEnv(t)

	assert.Contains(t, runCLI(t, "migrate", "version"), "no migrations applied")

	runCLI(t, "migrate", "up")
	assert.Contains(t, runCLI(t, "migrate", "version"), "version 2 (dirty: false)")

	runCLI(t, "migrate", "down")
	assert.Contains(t, runCLI(t, "migrate", "version"), "version 1 (dirty: false)")

	runCLI(t, "migrate", "force", "2")
	assert.Contains(t, runCLI(t, "migrate", "version"), "version 2 (dirty: false)")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"migrate", "down", "zero"})
	assert.Error(t, root.Execute())
}

func TestCreateUserCommand(t *testing.T) {
	useSQLiteEnv(t)
	runCLI(t, "migrate", "up")

	assert.Contains(t, runCLI(t, "create-user", "--username", "inspector", "--password", "checklist"), `User "inspector" created.`)
	assert.Contains(t, runCLI(t, "create-user", "--username", "inspector", "--password", "checklist"), `User "inspector" already exists.`)
}
