package storage

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationsFS embed.FS

// NewMigrator returns a golang-migrate instance over the embedded migrations of
// the given driver. It opens its own connection; Close it when done.
func NewMigrator(driver, dsn string, log *zap.Logger) (*migrate.Migrate, error) {
	url, err := migrationURL(driver, dsn)
	if err != nil {
		return nil, err
	}

	src, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return nil, fmt.Errorf("migration init: %w", err)
	}
	m.Log = &migrateLogger{log: log}
	return m, nil
}

// MigrateUp applies every pending migration.
func MigrateUp(driver, dsn string, log *zap.Logger) error {
	m, err := NewMigrator(driver, dsn, log)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration version: %w", err)
	}
	log.Info("Database schema up to date", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func migrationURL(driver, dsn string) (string, error) {
	switch driver {
	case DriverPostgres:
		if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
			return "", errors.New("DATABASE_URL must be a postgres:// URL to run migrations")
		}
		return dsn, nil
	case DriverSQLite:
		return "sqlite3://" + sqliteDSN(dsn), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

type migrateLogger struct {
	log *zap.Logger
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *migrateLogger) Verbose() bool { return false }
