package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// Open connects to the database, retrying while it comes up.
func Open(ctx context.Context, driver, dsn string, attempts int, log *zap.Logger) (*Storage, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}
	if attempts < 1 {
		attempts = 1
	}

	var db *sqlx.DB
	var err error
	for i := 0; i < attempts; i++ {
		db, err = sqlx.ConnectContext(ctx, driver, dsn)
		if err == nil {
			break
		}
		log.Warn("DB connection attempt failed", zap.Int("attempt", i+1), zap.Error(err))
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// single writer; avoids SQLITE_BUSY under concurrent requests
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	log.Info("Connected to database", zap.String("driver", driver))
	return NewStorage(db), nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_busy_timeout") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_busy_timeout=5000"
	}
	return dsn + "?_busy_timeout=5000"
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
