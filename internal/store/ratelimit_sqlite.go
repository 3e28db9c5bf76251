package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/serroba/ollo/internal/ratelimit"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// RateLimitSQLiteStore is a persistent ratelimit.Store backed by SQLite.
// The pool is capped at one connection, so transactions run one at a time.
type RateLimitSQLiteStore struct {
	db *sql.DB
}

// NewRateLimitSQLiteStore opens (or creates) a SQLite database at dsn and
// initialises the schema. Use ":memory:" for an in-memory database.
func NewRateLimitSQLiteStore(dsn string) (*RateLimitSQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS rate_limits (
			key        TEXT PRIMARY KEY,
			count      INTEGER NOT NULL,
			reset_time INTEGER NOT NULL
		)
	`); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create rate_limits table: %w", err)
	}

	return &RateLimitSQLiteStore{db: db}, nil
}

func (s *RateLimitSQLiteStore) Update(ctx context.Context, key string, fn ratelimit.UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback() }()

	var (
		count   int64
		resetMs int64
		current *ratelimit.Record
	)

	err = tx.QueryRowContext(ctx,
		`SELECT count, reset_time FROM rate_limits WHERE key = ?`, key,
	).Scan(&count, &resetMs)

	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	default:
		current = &ratelimit.Record{Count: count, ResetTime: time.UnixMilli(resetMs).UTC()}
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	if next == nil {
		return tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO rate_limits (key, count, reset_time) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET count = excluded.count, reset_time = excluded.reset_time
	`, key, next.Count, next.ResetTime.UnixMilli()); err != nil {
		return err
	}

	return tx.Commit()
}

// Shutdown closes the underlying database.
func (s *RateLimitSQLiteStore) Shutdown() error {
	return s.db.Close()
}

// Compile-time check.
var _ ratelimit.Store = (*RateLimitSQLiteStore)(nil)
