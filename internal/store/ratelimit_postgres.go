package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/ollo/internal/ratelimit"
)

// RateLimitPostgresStore is a PostgreSQL implementation of ratelimit.Store.
type RateLimitPostgresStore struct {
	pool *pgxpool.Pool
}

// NewRateLimitPostgresStore creates a new PostgreSQL-backed rate limit store.
func NewRateLimitPostgresStore(pool *pgxpool.Pool) *RateLimitPostgresStore {
	return &RateLimitPostgresStore{pool: pool}
}

// Update inserts a placeholder row (reset_time 0) when the key is new so that
// SELECT ... FOR UPDATE always has a row to lock, including for the first call.
func (p *RateLimitPostgresStore) Update(ctx context.Context, key string, fn ratelimit.UpdateFunc) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO rate_limits (key, count, reset_time) VALUES ($1, 0, 0)
		ON CONFLICT (key) DO NOTHING
	`, key); err != nil {
		return err
	}

	var count, resetMs int64

	if err := tx.QueryRow(ctx,
		`SELECT count, reset_time FROM rate_limits WHERE key = $1 FOR UPDATE`, key,
	).Scan(&count, &resetMs); err != nil {
		return err
	}

	var current *ratelimit.Record
	if resetMs != 0 {
		current = &ratelimit.Record{Count: count, ResetTime: time.UnixMilli(resetMs).UTC()}
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	if next == nil {
		return tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE rate_limits SET count = $2, reset_time = $3 WHERE key = $1`,
		key, next.Count, next.ResetTime.UnixMilli(),
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Compile-time check.
var _ ratelimit.Store = (*RateLimitPostgresStore)(nil)
