package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/ollo/internal/analytics"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS rate_limit_events (
		id           BIGSERIAL PRIMARY KEY,
		operation    TEXT NOT NULL,
		user_id      TEXT NOT NULL,
		max_requests BIGINT NOT NULL,
		retry_after  BIGINT NOT NULL,
		reset_time   TIMESTAMPTZ NOT NULL,
		occurred_at  TIMESTAMPTZ NOT NULL,
		client_ip    TEXT,
		user_agent   TEXT
	);

	CREATE TABLE IF NOT EXISTS cleanup_runs (
		run_id        TEXT PRIMARY KEY,
		story_ids     TEXT[] NOT NULL,
		blobs_deleted INT NOT NULL,
		blob_failures INT NOT NULL,
		started_at    TIMESTAMPTZ NOT NULL,
		finished_at   TIMESTAMPTZ NOT NULL
	);
`

// Postgres persists analytics events to PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a PostgreSQL analytics store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the analytics tables.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, postgresSchema)

	return err
}

func (p *Postgres) SaveRateLimitExceeded(ctx context.Context, event *analytics.RateLimitExceededEvent) error {
	query := `
		INSERT INTO rate_limit_events
			(operation, user_id, max_requests, retry_after, reset_time, occurred_at, client_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := p.pool.Exec(ctx, query,
		event.Operation,
		event.UserID,
		event.Limit,
		event.RetryAfter,
		event.ResetTime,
		event.OccurredAt,
		event.ClientIP,
		event.UserAgent,
	)

	return err
}

// SaveStoriesPurged is idempotent on RunID so redelivered messages are harmless.
func (p *Postgres) SaveStoriesPurged(ctx context.Context, event *analytics.StoriesPurgedEvent) error {
	query := `
		INSERT INTO cleanup_runs
			(run_id, story_ids, blobs_deleted, blob_failures, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO NOTHING
	`

	_, err := p.pool.Exec(ctx, query,
		event.RunID,
		event.StoryIDs,
		event.BlobsDeleted,
		event.BlobFailures,
		event.StartedAt,
		event.FinishedAt,
	)

	return err
}

// Compile-time checks.
var (
	_ analytics.Store = (*Postgres)(nil)
	_ analytics.Store = (*Noop)(nil)
)
