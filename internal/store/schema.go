package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS stories (
		id         TEXT PRIMARY KEY,
		owner_id   TEXT NOT NULL,
		caption    TEXT NOT NULL DEFAULT '',
		media_ref  TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS stories_expires_at_idx ON stories (expires_at);

	CREATE TABLE IF NOT EXISTS rate_limits (
		key        TEXT PRIMARY KEY,
		count      BIGINT NOT NULL,
		reset_time BIGINT NOT NULL
	);
`

// EnsurePostgresSchema creates the tables used by the Postgres stores.
func EnsurePostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, postgresSchema)

	return err
}
