package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/ollo/internal/story"
)

const storyColumns = `id, owner_id, caption, media_ref, created_at, expires_at`

// StoryPostgresStore is a PostgreSQL implementation of story.Repository.
type StoryPostgresStore struct {
	pool *pgxpool.Pool
}

// NewStoryPostgresStore creates a new PostgreSQL-backed story store.
func NewStoryPostgresStore(pool *pgxpool.Pool) *StoryPostgresStore {
	return &StoryPostgresStore{pool: pool}
}

func (p *StoryPostgresStore) Save(ctx context.Context, s *story.Story) error {
	query := `
		INSERT INTO stories (` + storyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			caption = EXCLUDED.caption,
			media_ref = EXCLUDED.media_ref,
			expires_at = EXCLUDED.expires_at
	`

	_, err := p.pool.Exec(ctx, query,
		s.ID,
		s.OwnerID,
		s.Caption,
		nullableString(s.MediaRef),
		s.CreatedAt,
		s.ExpiresAt,
	)

	return err
}

func (p *StoryPostgresStore) Get(ctx context.Context, id string) (*story.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories WHERE id = $1`

	s, err := scanStory(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, story.ErrNotFound
		}

		return nil, err
	}

	return s, nil
}

func (p *StoryPostgresStore) ListActive(ctx context.Context, now time.Time, limit int) ([]*story.Story, error) {
	query := `
		SELECT ` + storyColumns + `
		FROM stories
		WHERE expires_at > $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := p.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}

	return collectStories(rows)
}

func (p *StoryPostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM stories WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return story.ErrNotFound
	}

	return nil
}

func (p *StoryPostgresStore) FindExpired(ctx context.Context, now time.Time) ([]*story.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories WHERE expires_at <= $1`

	rows, err := p.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}

	return collectStories(rows)
}

// DeleteBatch removes all ids with a single statement, which Postgres applies atomically.
func (p *StoryPostgresStore) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := p.pool.Exec(ctx, `DELETE FROM stories WHERE id = ANY($1)`, ids)

	return err
}

func scanStory(row pgx.Row) (*story.Story, error) {
	var (
		s        story.Story
		mediaRef *string
	)

	if err := row.Scan(&s.ID, &s.OwnerID, &s.Caption, &mediaRef, &s.CreatedAt, &s.ExpiresAt); err != nil {
		return nil, err
	}

	if mediaRef != nil {
		s.MediaRef = *mediaRef
	}

	return &s, nil
}

func collectStories(rows pgx.Rows) ([]*story.Story, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*story.Story, error) {
		return scanStory(row)
	})
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// Compile-time check.
var _ story.Repository = (*StoryPostgresStore)(nil)
