package story

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("story not found")
	ErrForbidden = errors.New("story belongs to another user")
)

// Story is a post that disappears once ExpiresAt has passed.
type Story struct {
	ID      string
	OwnerID string
	Caption string
	// MediaRef points at the media object: a storage path or a download URL.
	// Empty for text-only stories.
	MediaRef  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the story is past its expiry at now.
func (s *Story) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Repository defines the interface for story storage operations.
type Repository interface {
	Save(ctx context.Context, story *Story) error
	// Get returns ErrNotFound if no story has the given id.
	Get(ctx context.Context, id string) (*Story, error)
	// ListActive returns up to limit stories with ExpiresAt after now, newest first.
	ListActive(ctx context.Context, now time.Time, limit int) ([]*Story, error)
	// Delete returns ErrNotFound if no story has the given id.
	Delete(ctx context.Context, id string) error
	// FindExpired returns every story with ExpiresAt at or before now.
	FindExpired(ctx context.Context, now time.Time) ([]*Story, error)
	// DeleteBatch removes all ids in one atomic write. Missing ids are ignored.
	DeleteBatch(ctx context.Context, ids []string) error
}
