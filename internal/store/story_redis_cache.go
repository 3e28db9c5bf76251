package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/ollo/internal/story"
)

// StoryRedisCache wraps a story.Repository with Redis caching for Get.
// List and expiry queries always go to the underlying store.
type StoryRedisCache struct {
	store  story.Repository
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewStoryRedisCache creates a new Redis-cached story repository decorator.
func NewStoryRedisCache(store story.Repository, client *redis.Client, ttl time.Duration) *StoryRedisCache {
	return &StoryRedisCache{
		store:  store,
		client: client,
		prefix: "story:",
		ttl:    ttl,
	}
}

// Save stores the story in the underlying store and updates the cache.
func (r *StoryRedisCache) Save(ctx context.Context, s *story.Story) error {
	if err := r.store.Save(ctx, s); err != nil {
		return err
	}

	r.cacheStory(ctx, s)

	return nil
}

// Get checks the cache first and falls back to the underlying store.
func (r *StoryRedisCache) Get(ctx context.Context, id string) (*story.Story, error) {
	if s, err := r.getFromCache(ctx, id); err == nil {
		return s, nil
	}

	s, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheStory(ctx, s)

	return s, nil
}

func (r *StoryRedisCache) ListActive(ctx context.Context, now time.Time, limit int) ([]*story.Story, error) {
	return r.store.ListActive(ctx, now, limit)
}

func (r *StoryRedisCache) Delete(ctx context.Context, id string) error {
	r.client.Del(ctx, r.prefix+id)

	return r.store.Delete(ctx, id)
}

func (r *StoryRedisCache) FindExpired(ctx context.Context, now time.Time) ([]*story.Story, error) {
	return r.store.FindExpired(ctx, now)
}

// DeleteBatch evicts the cached entries before deleting from the store.
func (r *StoryRedisCache) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.prefix + id
	}

	r.client.Del(ctx, keys...)

	return r.store.DeleteBatch(ctx, ids)
}

func (r *StoryRedisCache) getFromCache(ctx context.Context, id string) (*story.Story, error) {
	result, err := r.client.HGetAll(ctx, r.prefix+id).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, story.ErrNotFound
	}

	return &story.Story{
		ID:        result["id"],
		OwnerID:   result["owner_id"],
		Caption:   result["caption"],
		MediaRef:  result["media_ref"],
		CreatedAt: parseMillis(result["created_at"]),
		ExpiresAt: parseMillis(result["expires_at"]),
	}, nil
}

func (r *StoryRedisCache) cacheStory(ctx context.Context, s *story.Story) {
	// Never outlive the story itself.
	ttl := time.Until(s.ExpiresAt)
	if r.ttl > 0 && r.ttl < ttl {
		ttl = r.ttl
	}

	if ttl <= 0 {
		return
	}

	key := r.prefix + s.ID
	pipe := r.client.Pipeline()

	pipe.HSet(ctx, key, map[string]any{
		"id":         s.ID,
		"owner_id":   s.OwnerID,
		"caption":    s.Caption,
		"media_ref":  s.MediaRef,
		"created_at": s.CreatedAt.UnixMilli(),
		"expires_at": s.ExpiresAt.UnixMilli(),
	})
	pipe.PExpire(ctx, key, ttl)

	_, _ = pipe.Exec(ctx)
}

func parseMillis(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}

	return time.UnixMilli(ms)
}

// Compile-time check.
var _ story.Repository = (*StoryRedisCache)(nil)
