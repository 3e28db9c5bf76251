package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/ollo/internal/store"
	"github.com/serroba/ollo/internal/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCachedStories(t *testing.T) (*store.StoryRedisCache, *store.StoryMemoryStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() { _ = client.Close() })

	backing := store.NewStoryMemoryStore()

	return store.NewStoryRedisCache(backing, client, time.Hour), backing, mr
}

func liveStory(id string) *story.Story {
	created := time.Now().Add(-time.Minute).Truncate(time.Millisecond)

	return &story.Story{
		ID:        id,
		OwnerID:   "U1",
		Caption:   "beach",
		MediaRef:  "stories/U1/" + id,
		CreatedAt: created,
		ExpiresAt: created.Add(24 * time.Hour),
	}
}

func TestStoryRedisCache_Save(t *testing.T) {
	cache, _, mr := newCachedStories(t)

	require.NoError(t, cache.Save(context.Background(), liveStory("s1")))

	assert.True(t, mr.Exists("story:s1"))
	assert.Equal(t, "U1", mr.HGet("story:s1", "owner_id"))

	ttl := mr.TTL("story:s1")
	assert.Positive(t, ttl)
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestStoryRedisCache_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("serves from cache when present", func(t *testing.T) {
		cache, backing, _ := newCachedStories(t)
		want := liveStory("s1")

		require.NoError(t, cache.Save(ctx, want))
		require.NoError(t, backing.Delete(ctx, "s1"))

		got, err := cache.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, want.OwnerID, got.OwnerID)
		assert.Equal(t, want.MediaRef, got.MediaRef)
		assert.Equal(t, want.ExpiresAt.UnixMilli(), got.ExpiresAt.UnixMilli())
	})

	t.Run("populates cache on miss", func(t *testing.T) {
		cache, backing, mr := newCachedStories(t)

		require.NoError(t, backing.Save(ctx, liveStory("s2")))

		_, err := cache.Get(ctx, "s2")
		require.NoError(t, err)
		assert.True(t, mr.Exists("story:s2"))
	})

	t.Run("returns ErrNotFound from store", func(t *testing.T) {
		cache, _, _ := newCachedStories(t)

		_, err := cache.Get(ctx, "missing")
		assert.ErrorIs(t, err, story.ErrNotFound)
	})

	t.Run("does not cache expired stories", func(t *testing.T) {
		cache, _, mr := newCachedStories(t)
		s := liveStory("old")
		s.ExpiresAt = time.Now().Add(-time.Second)

		require.NoError(t, cache.Save(ctx, s))
		assert.False(t, mr.Exists("story:old"))
	})
}

func TestStoryRedisCache_DeleteBatchEvicts(t *testing.T) {
	ctx := context.Background()
	cache, backing, mr := newCachedStories(t)

	require.NoError(t, cache.Save(ctx, liveStory("a")))
	require.NoError(t, cache.Save(ctx, liveStory("b")))

	require.NoError(t, cache.DeleteBatch(ctx, []string{"a", "b"}))

	assert.False(t, mr.Exists("story:a"))
	assert.False(t, mr.Exists("story:b"))
	assert.Zero(t, backing.Len())
}
