package story_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/serroba/ollo/internal/blob"
	"github.com/serroba/ollo/internal/store"
	"github.com/serroba/ollo/internal/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, time.June, 23, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

func objectName() string { return "obj1" }

type brokenBlobs struct{}

func (brokenBlobs) Put(context.Context, string, []byte, string) error {
	return errors.New("bucket offline")
}

func (brokenBlobs) Delete(context.Context, string) error {
	return errors.New("bucket offline")
}

func newService(repo story.Repository, blobs blob.Store) *story.Service {
	return story.NewService(repo, blobs, objectName, story.WithClock(fixedClock))
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("text-only story expires after the ttl", func(t *testing.T) {
		repo := store.NewStoryMemoryStore()
		svc := story.NewService(repo, blob.NewMemoryStore(), objectName,
			story.WithClock(fixedClock), story.WithTTL(time.Hour))

		got, err := svc.Create(ctx, story.CreateInput{OwnerID: "U1", Caption: "hi"})
		require.NoError(t, err)

		assert.NotEmpty(t, got.ID)
		assert.Equal(t, now, got.CreatedAt)
		assert.Equal(t, now.Add(time.Hour), got.ExpiresAt)
		assert.Empty(t, got.MediaRef)
		assert.Equal(t, 1, repo.Len())
	})

	t.Run("inline media is written under the owner prefix", func(t *testing.T) {
		blobs := blob.NewMemoryStore()
		svc := newService(store.NewStoryMemoryStore(), blobs)

		got, err := svc.Create(ctx, story.CreateInput{
			OwnerID:     "U1",
			Media:       []byte("jpeg"),
			ContentType: "image/jpeg",
		})
		require.NoError(t, err)

		assert.Equal(t, "stories/U1/obj1", got.MediaRef)
		assert.True(t, blobs.Exists("stories/U1/obj1"))
		assert.Equal(t, now.Add(story.DefaultTTL), got.ExpiresAt)
	})

	t.Run("media url is kept as given", func(t *testing.T) {
		svc := newService(store.NewStoryMemoryStore(), blob.NewMemoryStore())
		ref := "gs://ollo.appspot.com/stories/U1/a.jpg"

		got, err := svc.Create(ctx, story.CreateInput{OwnerID: "U1", MediaURL: ref})
		require.NoError(t, err)

		assert.Equal(t, ref, got.MediaRef)
	})

	t.Run("rejects unparseable media url", func(t *testing.T) {
		svc := newService(store.NewStoryMemoryStore(), blob.NewMemoryStore())

		_, err := svc.Create(ctx, story.CreateInput{OwnerID: "U1", MediaURL: "https://example.com/x.jpg"})

		assert.ErrorIs(t, err, story.ErrInvalidMedia)
		assert.ErrorIs(t, err, blob.ErrInvalidRef)
	})

	t.Run("rejects both media and media url", func(t *testing.T) {
		svc := newService(store.NewStoryMemoryStore(), blob.NewMemoryStore())

		_, err := svc.Create(ctx, story.CreateInput{
			OwnerID:  "U1",
			Media:    []byte("x"),
			MediaURL: "stories/U1/a.jpg",
		})

		assert.ErrorIs(t, err, story.ErrInvalidMedia)
	})

	t.Run("requires an owner", func(t *testing.T) {
		svc := newService(store.NewStoryMemoryStore(), blob.NewMemoryStore())

		_, err := svc.Create(ctx, story.CreateInput{Caption: "hi"})

		assert.ErrorIs(t, err, story.ErrMissingOwner)
	})

	t.Run("blob failure aborts before saving", func(t *testing.T) {
		repo := store.NewStoryMemoryStore()
		svc := newService(repo, brokenBlobs{})

		_, err := svc.Create(ctx, story.CreateInput{OwnerID: "U1", Media: []byte("x")})

		require.Error(t, err)
		assert.Zero(t, repo.Len())
	})
}

func TestService_ListActive(t *testing.T) {
	ctx := context.Background()
	repo := store.NewStoryMemoryStore()

	require.NoError(t, repo.Save(ctx, &story.Story{
		ID: "live", OwnerID: "U1", CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, repo.Save(ctx, &story.Story{
		ID: "gone", OwnerID: "U1", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now,
	}))

	got, err := newService(repo, blob.NewMemoryStore()).ListActive(ctx, 10)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "live", got[0].ID)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, repo story.Repository, blobs *blob.MemoryStore) {
		t.Helper()

		require.NoError(t, blobs.Put(ctx, "stories/U1/a.jpg", []byte("x"), "image/jpeg"))
		require.NoError(t, repo.Save(ctx, &story.Story{
			ID:        "s1",
			OwnerID:   "U1",
			MediaRef:  "stories/U1/a.jpg",
			CreatedAt: now.Add(-time.Hour),
			ExpiresAt: now.Add(time.Hour),
		}))
	}

	t.Run("owner deletes story and media", func(t *testing.T) {
		repo := store.NewStoryMemoryStore()
		blobs := blob.NewMemoryStore()
		seed(t, repo, blobs)

		require.NoError(t, newService(repo, blobs).Delete(ctx, "U1", "s1"))

		assert.Zero(t, repo.Len())
		assert.False(t, blobs.Exists("stories/U1/a.jpg"))
	})

	t.Run("other users are forbidden", func(t *testing.T) {
		repo := store.NewStoryMemoryStore()
		blobs := blob.NewMemoryStore()
		seed(t, repo, blobs)

		err := newService(repo, blobs).Delete(ctx, "U2", "s1")

		assert.ErrorIs(t, err, story.ErrForbidden)
		assert.Equal(t, 1, repo.Len())
	})

	t.Run("missing story", func(t *testing.T) {
		svc := newService(store.NewStoryMemoryStore(), blob.NewMemoryStore())

		assert.ErrorIs(t, svc.Delete(ctx, "U1", "nope"), story.ErrNotFound)
	})

	t.Run("expired story reads as not found", func(t *testing.T) {
		repo := store.NewStoryMemoryStore()
		blobs := blob.NewMemoryStore()
		seed(t, repo, blobs)

		svc := story.NewService(repo, blobs, objectName,
			story.WithClock(func() time.Time { return now.Add(2 * time.Hour) }))

		assert.ErrorIs(t, svc.Delete(ctx, "U1", "s1"), story.ErrNotFound)
	})

	t.Run("blob failure does not fail the delete", func(t *testing.T) {
		repo := store.NewStoryMemoryStore()
		seed(t, repo, blob.NewMemoryStore())

		require.NoError(t, newService(repo, brokenBlobs{}).Delete(ctx, "U1", "s1"))
		assert.Zero(t, repo.Len())
	})
}
