package container

import (
	"fmt"

	"github.com/jaevor/go-nanoid"
	"github.com/samber/do"
	"github.com/serroba/ollo/internal/blob"
	"github.com/serroba/ollo/internal/store"
	"github.com/serroba/ollo/internal/story"
	"go.uber.org/zap"
)

const mediaNameLength = 21

// StoryPackage provides the story repository: Postgres when a database is
// configured (cached in Redis when available), otherwise in memory.
func StoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (story.Repository, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.DatabaseURL == "" {
			logger.Warn("no database configured, stories are kept in memory")

			return store.NewStoryMemoryStore(), nil
		}

		var repo story.Repository = store.NewStoryPostgresStore(do.MustInvoke[*PostgresPool](i).Pool)

		cacheTTL, err := parseDuration("story cache ttl", opts.StoryCacheTTL)
		if err != nil {
			return nil, err
		}

		if opts.RedisAddr != "" && cacheTTL > 0 {
			repo = store.NewStoryRedisCache(repo, do.MustInvoke[*RedisClient](i).Client, cacheTTL)
		}

		return repo, nil
	})

	do.Provide(injector, func(i *do.Injector) (*story.Service, error) {
		opts := do.MustInvoke[*Options](i)

		ttl, err := parseDuration("story ttl", opts.StoryTTL)
		if err != nil {
			return nil, err
		}

		objectName, err := nanoid.Standard(mediaNameLength)
		if err != nil {
			return nil, fmt.Errorf("create media name generator: %w", err)
		}

		return story.NewService(
			do.MustInvoke[story.Repository](i),
			do.MustInvoke[blob.Store](i),
			objectName,
			story.WithTTL(ttl),
			story.WithLogger(do.MustInvoke[*zap.Logger](i)),
		), nil
	})
}

func BlobPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (blob.Store, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.BlobDir == "" {
			return blob.NewMemoryStore(), nil
		}

		return blob.NewDirStore(opts.BlobDir)
	})
}
