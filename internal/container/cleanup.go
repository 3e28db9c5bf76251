package container

import (
	"github.com/samber/do"
	"github.com/serroba/ollo/internal/analytics"
	"github.com/serroba/ollo/internal/blob"
	"github.com/serroba/ollo/internal/cleanup"
	"github.com/serroba/ollo/internal/messaging"
	"github.com/serroba/ollo/internal/story"
	"go.uber.org/zap"
)

// CleanupPackage provides the expired-story job and its scheduler.
// It needs StoryPackage, BlobPackage and PublisherGroupPackage.
func CleanupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*cleanup.Job, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		return cleanup.NewJob(
			do.MustInvoke[story.Repository](i),
			do.MustInvoke[blob.Store](i),
			cleanup.WithLogger(logger.Named("cleanup")),
			cleanup.WithPublisher(do.MustInvoke[messaging.Publish[analytics.StoriesPurgedEvent]](i)),
		), nil
	})

	do.Provide(injector, func(i *do.Injector) (*cleanup.Scheduler, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		return cleanup.NewScheduler(do.MustInvoke[*cleanup.Job](i), opts.CleanupSchedule, logger.Named("cleanup"))
	})
}
