package container

import (
	"context"
	"fmt"

	"github.com/samber/do"
	"github.com/serroba/ollo/internal/analytics"
	analyticsstore "github.com/serroba/ollo/internal/analytics/store"
	"github.com/serroba/ollo/internal/messaging"
	"go.uber.org/zap"
)

// PublisherGroupPackage provides typed publish functions for analytics events.
// Without Redis, events are discarded.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		redisClient := do.MustInvoke[*RedisClient](i)
		logger := do.MustInvoke[*zap.Logger](i)

		publisher, err := messaging.NewRedisPublisher(redisClient.Client, logger)
		if err != nil {
			return nil, fmt.Errorf("create publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[analytics.RateLimitExceededEvent], error) {
		if do.MustInvoke[*Options](i).RedisAddr == "" {
			return messaging.Discard[analytics.RateLimitExceededEvent](), nil
		}

		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[analytics.RateLimitExceededEvent](
			group.Publisher(), analytics.TopicRateLimitExceeded), nil
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[analytics.StoriesPurgedEvent], error) {
		if do.MustInvoke[*Options](i).RedisAddr == "" {
			return messaging.Discard[analytics.StoriesPurgedEvent](), nil
		}

		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[analytics.StoriesPurgedEvent](
			group.Publisher(), analytics.TopicStoriesPurged), nil
	})
}

// ConsumerGroupPackage provides the analytics consumer group. Events are written
// to Postgres when a database is configured and logged otherwise. Without Redis
// the group has no consumers and only hosts background jobs added by the caller.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (analytics.Store, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.DatabaseURL == "" {
			return analyticsstore.NewNoop(logger), nil
		}

		pg := analyticsstore.NewPostgres(do.MustInvoke[*PostgresPool](i).Pool)

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("create analytics schema: %w", err)
		}

		return pg, nil
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.RedisAddr == "" {
			logger.Warn("no redis configured, analytics consumers disabled")

			return messaging.NewConsumerGroup(nil, logger), nil
		}

		subscriber, err := messaging.NewRedisSubscriber(do.MustInvoke[*RedisClient](i).Client, opts.ConsumerGroup, logger)
		if err != nil {
			return nil, fmt.Errorf("create subscriber: %w", err)
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(analytics.NewConsumers(subscriber, do.MustInvoke[analytics.Store](i), logger)...)

		return group, nil
	})
}
