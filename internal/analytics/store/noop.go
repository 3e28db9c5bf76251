package store

import (
	"context"

	"github.com/serroba/ollo/internal/analytics"
	"go.uber.org/zap"
)

// Noop is a no-op implementation of analytics.Store that logs events.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new no-op analytics store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SaveRateLimitExceeded(_ context.Context, event *analytics.RateLimitExceededEvent) error {
	n.logger.Info("rate limit exceeded event received",
		zap.String("operation", event.Operation),
		zap.String("userId", event.UserID),
		zap.Int64("retryAfter", event.RetryAfter),
		zap.Time("occurredAt", event.OccurredAt),
	)

	return nil
}

func (n *Noop) SaveStoriesPurged(_ context.Context, event *analytics.StoriesPurgedEvent) error {
	n.logger.Info("stories purged event received",
		zap.String("runId", event.RunID),
		zap.Int("stories", len(event.StoryIDs)),
		zap.Int("blobFailures", event.BlobFailures),
		zap.Time("finishedAt", event.FinishedAt),
	)

	return nil
}
