package analytics

import "context"

// Store defines the interface for persisting analytics events.
type Store interface {
	SaveRateLimitExceeded(ctx context.Context, event *RateLimitExceededEvent) error
	SaveStoriesPurged(ctx context.Context, event *StoriesPurgedEvent) error
}
