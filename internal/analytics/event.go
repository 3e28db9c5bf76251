package analytics

import "time"

const (
	TopicRateLimitExceeded = "ratelimit.exceeded"
	TopicStoriesPurged     = "stories.purged"
)

// RateLimitExceededEvent is emitted when a caller is rejected by the rate limiter.
type RateLimitExceededEvent struct {
	Operation  string    `json:"operation"`
	UserID     string    `json:"userId"`
	Limit      int64     `json:"limit"`
	RetryAfter int64     `json:"retryAfter"`
	ResetTime  time.Time `json:"resetTime"`
	OccurredAt time.Time `json:"occurredAt"`
	ClientIP   string    `json:"clientIp"`
	UserAgent  string    `json:"userAgent"`
}

// StoriesPurgedEvent summarises one cleanup run that deleted at least one story.
type StoriesPurgedEvent struct {
	RunID        string    `json:"runId"`
	StoryIDs     []string  `json:"storyIds"`
	BlobsDeleted int       `json:"blobsDeleted"`
	BlobFailures int       `json:"blobFailures"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
}
