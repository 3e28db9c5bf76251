package ratelimit

import (
	"context"
	"time"
)

// Record is the persisted counter for one operation and identity.
type Record struct {
	// Count is the number of accepted calls in the current window.
	Count int64
	// ResetTime is when the window ends, at millisecond precision.
	ResetTime time.Time
}

// Expired reports whether the window has ended at now.
func (r *Record) Expired(now time.Time) bool {
	return now.UnixMilli() >= r.ResetTime.UnixMilli()
}

// UpdateFunc computes the next record from the current one (nil when none is stored).
// Returning a nil record leaves the stored state untouched.
type UpdateFunc func(current *Record) (next *Record, err error)

// Store defines the interface for rate limit data storage.
type Store interface {
	// Update runs fn against the record stored under key as one atomic
	// read-modify-write. Implementations that retry on conflict may call fn
	// more than once; only the last invocation's result is committed.
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// WindowCounter is implemented by stores that can apply one fixed-window hit in
// a single server-side step. The limiter prefers it over Update, so the
// read-check-write never races and never needs a retry.
type WindowCounter interface {
	// Hit counts a call at now against the window stored under key. When the
	// window is used up nothing is written, allowed is false and rec is the
	// stored record. Otherwise rec is the record after the call.
	Hit(ctx context.Context, key string, now time.Time, window time.Duration, maxRequests int64) (rec *Record, allowed bool, err error)
}
