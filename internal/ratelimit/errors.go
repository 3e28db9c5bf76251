package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the error kind reported to callers of a protected operation.
type Kind string

const (
	KindUnauthenticated   Kind = "UNAUTHENTICATED"
	KindResourceExhausted Kind = "RESOURCE_EXHAUSTED"
	KindInternal          Kind = "INTERNAL"
)

var (
	// ErrUnauthenticated is returned before any store access when the caller has no identity.
	ErrUnauthenticated = errors.New("unauthenticated: caller identity required")
	// ErrInternal wraps unexpected store failures. Nothing was committed.
	ErrInternal = errors.New("internal error")
	// ErrUnknownOperation is returned when no limit is configured for an operation.
	ErrUnknownOperation = errors.New("no rate limit configured for operation")
)

// ExceededError is returned when a caller has used up its window.
type ExceededError struct {
	Operation string
	Message   string
	// RetryAfter is the number of whole seconds until the window resets.
	RetryAfter int64
	Count      int64
	Max        int64
	ResetTime  time.Time
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("%s (retry after %ds)", e.Message, e.RetryAfter)
}

// KindOf classifies an error returned by a limiter.
func KindOf(err error) Kind {
	var exceeded *ExceededError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.As(err, &exceeded):
		return KindResourceExhausted
	default:
		return KindInternal
	}
}
