package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/serroba/ollo/internal/auth"
	"go.uber.org/zap"
)

// Decision describes an accepted call.
type Decision struct {
	// Count is the number of accepted calls in the window, including this one.
	Count     int64
	Remaining int64
	ResetTime time.Time
	// Bypassed is set for trusted callers, which are never counted.
	Bypassed bool
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithLogger sets the logger used for store failures.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// Limiter enforces a fixed-window limit for a single operation, one counter per caller.
type Limiter struct {
	store     Store
	operation string
	config    Config
	now       func() time.Time
	logger    *zap.Logger
}

// NewLimiter creates a limiter for operation. The config is validated here so a bad
// limit fails at startup instead of on the first call.
func NewLimiter(store Store, operation string, cfg Config, opts ...Option) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("operation %q: %w", operation, err)
	}

	l := &Limiter{
		store:     store,
		operation: operation,
		config:    cfg.withDefaults(),
		now:       time.Now,
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Config returns the effective configuration, defaults applied.
func (l *Limiter) Config() Config {
	return l.config
}

// Allow counts a call from caller against the window.
//
// Errors: ErrUnauthenticated for anonymous callers (no store access),
// *ExceededError when the window is used up, ErrInternal when the store fails.
func (l *Limiter) Allow(ctx context.Context, caller auth.Caller) (*Decision, error) {
	if caller.Trusted {
		return &Decision{Bypassed: true}, nil
	}

	if caller.Anonymous() {
		return nil, ErrUnauthenticated
	}

	decision, exceeded, err := l.hit(ctx, Key(l.operation, caller.UID))
	if err != nil {
		l.logger.Error("rate limit transaction failed",
			zap.String("operation", l.operation),
			zap.String("uid", caller.UID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("%w: rate limit check failed", ErrInternal)
	}

	if exceeded != nil {
		exceeded.Operation = l.operation

		return nil, exceeded
	}

	return decision, nil
}

func (l *Limiter) hit(ctx context.Context, key string) (*Decision, *ExceededError, error) {
	now := l.now()

	if counter, ok := l.store.(WindowCounter); ok {
		rec, allowed, err := counter.Hit(ctx, key, now, l.config.Window, l.config.MaxRequests)
		if err != nil {
			return nil, nil, err
		}

		if !allowed {
			return nil, exceededFor(rec, now, l.config), nil
		}

		return decisionFor(rec, l.config), nil, nil
	}

	var (
		decision *Decision
		exceeded *ExceededError
	)

	err := l.store.Update(ctx, key, func(current *Record) (*Record, error) {
		var next *Record

		next, decision, exceeded = evaluate(current, now, l.config)

		return next, nil
	})

	return decision, exceeded, err
}

// evaluate applies one call to the current record. It returns the record to write
// (nil for no write) together with either the decision or the rejection.
func evaluate(current *Record, now time.Time, cfg Config) (*Record, *Decision, *ExceededError) {
	if current == nil || current.Expired(now) {
		next := &Record{
			Count:     1,
			ResetTime: time.UnixMilli(now.UnixMilli() + cfg.Window.Milliseconds()).UTC(),
		}

		return next, decisionFor(next, cfg), nil
	}

	if current.Count >= cfg.MaxRequests {
		return nil, nil, exceededFor(current, now, cfg)
	}

	next := &Record{
		Count:     current.Count + 1,
		ResetTime: current.ResetTime,
	}

	return next, decisionFor(next, cfg), nil
}

func exceededFor(current *Record, now time.Time, cfg Config) *ExceededError {
	return &ExceededError{
		Message:    cfg.Message,
		RetryAfter: RetryAfterSeconds(current.ResetTime, now),
		Count:      current.Count,
		Max:        cfg.MaxRequests,
		ResetTime:  current.ResetTime,
	}
}

func decisionFor(rec *Record, cfg Config) *Decision {
	return &Decision{
		Count:     rec.Count,
		Remaining: cfg.MaxRequests - rec.Count,
		ResetTime: rec.ResetTime,
	}
}

// RetryAfterSeconds returns ceil((resetTime - now) / 1s) in whole seconds, never negative.
func RetryAfterSeconds(resetTime, now time.Time) int64 {
	remaining := resetTime.UnixMilli() - now.UnixMilli()
	if remaining <= 0 {
		return 0
	}

	return (remaining + 999) / 1000
}

// Key combines operation and identity so each operation keeps its own counters.
func Key(operation, uid string) string {
	return operation + ":" + uid
}
