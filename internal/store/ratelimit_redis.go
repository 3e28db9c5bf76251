package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/ollo/internal/ratelimit"
)

// hitScript applies one fixed-window call to the hash {count, resetTime}.
// It returns {count, resetTime, allowed}; a rejected call writes nothing.
//
// KEYS[1] = record key
// ARGV[1] = now in epoch milliseconds
// ARGV[2] = window in milliseconds
// ARGV[3] = max requests per window
var hitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])

local count = tonumber(redis.call("HGET", key, "count") or "")
local reset = tonumber(redis.call("HGET", key, "resetTime") or "")

if count == nil or reset == nil or now >= reset then
    reset = now + window
    redis.call("HSET", key, "count", 1, "resetTime", reset)
    redis.call("PEXPIRE", key, window)
    return {1, reset, 1}
end

if count >= max then
    return {count, reset, 0}
end

count = redis.call("HINCRBY", key, "count", 1)
return {count, reset, 1}
`)

// RateLimitRedisStore is a Redis implementation of ratelimit.Store.
// Each record is a hash {count, resetTime}. Hit runs the whole window check in
// one Lua script; Update guards arbitrary changes with WATCH/MULTI and replays
// a transaction that loses a race until it commits or ctx ends.
type RateLimitRedisStore struct {
	client *redis.Client
	prefix string
}

// NewRateLimitRedisStore creates a new Redis-backed rate limit store.
func NewRateLimitRedisStore(client *redis.Client) *RateLimitRedisStore {
	return &RateLimitRedisStore{
		client: client,
		prefix: "ratelimit:",
	}
}

func (r *RateLimitRedisStore) Hit(
	ctx context.Context,
	key string,
	now time.Time,
	window time.Duration,
	maxRequests int64,
) (*ratelimit.Record, bool, error) {
	res, err := hitScript.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixMilli(), window.Milliseconds(), maxRequests,
	).Int64Slice()
	if err != nil {
		return nil, false, fmt.Errorf("rate limit hit for %q: %w", key, err)
	}

	if len(res) != 3 {
		return nil, false, fmt.Errorf("rate limit hit for %q: unexpected reply %v", key, res)
	}

	rec := &ratelimit.Record{
		Count:     res[0],
		ResetTime: time.UnixMilli(res[1]).UTC(),
	}

	return rec, res[2] == 1, nil
}

func (r *RateLimitRedisStore) Update(ctx context.Context, key string, fn ratelimit.UpdateFunc) error {
	redisKey := r.prefix + key

	txf := func(tx *redis.Tx) error {
		current, err := r.read(ctx, tx, redisKey)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil || next == nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, redisKey,
				"count", next.Count,
				"resetTime", next.ResetTime.UnixMilli(),
			)
			// TTL only reclaims idle keys; window logic reads resetTime.
			if ttl := time.Until(next.ResetTime); ttl > 0 {
				pipe.PExpire(ctx, redisKey, ttl)
			}

			return nil
		})

		return err
	}

	var txErr error

	// A lost race means another writer committed, so replaying always makes
	// progress. The loop ends on commit, on any other error, or with ctx.
	err := retry.Retry(func(_ uint) error {
		txErr = r.client.Watch(ctx, txf, redisKey)
		if errors.Is(txErr, redis.TxFailedErr) && ctx.Err() == nil {
			return txErr
		}

		return nil
	},
		strategy.Backoff(backoff.Incremental(0, 100*time.Microsecond)),
	)
	if err != nil {
		return fmt.Errorf("rate limit transaction for %q: %w", key, err)
	}

	return txErr
}

func (r *RateLimitRedisStore) read(ctx context.Context, tx *redis.Tx, redisKey string) (*ratelimit.Record, error) {
	vals, err := tx.HGetAll(ctx, redisKey).Result()
	if err != nil {
		return nil, err
	}

	if len(vals) == 0 {
		return nil, nil
	}

	count, err := strconv.ParseInt(vals["count"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse count of %q: %w", redisKey, err)
	}

	resetMs, err := strconv.ParseInt(vals["resetTime"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse resetTime of %q: %w", redisKey, err)
	}

	return &ratelimit.Record{
		Count:     count,
		ResetTime: time.UnixMilli(resetMs).UTC(),
	}, nil
}

// Compile-time checks.
var (
	_ ratelimit.Store         = (*RateLimitRedisStore)(nil)
	_ ratelimit.WindowCounter = (*RateLimitRedisStore)(nil)
)
