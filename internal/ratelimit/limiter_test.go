package ratelimit_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/serroba/ollo/internal/auth"
	"github.com/serroba/ollo/internal/ratelimit"
	"github.com/serroba/ollo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStore = errors.New("store unavailable")

var epoch = time.Date(2024, time.June, 23, 10, 15, 30, 0, time.UTC)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Set(offset time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = epoch.Add(offset)
}

// countingStore records how often the limiter touches the store.
type countingStore struct {
	inner ratelimit.Store
	calls atomic.Int64
	err   error
}

func (s *countingStore) Update(ctx context.Context, key string, fn ratelimit.UpdateFunc) error {
	s.calls.Add(1)

	if s.err != nil {
		return s.err
	}

	return s.inner.Update(ctx, key, fn)
}

// jitterStore sleeps a random amount before delegating, to shuffle arrival order.
type jitterStore struct {
	inner ratelimit.Store
}

func (s *jitterStore) Update(ctx context.Context, key string, fn ratelimit.UpdateFunc) error {
	time.Sleep(time.Duration(rand.IntN(500)) * time.Microsecond)

	return s.inner.Update(ctx, key, fn)
}

var user1 = auth.Caller{UID: "U1"}

func newLimiter(t *testing.T, s ratelimit.Store, clock *fakeClock, maxRequests int64) *ratelimit.Limiter {
	t.Helper()

	limiter, err := ratelimit.NewLimiter(s, "createStory",
		ratelimit.ConfigFromMillis(60000, maxRequests, ""),
		ratelimit.WithClock(clock.Now),
	)
	require.NoError(t, err)

	return limiter
}

func TestLimiter_Allow(t *testing.T) {
	t.Run("worked example: three allowed then rejected then fresh window", func(t *testing.T) {
		clock := newFakeClock()
		limiter := newLimiter(t, store.NewRateLimitMemoryStore(), clock, 3)

		for i := range 3 {
			clock.Set(time.Duration(i) * time.Millisecond)

			decision, err := limiter.Allow(context.Background(), user1)

			require.NoError(t, err)
			assert.Equal(t, int64(i+1), decision.Count)
			assert.Equal(t, int64(3-(i+1)), decision.Remaining)
		}

		clock.Set(3 * time.Millisecond)

		decision, err := limiter.Allow(context.Background(), user1)

		assert.Nil(t, decision)

		var exceeded *ratelimit.ExceededError
		require.ErrorAs(t, err, &exceeded)
		assert.Equal(t, int64(60), exceeded.RetryAfter)
		assert.Equal(t, ratelimit.DefaultMessage, exceeded.Message)
		assert.Equal(t, "createStory", exceeded.Operation)
		assert.Equal(t, ratelimit.KindResourceExhausted, ratelimit.KindOf(err))

		clock.Set(61000 * time.Millisecond)

		decision, err = limiter.Allow(context.Background(), user1)

		require.NoError(t, err)
		assert.Equal(t, int64(1), decision.Count)
		assert.Equal(t, epoch.Add(121*time.Second), decision.ResetTime)
	})

	t.Run("rejection does not mutate the record", func(t *testing.T) {
		clock := newFakeClock()
		memStore := store.NewRateLimitMemoryStore()
		limiter := newLimiter(t, memStore, clock, 2)

		for range 2 {
			_, err := limiter.Allow(context.Background(), user1)
			require.NoError(t, err)
		}

		before, ok := memStore.Get(ratelimit.Key("createStory", "U1"))
		require.True(t, ok)

		for range 5 {
			clock.Set(30 * time.Second)

			_, err := limiter.Allow(context.Background(), user1)
			require.Error(t, err)
		}

		after, _ := memStore.Get(ratelimit.Key("createStory", "U1"))
		assert.Equal(t, before, after)
		assert.Equal(t, int64(2), after.Count)
	})

	t.Run("expired window starts fresh regardless of previous count", func(t *testing.T) {
		for _, previous := range []int64{1, 3, 1000} {
			clock := newFakeClock()
			memStore := store.NewRateLimitMemoryStore()
			key := ratelimit.Key("createStory", "U1")

			memStore.Put(key, ratelimit.Record{Count: previous, ResetTime: epoch})

			limiter := newLimiter(t, memStore, clock, 3)

			decision, err := limiter.Allow(context.Background(), user1)

			require.NoError(t, err, "previous count %d", previous)
			assert.Equal(t, int64(1), decision.Count)

			rec, _ := memStore.Get(key)
			assert.Equal(t, int64(1), rec.Count)
			assert.Equal(t, epoch.Add(time.Minute), rec.ResetTime)
		}
	})

	t.Run("anonymous caller is rejected before store access", func(t *testing.T) {
		counting := &countingStore{inner: store.NewRateLimitMemoryStore()}
		limiter := newLimiter(t, counting, newFakeClock(), 3)

		decision, err := limiter.Allow(context.Background(), auth.Caller{})

		assert.Nil(t, decision)
		require.ErrorIs(t, err, ratelimit.ErrUnauthenticated)
		assert.Equal(t, ratelimit.KindUnauthenticated, ratelimit.KindOf(err))
		assert.Zero(t, counting.calls.Load())
	})

	t.Run("trusted caller bypasses the limiter", func(t *testing.T) {
		counting := &countingStore{inner: store.NewRateLimitMemoryStore()}
		limiter := newLimiter(t, counting, newFakeClock(), 1)

		for range 5 {
			decision, err := limiter.Allow(context.Background(), auth.Caller{Trusted: true})

			require.NoError(t, err)
			assert.True(t, decision.Bypassed)
		}

		assert.Zero(t, counting.calls.Load())
	})

	t.Run("store failure surfaces as internal error", func(t *testing.T) {
		counting := &countingStore{err: errStore}
		limiter := newLimiter(t, counting, newFakeClock(), 3)

		decision, err := limiter.Allow(context.Background(), user1)

		assert.Nil(t, decision)
		require.ErrorIs(t, err, ratelimit.ErrInternal)
		assert.NotErrorIs(t, err, errStore, "store detail must not leak to the caller")
		assert.Equal(t, ratelimit.KindInternal, ratelimit.KindOf(err))
	})

	t.Run("tracks identities independently", func(t *testing.T) {
		limiter := newLimiter(t, store.NewRateLimitMemoryStore(), newFakeClock(), 1)

		_, err := limiter.Allow(context.Background(), user1)
		require.NoError(t, err)

		_, err = limiter.Allow(context.Background(), user1)
		require.Error(t, err)

		decision, err := limiter.Allow(context.Background(), auth.Caller{UID: "U2"})

		require.NoError(t, err)
		assert.Equal(t, int64(1), decision.Count)
	})
}

func TestLimiter_ConcurrentCallsAdmitExactlyMax(t *testing.T) {
	const (
		callers     = 64
		maxRequests = 7
	)

	for round := range 5 {
		memStore := &jitterStore{inner: store.NewRateLimitMemoryStore()}
		limiter, err := ratelimit.NewLimiter(memStore, "createStory", ratelimit.Config{
			Window:      time.Minute,
			MaxRequests: maxRequests,
		})
		require.NoError(t, err)

		var (
			wg       sync.WaitGroup
			allowed  atomic.Int64
			rejected atomic.Int64
		)

		for range callers {
			wg.Add(1)

			go func() {
				defer wg.Done()

				_, err := limiter.Allow(context.Background(), user1)
				if err == nil {
					allowed.Add(1)

					return
				}

				var exceeded *ratelimit.ExceededError
				if errors.As(err, &exceeded) {
					rejected.Add(1)
				}
			}()
		}

		wg.Wait()

		assert.Equal(t, int64(maxRequests), allowed.Load(), "round %d", round)
		assert.Equal(t, int64(callers-maxRequests), rejected.Load(), "round %d", round)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		name      string
		remaining time.Duration
		expected  int64
	}{
		{name: "exact seconds", remaining: 60 * time.Second, expected: 60},
		{name: "rounds partial second up", remaining: 1500 * time.Millisecond, expected: 2},
		{name: "one millisecond left", remaining: time.Millisecond, expected: 1},
		{name: "window already over", remaining: 0, expected: 0},
		{name: "never negative", remaining: -5 * time.Second, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ratelimit.RetryAfterSeconds(epoch.Add(tt.remaining), epoch)

			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNewLimiter_ValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  ratelimit.Config
	}{
		{name: "zero window", cfg: ratelimit.Config{MaxRequests: 1}},
		{name: "sub-millisecond window", cfg: ratelimit.Config{Window: time.Microsecond, MaxRequests: 1}},
		{name: "zero max", cfg: ratelimit.Config{Window: time.Second}},
		{name: "negative max", cfg: ratelimit.Config{Window: time.Second, MaxRequests: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := ratelimit.NewLimiter(store.NewRateLimitMemoryStore(), "op", tt.cfg)

			assert.Nil(t, limiter)
			assert.ErrorIs(t, err, ratelimit.ErrInvalidConfig)
		})
	}

	t.Run("applies default message", func(t *testing.T) {
		limiter, err := ratelimit.NewLimiter(store.NewRateLimitMemoryStore(), "op",
			ratelimit.Config{Window: time.Second, MaxRequests: 1})

		require.NoError(t, err)
		assert.Equal(t, ratelimit.DefaultMessage, limiter.Config().Message)
	})

	t.Run("keeps custom message", func(t *testing.T) {
		limiter, err := ratelimit.NewLimiter(store.NewRateLimitMemoryStore(), "op",
			ratelimit.Config{Window: time.Second, MaxRequests: 1, Message: "slow down"})

		require.NoError(t, err)
		assert.Equal(t, "slow down", limiter.Config().Message)
	})
}

func TestLimiter_ResetTimeIsUTC(t *testing.T) {
	local := time.FixedZone("CEST", 2*60*60)
	limiter, err := ratelimit.NewLimiter(store.NewRateLimitMemoryStore(), "createStory",
		ratelimit.Config{Window: time.Minute, MaxRequests: 1},
		ratelimit.WithClock(func() time.Time { return epoch.In(local) }))
	require.NoError(t, err)

	decision, err := limiter.Allow(context.Background(), user1)
	require.NoError(t, err)

	assert.Equal(t, epoch.Add(time.Minute), decision.ResetTime)
	assert.Equal(t, time.UTC, decision.ResetTime.Location())
}

// scriptedCounter answers Hit from a fixed reply and fails Update.
type scriptedCounter struct {
	rec     ratelimit.Record
	allowed bool
	hits    atomic.Int64
}

func (s *scriptedCounter) Update(context.Context, string, ratelimit.UpdateFunc) error {
	return errors.New("update must not be used when Hit is available")
}

func (s *scriptedCounter) Hit(
	_ context.Context, key string, now time.Time, window time.Duration, maxRequests int64,
) (*ratelimit.Record, bool, error) {
	s.hits.Add(1)

	if key != ratelimit.Key("createStory", "U1") || !now.Equal(epoch) || window != time.Minute || maxRequests != 3 {
		return nil, false, errors.New("unexpected hit arguments")
	}

	rec := s.rec

	return &rec, s.allowed, nil
}

func TestLimiter_PrefersWindowCounter(t *testing.T) {
	t.Run("allowed hit becomes a decision", func(t *testing.T) {
		counter := &scriptedCounter{rec: ratelimit.Record{Count: 2, ResetTime: epoch.Add(time.Minute)}, allowed: true}
		limiter := newLimiter(t, counter, newFakeClock(), 3)

		decision, err := limiter.Allow(context.Background(), user1)

		require.NoError(t, err)
		assert.Equal(t, int64(2), decision.Count)
		assert.Equal(t, int64(1), decision.Remaining)
		assert.Equal(t, int64(1), counter.hits.Load())
	})

	t.Run("rejected hit becomes an exceeded error", func(t *testing.T) {
		counter := &scriptedCounter{rec: ratelimit.Record{Count: 3, ResetTime: epoch.Add(1500 * time.Millisecond)}}
		limiter := newLimiter(t, counter, newFakeClock(), 3)

		_, err := limiter.Allow(context.Background(), user1)

		var exceeded *ratelimit.ExceededError
		require.ErrorAs(t, err, &exceeded)
		assert.Equal(t, int64(2), exceeded.RetryAfter)
		assert.Equal(t, int64(3), exceeded.Max)
		assert.Equal(t, "createStory", exceeded.Operation)
	})
}
