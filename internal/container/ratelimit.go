package container

import (
	"fmt"
	"time"

	"github.com/samber/do"
	"github.com/serroba/ollo/internal/handlers"
	"github.com/serroba/ollo/internal/ratelimit"
	"github.com/serroba/ollo/internal/store"
	"go.uber.org/zap"
)

// DefaultPolicy is used when no policy file is configured.
func DefaultPolicy() *ratelimit.Policy {
	return ratelimit.NewPolicyBuilder().
		AddLimit(handlers.OperationCreateStory, 10, time.Minute).
		AddLimit(handlers.OperationDeleteStory, 30, time.Minute).
		Build()
}

func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (ratelimit.Store, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.RateLimitStore {
		case RateLimitStoreMemory:
			return store.NewRateLimitMemoryStore(), nil
		case RateLimitStoreRedis:
			return store.NewRateLimitRedisStore(do.MustInvoke[*RedisClient](i).Client), nil
		case RateLimitStoreSQLite:
			return do.MustInvoke[*store.RateLimitSQLiteStore](i), nil
		case RateLimitStorePostgres:
			return store.NewRateLimitPostgresStore(do.MustInvoke[*PostgresPool](i).Pool), nil
		default:
			return nil, fmt.Errorf("unknown rate limit store %q", opts.RateLimitStore)
		}
	})

	do.Provide(injector, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		rateLimitStore := do.MustInvoke[ratelimit.Store](i)

		policy := DefaultPolicy()

		if opts.PolicyFile != "" {
			loaded, err := ratelimit.LoadPolicyFile(opts.PolicyFile, policy)
			if err != nil {
				return nil, err
			}

			policy = loaded
		}

		limiter, err := ratelimit.NewPolicyLimiter(rateLimitStore, policy, ratelimit.WithLogger(logger))
		if err != nil {
			return nil, err
		}

		for _, op := range policy.Operations() {
			l, _ := limiter.Limiter(op)
			cfg := l.Config()

			logger.Info("rate limit configured",
				zap.String("operation", op),
				zap.Int64("max_requests", cfg.MaxRequests),
				zap.Duration("window", cfg.Window),
				zap.String("message", cfg.Message),
				zap.String("store", opts.RateLimitStore),
			)
		}

		return limiter, nil
	})
}
