package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ollo/internal/analytics"
	"github.com/serroba/ollo/internal/auth"
	"github.com/serroba/ollo/internal/messaging"
	"github.com/serroba/ollo/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	HeaderRetryAfter         = "Retry-After"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// RateLimiter returns a Huma middleware enforcing the policy for operations that
// carry a ratelimit.EndpointConfig in their metadata. Other operations pass through.
//
// Outcomes map to 401 UNAUTHENTICATED, 429 RESOURCE_EXHAUSTED with a Retry-After
// header and retryAfter detail, or a generic 500 that never carries store detail.
func RateLimiter(
	api huma.API,
	limiter *ratelimit.PolicyLimiter,
	publish messaging.Publish[analytics.RateLimitExceededEvent],
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		cfg := ratelimit.GetEndpointConfig(ctx)
		if cfg == nil || cfg.Operation == "" {
			next(ctx)

			return
		}

		if cfg.Disabled {
			logger.Debug("rate limiting disabled for endpoint",
				zap.String("operation", cfg.Operation), zap.String("method", ctx.Method()))
			next(ctx)

			return
		}

		caller := auth.CallerFromContext(ctx.Context())

		decision, err := limiter.Allow(ctx.Context(), cfg.Operation, caller)

		switch ratelimit.KindOf(err) {
		case "":
			setQuotaHeaders(ctx, decision)
			next(ctx)
		case ratelimit.KindUnauthenticated:
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "authentication required",
				&huma.ErrorDetail{Location: "code", Message: string(ratelimit.KindUnauthenticated)})
		case ratelimit.KindResourceExhausted:
			var exceeded *ratelimit.ExceededError

			errors.As(err, &exceeded)
			handleExceeded(api, ctx, exceeded, caller, publish, logger)
		default:
			if errors.Is(err, ratelimit.ErrUnknownOperation) {
				logger.Error("endpoint bound to unknown rate limit operation",
					zap.String("operation", cfg.Operation), zap.Error(err))
			}

			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error")
		}
	}
}

func setQuotaHeaders(ctx huma.Context, decision *ratelimit.Decision) {
	if decision == nil || decision.Bypassed {
		return
	}

	ctx.SetHeader(HeaderRateLimitLimit, strconv.FormatInt(decision.Count+decision.Remaining, 10))
	ctx.SetHeader(HeaderRateLimitRemaining, strconv.FormatInt(decision.Remaining, 10))
	ctx.SetHeader(HeaderRateLimitReset, strconv.FormatInt(decision.ResetTime.Unix(), 10))
}

func handleExceeded(
	api huma.API,
	ctx huma.Context,
	exceeded *ratelimit.ExceededError,
	caller auth.Caller,
	publish messaging.Publish[analytics.RateLimitExceededEvent],
	logger *zap.Logger,
) {
	info := ClientInfoFromContext(ctx.Context())

	logger.Warn("rate limit exceeded",
		zap.String("operation", exceeded.Operation),
		zap.String("uid", caller.UID),
		zap.Int64("max", exceeded.Max),
		zap.Int64("retry_after", exceeded.RetryAfter),
		zap.String("client_ip", info.IP),
	)

	event := &analytics.RateLimitExceededEvent{
		Operation:  exceeded.Operation,
		UserID:     caller.UID,
		Limit:      exceeded.Max,
		RetryAfter: exceeded.RetryAfter,
		ResetTime:  exceeded.ResetTime,
		OccurredAt: time.Now(),
		ClientIP:   info.IP,
		UserAgent:  info.UserAgent,
	}

	if err := publish(ctx.Context(), event); err != nil {
		logger.Error("failed to publish rate limit event",
			zap.String("operation", exceeded.Operation),
			zap.Error(err),
		)
	}

	ctx.SetHeader(HeaderRetryAfter, strconv.FormatInt(exceeded.RetryAfter, 10))

	_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, exceeded.Message,
		&huma.ErrorDetail{Location: "code", Message: string(ratelimit.KindResourceExhausted)},
		&huma.ErrorDetail{Location: "retryAfter", Value: exceeded.RetryAfter},
	)
}
