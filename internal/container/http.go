package container

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/ollo/internal/analytics"
	"github.com/serroba/ollo/internal/auth"
	"github.com/serroba/ollo/internal/handlers"
	"github.com/serroba/ollo/internal/health"
	"github.com/serroba/ollo/internal/messaging"
	"github.com/serroba/ollo/internal/middleware"
	"github.com/serroba/ollo/internal/ratelimit"
	"github.com/serroba/ollo/internal/story"
	"go.uber.org/zap"
)

func AuthPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*auth.HMACVerifier, error) {
		return auth.NewHMACVerifier(do.MustInvoke[*Options](i).AuthSecret)
	})
}

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		api := humachi.New(router, huma.DefaultConfig("OLLO API", "1.0.0"))

		api.UseMiddleware(
			middleware.RequestMeta(api),
			middleware.Authenticate(do.MustInvoke[*auth.HMACVerifier](i), opts.InternalToken, logger),
			middleware.RateLimiter(
				api,
				do.MustInvoke[*ratelimit.PolicyLimiter](i),
				do.MustInvoke[messaging.Publish[analytics.RateLimitExceededEvent]](i),
				logger,
			),
		)

		handlers.RegisterRoutes(api, handlers.NewStoryHandler(do.MustInvoke[*story.Service](i), logger))
		health.RegisterRoutes(api, health.NewHandler(healthCheckers(i, opts)))

		return api, nil
	})
}

func healthCheckers(i *do.Injector, opts *Options) map[string]health.Checker {
	checkers := make(map[string]health.Checker)

	if opts.RedisAddr != "" {
		checkers["redis"] = health.NewRedisChecker(do.MustInvoke[*RedisClient](i).Client)
	}

	if opts.DatabaseURL != "" {
		checkers["postgres"] = health.NewPostgresChecker(do.MustInvoke[*PostgresPool](i).Pool)
	}

	return checkers
}
