package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ollo/internal/auth"
	"go.uber.org/zap"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderInternalToken = "X-Internal-Token"
)

// Authenticate resolves the caller and stores it in the request context.
// It never rejects: an invalid token leaves the caller anonymous and the
// protected operation decides what to do with that.
func Authenticate(
	verifier auth.Verifier,
	internalToken string,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		var caller auth.Caller

		if token, ok := strings.CutPrefix(ctx.Header(HeaderAuthorization), "Bearer "); ok {
			uid, err := verifier.Verify(ctx.Context(), strings.TrimSpace(token))
			if err != nil {
				logger.Debug("rejected bearer token", zap.Error(err))
			} else {
				caller.UID = uid
			}
		}

		if internalToken != "" {
			presented := ctx.Header(HeaderInternalToken)
			caller.Trusted = subtle.ConstantTimeCompare([]byte(presented), []byte(internalToken)) == 1
		}

		ctx = huma.WithContext(ctx, auth.ContextWithCaller(ctx.Context(), caller))

		next(ctx)
	}
}
