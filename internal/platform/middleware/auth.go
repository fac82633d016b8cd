package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"pharmachain/pkg/domain"
	dErrors "pharmachain/pkg/domain-errors"
	"pharmachain/pkg/platform/httputil"
	"pharmachain/pkg/requestcontext"
)

// CallerResolver turns a bearer token into the caller's address.
type CallerResolver interface {
	Resolve(token string) (domain.Address, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved caller in the context.
func RequireAuth(resolver CallerResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			caller, err := resolver.Resolve(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
		})
	}
}
