package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tradepost-io/tradepost-backend/api/responses"
	pkgerrors "github.com/tradepost-io/tradepost-backend/pkg/errors"
	"github.com/tradepost-io/tradepost-backend/pkg/logger"
)

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit applies a fixed-window limit per account on write endpoints.
// A limiter outage fails open; order creation must not depend on redis.
func RateLimit(limiter rateLimiter, logg *logger.Logger, scope string, limit int64, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := scope
			if accountID := AccountIDFromContext(ctx); accountID != uuid.Nil {
				key = scope + ":" + accountID.String()
			}

			allowed, count, err := limiter.FixedWindowAllow(ctx, key, limit, window)
			if err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "scope", scope), "rate limiter unavailable, failing open")
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{"scope": scope, "count": count})
					logg.Warn(ctx, "request rate limited")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
