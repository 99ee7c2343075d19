package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tradepost-io/tradepost-backend/api/responses"
	pkgerrors "github.com/tradepost-io/tradepost-backend/pkg/errors"
	"github.com/tradepost-io/tradepost-backend/pkg/logger"
)

type contextKey string

const ctxAccountID contextKey = "account_id"

const accountIDHeader = "X-Account-Id"

// AccountIDFromContext returns the caller's account id, or uuid.Nil when no
// account context was established.
func AccountIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxAccountID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// WithAccountID injects the account identifier into the context.
func WithAccountID(ctx context.Context, accountID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAccountID, accountID)
}

// AccountContext resolves the authenticated account from the gateway-set
// X-Account-Id header. Identity verification happens upstream; this service
// only requires that the header carries a well-formed account id.
func AccountContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(accountIDHeader)
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "account context missing"))
				return
			}
			accountID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid account id"))
				return
			}

			ctx := WithAccountID(r.Context(), accountID)
			if logg != nil {
				ctx = logg.WithField(ctx, "account_id", accountID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
