package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeLimiter struct {
	allowed bool
	count   int64
	err     error
	scopes  []string
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, _ int64, _ time.Duration) (bool, int64, error) {
	f.scopes = append(f.scopes, scope)
	return f.allowed, f.count, f.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRateLimitAllowsUnderLimit(t *testing.T) {
	t.Parallel()

	limiter := &fakeLimiter{allowed: true}
	handler := RateLimit(limiter, testLogger(), "orders:create", 10, time.Minute)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimitBlocksOverLimit(t *testing.T) {
	t.Parallel()

	limiter := &fakeLimiter{allowed: false, count: 11}
	handler := RateLimit(limiter, testLogger(), "orders:create", 10, time.Minute)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimitFailsOpenOnLimiterError(t *testing.T) {
	t.Parallel()

	limiter := &fakeLimiter{err: errors.New("redis down")}
	handler := RateLimit(limiter, testLogger(), "orders:create", 10, time.Minute)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimitScopesPerAccount(t *testing.T) {
	t.Parallel()

	limiter := &fakeLimiter{allowed: true}
	handler := RateLimit(limiter, testLogger(), "orders:create", 10, time.Minute)(okHandler())

	accountCtx := WithAccountID(context.Background(), uuid.New())
	req := httptest.NewRequest("POST", "/", nil).WithContext(accountCtx)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Len(t, limiter.scopes, 1)
	assert.Contains(t, limiter.scopes[0], "orders:create:")
}
