package idempotency

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSeenClaimsOnce(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewStore(client, time.Minute)
	ctx := context.Background()

	key := store.Key("order.events", 0, 42)
	assert.Equal(t, "idem:order.events:0:42", key)

	seen, err := store.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = store.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)

	mr.FastForward(2 * time.Minute)
	seen, err = store.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen, "claim should expire with the ttl")
}

func TestMiddleware(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewStore(client, time.Minute)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	status := http.StatusCreated
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	})
	h := Middleware(log, store, "place-order", func(r *http.Request) string { return r.Header.Get("X-User-ID") })(next)

	do := func(user, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`))
		req.Header.Set("X-User-ID", user)
		if key != "" {
			req.Header.Set(HeaderKey, key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("no key passes through", func(t *testing.T) {
		assert.Equal(t, http.StatusCreated, do("u1", "").Code)
		assert.Equal(t, http.StatusCreated, do("u1", "").Code)
	})

	t.Run("replay is rejected", func(t *testing.T) {
		calls = 0
		assert.Equal(t, http.StatusCreated, do("u1", "k1").Code)
		assert.Equal(t, http.StatusConflict, do("u1", "k1").Code)
		assert.Equal(t, 1, calls)
	})

	t.Run("keys are per user", func(t *testing.T) {
		assert.Equal(t, http.StatusCreated, do("u2", "k1").Code)
	})

	t.Run("failure releases the key", func(t *testing.T) {
		status = http.StatusBadRequest
		assert.Equal(t, http.StatusBadRequest, do("u1", "k2").Code)
		status = http.StatusCreated
		assert.Equal(t, http.StatusCreated, do("u1", "k2").Code)
	})

	t.Run("oversized key", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, do("u1", strings.Repeat("x", 200)).Code)
	})
}

func TestMiddlewareReleasesKeyWhenHandlerPanics(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewStore(client, time.Minute)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	fail := true
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			panic("nil map write")
		}
		w.WriteHeader(http.StatusCreated)
	})
	h := middleware.Recoverer(Middleware(log, store, "place-order", func(r *http.Request) string { return "u1" })(next))

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`))
		req.Header.Set(HeaderKey, "k-panic")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusInternalServerError, do())
	fail = false
	assert.Equal(t, http.StatusCreated, do(), "retry after a panic must not be rejected as a replay")
	assert.Equal(t, http.StatusConflict, do())
}
