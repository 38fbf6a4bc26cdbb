package idempotency

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/httpx"
)

const HeaderKey = "Idempotency-Key"

const maxClientKeyLen = 128

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Middleware rejects replays of a request carrying the same Idempotency-Key
// for the same user. A request that fails or panics releases its key so it can
// be resent.
// userID extracts the caller identity; requests without a key pass through.
func Middleware(log *slog.Logger, store *Store, scope string, userID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := r.Header.Get(HeaderKey)
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(clientKey) > maxClientKeyLen {
				httpx.Error(w, r, log, apperr.InvalidInput("%s must be at most %d characters", HeaderKey, maxClientKeyLen))
				return
			}

			key := store.RequestKey(scope, userID(r), clientKey)
			seen, err := store.Seen(r.Context(), key)
			if err != nil {
				// redis down: do not block orders on the dedupe layer
				log.Error("idempotency check failed", "key", key, "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if seen {
				httpx.Error(w, r, log, apperr.New(apperr.KindConflict, "a request with this %s was already processed", HeaderKey))
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			release := func() {
				if err := store.Release(context.WithoutCancel(r.Context()), key); err != nil {
					log.Error("idempotency release failed", "key", key, "err", err)
				}
			}
			// a panicking handler never recorded a status; free the key before the
			// panic reaches the recoverer
			defer func() {
				if p := recover(); p != nil {
					release()
					panic(p)
				}
				if rec.status >= http.StatusBadRequest {
					release()
				}
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
