package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmehra2102/storefront/internal/identity/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/httpx"
)

// HeaderUserID carries the caller identity asserted by the upstream gateway.
const HeaderUserID = "X-User-ID"

type UserReader interface {
	Get(ctx context.Context, id string) (domain.User, error)
}

// Authenticate resolves the caller into a domain.Actor stored on the request
// context. Unknown or malformed identities get 401.
func Authenticate(log *slog.Logger, users UserReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderUserID)
			if _, err := uuid.Parse(id); err != nil {
				httpx.Error(w, r, log, apperr.New(apperr.KindUnauthenticated, "authentication required"))
				return
			}
			u, err := users.Get(r.Context(), id)
			if errors.Is(err, domain.ErrUserNotFound) {
				httpx.Error(w, r, log, apperr.New(apperr.KindUnauthenticated, "unknown user"))
				return
			}
			if err != nil {
				httpx.Error(w, r, log, apperr.Internalize(err, "failed to load user"))
				return
			}
			if !u.Role.Valid() {
				httpx.Error(w, r, log, apperr.Forbidden("account has no valid role"))
				return
			}
			next.ServeHTTP(w, r.WithContext(domain.WithActor(r.Context(), domain.ActorOf(u))))
		})
	}
}

// ActorID returns the authenticated caller id, or "" before Authenticate ran.
func ActorID(r *http.Request) string {
	a, _ := domain.ActorFrom(r.Context())
	return a.ID
}
