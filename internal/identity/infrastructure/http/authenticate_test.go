package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/internal/identity/domain"
)

type fakeUsers map[string]domain.User

func (f fakeUsers) Get(ctx context.Context, id string) (domain.User, error) {
	if id == "boom" {
		return domain.User{}, errors.New("db down")
	}
	u, ok := f[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func TestAuthenticate(t *testing.T) {
	const known = "0b7e4a3c-9f0a-4b43-8d8e-1f3c2a9d6e11"
	const roleless = "0b7e4a3c-9f0a-4b43-8d8e-1f3c2a9d6e12"
	users := fakeUsers{
		known:    {ID: known, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Role: domain.RoleManager},
		roleless: {ID: roleless, Role: domain.Role("guest")},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	var got domain.Actor
	h := Authenticate(log, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = domain.ActorFrom(r.Context())
		assert.Equal(t, known, ActorID(r))
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed id", "not-a-uuid", http.StatusUnauthorized},
		{"unknown user", "7d1f6b7e-2222-4c1b-9a3e-5d4c3b2a1f00", http.StatusUnauthorized},
		{"unrecognised role", roleless, http.StatusForbidden},
		{"known user", known, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/cart", nil)
			if tc.header != "" {
				req.Header.Set(HeaderUserID, tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tc.want, rec.Code)
		})
	}

	assert.Equal(t, domain.Actor{ID: known, Role: domain.RoleManager, Email: "ada@example.com", Name: "Ada Lovelace"}, got)
}
