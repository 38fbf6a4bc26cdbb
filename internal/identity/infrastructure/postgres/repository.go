package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/storefront/internal/identity/domain"
	"github.com/dmehra2102/storefront/pkg/pgutil"
)

type Repository struct {
	log *slog.Logger
	db  pgutil.DBTX
}

func NewRepository(log *slog.Logger, db pgutil.DBTX) *Repository {
	return &Repository{log: log, db: db}
}

const selectUser = `SELECT id, first_name, last_name, email, role, is_active, is_verified FROM users WHERE id = $1`

func (r *Repository) Get(ctx context.Context, id string) (domain.User, error) {
	return r.get(ctx, selectUser, id)
}

// GetForUpdate row-locks the user until the enclosing transaction ends.
func (r *Repository) GetForUpdate(ctx context.Context, id string) (domain.User, error) {
	return r.get(ctx, selectUser+" FOR UPDATE", id)
}

func (r *Repository) get(ctx context.Context, query, id string) (domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, query, id).
		Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Role, &u.IsActive, &u.IsVerified)
	if pgutil.IsNoRows(err) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	ct, err := r.db.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set user %s active=%t: %w", id, active, err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
