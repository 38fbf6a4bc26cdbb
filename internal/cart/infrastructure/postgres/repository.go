package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/storefront/internal/cart/domain"
	"github.com/dmehra2102/storefront/pkg/pgutil"
)

// Repository stores each cart as one row with its lines in a JSONB column,
// keyed by the owning user.
type Repository struct {
	log *slog.Logger
	db  pgutil.DBTX
}

func NewRepository(log *slog.Logger, db pgutil.DBTX) *Repository {
	return &Repository{log: log, db: db}
}

const selectCart = `SELECT id, user_id, items, total_cents, created_at, updated_at FROM carts WHERE user_id = $1`

func (r *Repository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	return r.get(ctx, selectCart, userID)
}

// GetForUpdate locks the cart row so a placement sees a stable set of lines.
func (r *Repository) GetForUpdate(ctx context.Context, userID string) (domain.Cart, error) {
	return r.get(ctx, selectCart+" FOR UPDATE", userID)
}

func (r *Repository) get(ctx context.Context, query, userID string) (domain.Cart, error) {
	var c domain.Cart
	err := r.db.QueryRow(ctx, query, userID).
		Scan(&c.ID, &c.UserID, &c.Items, &c.TotalCents, &c.CreatedAt, &c.UpdatedAt)
	if pgutil.IsNoRows(err) {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("get cart for %s: %w", userID, err)
	}
	if c.Items == nil {
		c.Items = []domain.Item{}
	}
	return c, nil
}

// Save upserts the user's cart. When another request created the row first,
// c takes over the stored id and creation time.
func (r *Repository) Save(ctx context.Context, c *domain.Cart) error {
	c.Recalculate()
	err := r.db.QueryRow(ctx, `
		INSERT INTO carts (user_id, id, items, total_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET items = $3, total_cents = $4, updated_at = $6
		RETURNING id, created_at`,
		c.UserID, c.ID, c.Items, c.TotalCents, c.CreatedAt, c.UpdatedAt).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("save cart for %s: %w", c.UserID, err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete cart for %s: %w", userID, err)
	}
	return nil
}
