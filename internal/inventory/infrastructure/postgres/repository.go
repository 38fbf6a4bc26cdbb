package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/storefront/internal/inventory/domain"
	"github.com/dmehra2102/storefront/pkg/pgutil"
)

type Repository struct {
	log *slog.Logger
	db  pgutil.DBTX
}

func NewRepository(log *slog.Logger, db pgutil.DBTX) *Repository {
	return &Repository{log: log, db: db}
}

const selectProduct = `SELECT id, name, price_cents, quantity, image, is_active, is_featured FROM products WHERE id = $1`

func (r *Repository) Get(ctx context.Context, id string) (domain.Product, error) {
	return r.get(ctx, selectProduct, id)
}

func (r *Repository) GetForUpdate(ctx context.Context, id string) (domain.Product, error) {
	return r.get(ctx, selectProduct+" FOR UPDATE", id)
}

func (r *Repository) get(ctx context.Context, query, id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.QueryRow(ctx, query, id).
		Scan(&p.ID, &p.Name, &p.PriceCents, &p.Quantity, &p.Image, &p.IsActive, &p.IsFeatured)
	if pgutil.IsNoRows(err) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// AdjustQuantity applies delta in a single guarded statement so the stock
// can never go negative even without a prior row lock. The products
// quantity CHECK is reported the same way as the guard.
func (r *Repository) AdjustQuantity(ctx context.Context, id string, delta int) (int, error) {
	var qty int
	err := r.db.QueryRow(ctx, `
		UPDATE products SET quantity = quantity + $2, updated_at = now()
		WHERE id = $1 AND quantity + $2 >= 0
		RETURNING quantity`, id, delta).Scan(&qty)
	if err == nil {
		return qty, nil
	}
	if !pgutil.IsNoRows(err) && !pgutil.IsCheckViolation(err) {
		return 0, fmt.Errorf("adjust product %s by %d: %w", id, delta, err)
	}

	p, getErr := r.Get(ctx, id)
	if getErr != nil {
		return 0, getErr
	}
	return p.Quantity, &domain.InsufficientStockError{ProductID: id, Name: p.Name, Requested: -delta, Available: p.Quantity}
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}
