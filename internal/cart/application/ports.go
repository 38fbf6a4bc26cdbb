package application

import (
	"context"

	"github.com/dmehra2102/storefront/internal/cart/domain"
	inventory "github.com/dmehra2102/storefront/internal/inventory/domain"
)

type CartRepository interface {
	// Get returns domain.ErrCartNotFound when the user has no stored cart.
	Get(ctx context.Context, userID string) (domain.Cart, error)
	Save(ctx context.Context, c *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

type ProductReader interface {
	Get(ctx context.Context, id string) (inventory.Product, error)
}
