package application

import (
	"context"

	"github.com/dmehra2102/storefront/internal/inventory/domain"
)

type ProductStore interface {
	Get(ctx context.Context, id string) (domain.Product, error)
	// GetForUpdate locks the product row for the rest of the transaction.
	GetForUpdate(ctx context.Context, id string) (domain.Product, error)
	// AdjustQuantity adds delta to the stock and returns the new quantity. A
	// delta that would take the stock below zero is rejected by the store.
	AdjustQuantity(ctx context.Context, id string, delta int) (int, error)
	Count(ctx context.Context) (int, error)
}
