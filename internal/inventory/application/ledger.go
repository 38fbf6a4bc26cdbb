package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmehra2102/storefront/internal/inventory/domain"
)

// Ledger moves stock through whatever store it is given. Built on a
// transaction-bound store, its changes commit or roll back with that
// transaction; calling Reserve twice reserves twice.
type Ledger struct {
	log       *slog.Logger
	store     ProductStore
	movements []domain.Movement
}

func NewLedger(log *slog.Logger, store ProductStore) *Ledger {
	return &Ledger{log: log, store: store}
}

// Reserve locks the product, checks it has qty units and takes them.
func (l *Ledger) Reserve(ctx context.Context, productID string, qty int) (domain.Product, error) {
	if qty < 1 {
		return domain.Product{}, domain.ErrInvalidQuantity
	}
	p, err := l.store.GetForUpdate(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if !p.CanReserve(qty) {
		return p, &domain.InsufficientStockError{ProductID: p.ID, Name: p.Name, Requested: qty, Available: p.Quantity}
	}
	left, err := l.store.AdjustQuantity(ctx, productID, -qty)
	if err != nil {
		return p, err
	}
	p.Quantity = left
	l.movements = append(l.movements, domain.Movement{ProductID: productID, Quantity: qty, Direction: domain.Reserved})
	return p, nil
}

// Release puts qty units back. There is no upper bound; it restores exactly
// what the caller says was reserved. A product that no longer exists is
// skipped so a cancellation is not blocked by catalog deletes.
func (l *Ledger) Release(ctx context.Context, productID string, qty int) error {
	if qty < 1 {
		return domain.ErrInvalidQuantity
	}
	_, err := l.store.AdjustQuantity(ctx, productID, qty)
	if errors.Is(err, domain.ErrProductNotFound) {
		l.log.Warn("release skipped for missing product", "product_id", productID, "quantity", qty)
		return nil
	}
	if err != nil {
		return err
	}
	l.movements = append(l.movements, domain.Movement{ProductID: productID, Quantity: qty, Direction: domain.Released})
	return nil
}

// Movements lists the changes applied through this ledger, in order.
func (l *Ledger) Movements() []domain.Movement {
	return l.movements
}
