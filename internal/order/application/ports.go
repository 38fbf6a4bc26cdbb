package application

import (
	"context"
	"time"

	cart "github.com/dmehra2102/storefront/internal/cart/domain"
	identity "github.com/dmehra2102/storefront/internal/identity/domain"
	inventory "github.com/dmehra2102/storefront/internal/inventory/application"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

type OrderRepository interface {
	// NextNumber returns the next value of the order number sequence.
	NextNumber(ctx context.Context) (int64, error)
	Create(ctx context.Context, o domain.Order) error
	Get(ctx context.Context, id string) (domain.Order, error)
	GetForUpdate(ctx context.Context, id string) (domain.Order, error)
	// Update persists status, rider, feedback and timestamps. Line items are
	// immutable and never rewritten.
	Update(ctx context.Context, o domain.Order) error
	List(ctx context.Context, q domain.Query) ([]domain.Order, int, error)
	// Revenue sums the totals of non-cancelled orders and counts all orders.
	Revenue(ctx context.Context) (int64, int, error)
	Sales(ctx context.Context, from, to time.Time, by domain.Granularity) ([]domain.SalesBucket, error)
}

type CartStore interface {
	GetForUpdate(ctx context.Context, userID string) (cart.Cart, error)
	Delete(ctx context.Context, userID string) error
}

type UserStore interface {
	Get(ctx context.Context, id string) (identity.User, error)
	GetForUpdate(ctx context.Context, id string) (identity.User, error)
	SetActive(ctx context.Context, id string, active bool) error
	Count(ctx context.Context) (int, error)
}

type EventWriter interface {
	Append(ctx context.Context, ev outbox.Event) error
}

// Stores is the set of repositories a workflow works through. Inside
// UnitOfWork.Do they all share one transaction.
type Stores struct {
	Orders   OrderRepository
	Carts    CartStore
	Products inventory.ProductStore
	Users    UserStore
	Events   EventWriter
}

// UnitOfWork runs fn in a transaction. Every write fn makes through st
// commits when fn returns nil and rolls back otherwise, including on
// context cancellation.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, st Stores) error) error
}
