package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/storefront/internal/access"
	"github.com/dmehra2102/storefront/internal/cart/domain"
	identity "github.com/dmehra2102/storefront/internal/identity/domain"
	inventory "github.com/dmehra2102/storefront/internal/inventory/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
)

type Service struct {
	log      *slog.Logger
	carts    CartRepository
	products ProductReader
	now      func() time.Time
	newID    func() string
}

func NewService(log *slog.Logger, carts CartRepository, products ProductReader) *Service {
	return &Service{
		log:      log,
		carts:    carts,
		products: products,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

func (s *Service) GetCart(ctx context.Context, actor identity.Actor) (domain.Cart, error) {
	if err := access.Authorize(access.CartManage, actor, access.Resource{}); err != nil {
		return domain.Cart{}, err
	}
	c, err := s.carts.Get(ctx, actor.ID)
	if errors.Is(err, domain.ErrCartNotFound) {
		return domain.Empty(actor.ID), nil
	}
	if err != nil {
		return domain.Cart{}, apperr.Internalize(err, "failed to load cart")
	}
	return c, nil
}

// AddItem adds one unit of productID, creating the cart on first use.
func (s *Service) AddItem(ctx context.Context, actor identity.Actor, productID string) (domain.Cart, error) {
	if err := access.Authorize(access.CartManage, actor, access.Resource{}); err != nil {
		return domain.Cart{}, err
	}
	if err := validateID(productID, "product"); err != nil {
		return domain.Cart{}, err
	}

	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return domain.Cart{}, translate(err)
	}

	now := s.now()
	c, err := s.carts.Get(ctx, actor.ID)
	if errors.Is(err, domain.ErrCartNotFound) {
		c = domain.New(s.newID(), actor.ID, now)
	} else if err != nil {
		return domain.Cart{}, apperr.Internalize(err, "failed to load cart")
	}

	if err := c.Add(s.newID(), p, now); err != nil {
		return domain.Cart{}, translate(err)
	}
	if err := s.carts.Save(ctx, &c); err != nil {
		return domain.Cart{}, apperr.Internalize(err, "failed to save cart")
	}
	s.log.Debug("cart item added", "user_id", actor.ID, "product_id", productID)
	return c, nil
}

func (s *Service) IncrementItem(ctx context.Context, actor identity.Actor, itemID string) (domain.Cart, error) {
	return s.mutate(ctx, actor, itemID, func(c *domain.Cart, now time.Time) error {
		item, ok := c.Item(itemID)
		if !ok {
			return domain.ErrItemNotFound
		}
		p, err := s.products.Get(ctx, item.ProductID)
		if errors.Is(err, inventory.ErrProductNotFound) {
			return apperr.NotFound("product no longer exists")
		}
		if err != nil {
			return err
		}
		return c.Increment(itemID, p.Quantity, now)
	})
}

// DecrementItem removes one unit. The result is the empty cart value when
// the last unit went away.
func (s *Service) DecrementItem(ctx context.Context, actor identity.Actor, itemID string) (domain.Cart, error) {
	return s.mutate(ctx, actor, itemID, func(c *domain.Cart, now time.Time) error {
		return c.Decrement(itemID, now)
	})
}

func (s *Service) RemoveItem(ctx context.Context, actor identity.Actor, itemID string) (domain.Cart, error) {
	return s.mutate(ctx, actor, itemID, func(c *domain.Cart, now time.Time) error {
		return c.Remove(itemID, now)
	})
}

// Empty deletes the caller's cart. It reports whether there was one.
func (s *Service) Empty(ctx context.Context, actor identity.Actor) (bool, error) {
	if err := access.Authorize(access.CartManage, actor, access.Resource{}); err != nil {
		return false, err
	}
	_, err := s.carts.Get(ctx, actor.ID)
	if errors.Is(err, domain.ErrCartNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Internalize(err, "failed to load cart")
	}
	if err := s.carts.Delete(ctx, actor.ID); err != nil {
		return false, apperr.Internalize(err, "failed to empty cart")
	}
	return true, nil
}

// mutate loads the caller's cart, applies fn and stores the outcome. A cart
// left without lines is deleted rather than saved.
func (s *Service) mutate(ctx context.Context, actor identity.Actor, itemID string, fn func(*domain.Cart, time.Time) error) (domain.Cart, error) {
	if err := access.Authorize(access.CartManage, actor, access.Resource{}); err != nil {
		return domain.Cart{}, err
	}
	if err := validateID(itemID, "item"); err != nil {
		return domain.Cart{}, err
	}

	c, err := s.carts.Get(ctx, actor.ID)
	if err != nil {
		return domain.Cart{}, translate(err)
	}
	if err := fn(&c, s.now()); err != nil {
		return domain.Cart{}, translate(err)
	}

	if c.IsEmpty() {
		if err := s.carts.Delete(ctx, actor.ID); err != nil {
			return domain.Cart{}, apperr.Internalize(err, "failed to delete cart")
		}
		return domain.Empty(actor.ID), nil
	}
	if err := s.carts.Save(ctx, &c); err != nil {
		return domain.Cart{}, apperr.Internalize(err, "failed to save cart")
	}
	return c, nil
}

func validateID(id, what string) error {
	if id == "" {
		return apperr.InvalidInput("%s ID is required", what)
	}
	if _, err := uuid.Parse(id); err != nil {
		return apperr.InvalidInput("invalid %s ID format", what)
	}
	return nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, domain.ErrCartNotFound):
		return apperr.NotFound("cart not found")
	case errors.Is(err, domain.ErrItemNotFound):
		return apperr.NotFound("item not found in cart")
	case errors.Is(err, inventory.ErrProductNotFound):
		return apperr.NotFound("product not found")
	case errors.Is(err, domain.ErrOutOfStock):
		return apperr.New(apperr.KindOutOfStock, "product is out of stock")
	case errors.Is(err, domain.ErrLimitReached):
		return apperr.New(apperr.KindLimitReached, "cannot add more of this item, maximum stock reached")
	}
	return apperr.Internalize(err, "cart operation failed")
}
