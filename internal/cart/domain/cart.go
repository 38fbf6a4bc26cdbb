package domain

import (
	"errors"
	"slices"
	"time"

	inventory "github.com/dmehra2102/storefront/internal/inventory/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrItemNotFound = errors.New("item not found in cart")
	ErrOutOfStock   = errors.New("product is out of stock")
	ErrLimitReached = errors.New("cannot add more of this item, maximum stock reached")
)

// Item is a cart line. Price, title and image are captured when the line is
// created and do not follow later catalog changes.
type Item struct {
	ID         string `json:"id"`
	ProductID  string `json:"productId"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"priceCents"`
	Title      string `json:"title"`
	Image      string `json:"image"`
}

func (i Item) SubtotalCents() int64 { return int64(i.Quantity) * i.PriceCents }

// Cart belongs to exactly one user. A cart with no lines is never stored;
// callers delete it instead of saving it.
type Cart struct {
	ID         string
	UserID     string
	Items      []Item
	TotalCents int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func New(id, userID string, now time.Time) Cart {
	return Cart{ID: id, UserID: userID, Items: []Item{}, CreatedAt: now, UpdatedAt: now}
}

// Empty is the value returned for a user without a stored cart.
func Empty(userID string) Cart {
	return Cart{UserID: userID, Items: []Item{}}
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

// Add puts one unit of p in the cart, either as a new line with id itemID or
// on top of the existing line for the same product.
func (c *Cart) Add(itemID string, p inventory.Product, now time.Time) error {
	if !p.InStock() {
		return ErrOutOfStock
	}
	if i := c.indexOfProduct(p.ID); i >= 0 {
		c.Items[i].Quantity++
	} else {
		c.Items = append(c.Items, Item{
			ID:         itemID,
			ProductID:  p.ID,
			Quantity:   1,
			PriceCents: p.PriceCents,
			Title:      p.Name,
			Image:      p.Image,
		})
	}
	c.touch(now)
	return nil
}

// Increment adds one unit to a line as long as the line stays within stock.
func (c *Cart) Increment(itemID string, stock int, now time.Time) error {
	i := c.indexOf(itemID)
	if i < 0 {
		return ErrItemNotFound
	}
	if c.Items[i].Quantity >= stock {
		return ErrLimitReached
	}
	c.Items[i].Quantity++
	c.touch(now)
	return nil
}

// Decrement removes one unit; the last unit removes the line.
func (c *Cart) Decrement(itemID string, now time.Time) error {
	i := c.indexOf(itemID)
	if i < 0 {
		return ErrItemNotFound
	}
	if c.Items[i].Quantity <= 1 {
		c.Items = slices.Delete(c.Items, i, i+1)
	} else {
		c.Items[i].Quantity--
	}
	c.touch(now)
	return nil
}

func (c *Cart) Remove(itemID string, now time.Time) error {
	i := c.indexOf(itemID)
	if i < 0 {
		return ErrItemNotFound
	}
	c.Items = slices.Delete(c.Items, i, i+1)
	c.touch(now)
	return nil
}

func (c *Cart) Item(itemID string) (Item, bool) {
	if i := c.indexOf(itemID); i >= 0 {
		return c.Items[i], true
	}
	return Item{}, false
}

func (c *Cart) Recalculate() {
	var total int64
	for _, it := range c.Items {
		total += it.SubtotalCents()
	}
	c.TotalCents = total
}

func (c *Cart) touch(now time.Time) {
	c.Recalculate()
	c.UpdatedAt = now
}

func (c *Cart) indexOf(itemID string) int {
	return slices.IndexFunc(c.Items, func(it Item) bool { return it.ID == itemID })
}

func (c *Cart) indexOfProduct(productID string) int {
	return slices.IndexFunc(c.Items, func(it Item) bool { return it.ProductID == productID })
}
