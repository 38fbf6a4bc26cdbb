package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// InsufficientStockError reports a reservation larger than the stock on hand.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s: requested %d, available %d", e.Name, e.Requested, e.Available)
}

// Product is the catalog row the ledger operates on. Quantity never drops
// below zero once a transaction commits.
type Product struct {
	ID         string
	Name       string
	PriceCents int64
	Quantity   int
	Image      string
	IsActive   bool
	IsFeatured bool
}

func (p Product) InStock() bool { return p.Quantity >= 1 }

func (p Product) CanReserve(qty int) bool { return qty >= 1 && p.Quantity >= qty }

type Direction string

const (
	Reserved Direction = "reserved"
	Released Direction = "released"
)

// Movement is one committed change to a product's stock.
type Movement struct {
	ProductID string
	Quantity  int
	Direction Direction
}
