package domain

import (
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusShipped   Status = "Shipped"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
)

func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusShipped, StatusDelivered, StatusCancelled:
		return st, true
	}
	return "", false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrInvalidDeliveryStatus = errors.New("status can only be updated to 'Delivered' or 'Cancelled'")
	ErrEmptyFeedback         = errors.New("feedback is required")
)

// TransitionError is returned when an action is not allowed from the
// order's current status.
type TransitionError struct {
	From   Status
	Action string
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s order in status %s: %s", e.Action, e.From, e.Reason)
}

// LineItem is copied from the cart at placement and never changes after.
type LineItem struct {
	ProductID  string `json:"productId"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"priceCents"`
	Title      string `json:"title"`
}

func (li LineItem) SubtotalCents() int64 { return int64(li.Quantity) * li.PriceCents }

type Order struct {
	ID            string
	Number        string
	UserID        string
	Items         []LineItem
	TotalCents    int64
	Status        Status
	Address       string
	ContactNumber string
	AssignedRider string
	Feedback      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func New(id, number, userID, address, contact string, items []LineItem, now time.Time) Order {
	o := Order{
		ID:            id,
		Number:        number,
		UserID:        userID,
		Items:         append([]LineItem(nil), items...),
		Status:        StatusPending,
		Address:       address,
		ContactNumber: contact,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	o.Recalculate()
	return o
}

// FormatNumber renders the human-readable order number from a store-issued
// sequence value.
func FormatNumber(now time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%d-%d", now.UnixMilli(), seq)
}

func (o *Order) Recalculate() {
	var total int64
	for _, li := range o.Items {
		total += li.SubtotalCents()
	}
	o.TotalCents = total
}

// Ship hands a pending order to a rider.
func (o *Order) Ship(riderID string, now time.Time) error {
	if o.Status != StatusPending {
		return &TransitionError{From: o.Status, Action: "assign", Reason: "only pending orders can be assigned to riders"}
	}
	o.AssignedRider = riderID
	o.Status = StatusShipped
	o.touch(now)
	return nil
}

// Complete closes a shipped order as delivered or cancelled by the rider.
func (o *Order) Complete(to Status, now time.Time) error {
	if !to.Terminal() {
		return ErrInvalidDeliveryStatus
	}
	if o.Status != StatusShipped {
		return &TransitionError{From: o.Status, Action: "update", Reason: "only shipped orders can be updated"}
	}
	o.Status = to
	o.touch(now)
	return nil
}

// Cancel withdraws an order that has not left the store yet. The caller is
// responsible for releasing its stock in the same transaction.
func (o *Order) Cancel(now time.Time) error {
	if o.Status != StatusPending {
		return &TransitionError{From: o.Status, Action: "cancel", Reason: "only pending orders can be cancelled. Contact support for assistance"}
	}
	o.Status = StatusCancelled
	o.touch(now)
	return nil
}

func (o *Order) AddFeedback(text string, now time.Time) error {
	if text == "" {
		return ErrEmptyFeedback
	}
	if o.Status != StatusDelivered {
		return &TransitionError{From: o.Status, Action: "review", Reason: "feedback can only be added to delivered orders"}
	}
	o.Feedback = text
	o.touch(now)
	return nil
}

func (o *Order) touch(now time.Time) {
	o.Recalculate()
	o.UpdatedAt = now
}

// Query selects a page of orders, newest first. Empty fields do not filter.
type Query struct {
	UserID         string
	RiderID        string
	Status         Status
	ExcludePending bool
	Page           int
	Limit          int
}

func (q Query) Offset() int { return (q.Page - 1) * q.Limit }

type Page struct {
	Orders []Order
	Page   int
	Limit  int
	Total  int
}

type Summary struct {
	RevenueCents  int64
	TotalOrders   int
	TotalProducts int
	TotalUsers    int
	RecentOrders  []Order
}

type Granularity string

const (
	ByMonth Granularity = "month"
	ByYear  Granularity = "year"
)

// SalesBucket aggregates the non-cancelled orders of one month or year.
type SalesBucket struct {
	Year         int
	Month        int
	SalesCents   int64
	Orders       int
	AverageCents int64
}

func (b SalesBucket) Label() string {
	if b.Month == 0 {
		return fmt.Sprintf("%d", b.Year)
	}
	return fmt.Sprintf("%s %d", time.Month(b.Month).String()[:3], b.Year)
}
