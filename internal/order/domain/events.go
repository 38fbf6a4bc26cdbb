package domain

import "time"

const AggregateType = "order"

const (
	EventPlaced    = "OrderPlaced"
	EventCancelled = "OrderCancelled"
	EventShipped   = "OrderShipped"
	EventDelivered = "OrderDelivered"
)

// Event is the payload published for every order transition. It carries
// what the notifier needs to address the customer without reading the store.
type Event struct {
	OrderID       string     `json:"orderId"`
	OrderNumber   string     `json:"orderNumber"`
	Status        Status     `json:"status"`
	UserID        string     `json:"userId"`
	CustomerEmail string     `json:"customerEmail"`
	CustomerName  string     `json:"customerName"`
	Address       string     `json:"address"`
	TotalCents    int64      `json:"totalCents"`
	Items         []LineItem `json:"items"`
	RiderID       string     `json:"riderId,omitempty"`
	RiderName     string     `json:"riderName,omitempty"`
	OccurredAt    time.Time  `json:"occurredAt"`
}

func NewEvent(o Order, customerEmail, customerName string) Event {
	return Event{
		OrderID:       o.ID,
		OrderNumber:   o.Number,
		Status:        o.Status,
		UserID:        o.UserID,
		CustomerEmail: customerEmail,
		CustomerName:  customerName,
		Address:       o.Address,
		TotalCents:    o.TotalCents,
		Items:         o.Items,
		RiderID:       o.AssignedRider,
		OccurredAt:    o.UpdatedAt,
	}
}

// EventTypeFor names the event emitted when an order enters status s.
func EventTypeFor(s Status) string {
	switch s {
	case StatusShipped:
		return EventShipped
	case StatusDelivered:
		return EventDelivered
	case StatusCancelled:
		return EventCancelled
	default:
		return EventPlaced
	}
}
