package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmehra2102/storefront/pkg/tracing"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

type Event struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Headers       map[string]string
	Traceparent   string
	CreatedAt     time.Time
	Status        Status
	RelayID       string
	RetryCount    int
	LastError     *string
}

// NewEvent marshals payload and stamps the event with the trace of ctx so the
// consumer side continues the same trace.
func NewEvent(ctx context.Context, aggregateType, aggregateID, eventType string, payload any, headers map[string]string) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	if headers == nil {
		headers = map[string]string{}
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Type:          eventType,
		Payload:       body,
		Headers:       headers,
		Traceparent:   tracing.Traceparent(ctx),
		Status:        StatusPending,
	}, nil
}
