package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	order "github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/metrics"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

const (
	resultSent    = "sent"
	resultFailed  = "failed"
	resultSkipped = "skipped"
)

// Notifier emails the customer about order transitions. Failures are
// reported to the caller and counted; they never touch the order.
type Notifier struct {
	log      *slog.Logger
	mailer   Mailer
	renderer *Renderer
}

func NewNotifier(log *slog.Logger, mailer Mailer, renderer *Renderer) *Notifier {
	return &Notifier{log: log, mailer: mailer, renderer: renderer}
}

func (n *Notifier) Handle(ctx context.Context, eventType string, payload []byte) error {
	if !n.renderer.Supports(eventType) {
		metrics.NotificationsTotal.WithLabelValues(eventType, resultSkipped).Inc()
		n.log.Debug("no notification for event", "type", eventType)
		return nil
	}

	var ev order.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		metrics.NotificationsTotal.WithLabelValues(eventType, resultFailed).Inc()
		return fmt.Errorf("decode %s: %w", eventType, err)
	}
	if ev.CustomerEmail == "" {
		metrics.NotificationsTotal.WithLabelValues(eventType, resultSkipped).Inc()
		n.log.Warn("order event without customer email", "type", eventType, "order_id", ev.OrderID)
		return nil
	}

	msg, err := n.renderer.Render(eventType, ev)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(eventType, resultFailed).Inc()
		return err
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		metrics.NotificationsTotal.WithLabelValues(eventType, resultFailed).Inc()
		return fmt.Errorf("send %s for order %s: %w", eventType, ev.OrderNumber, err)
	}

	metrics.NotificationsTotal.WithLabelValues(eventType, resultSent).Inc()
	n.log.Info("notification sent", "type", eventType, "order_id", ev.OrderID, "order_no", ev.OrderNumber)
	return nil
}
