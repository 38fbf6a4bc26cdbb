package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dmehra2102/storefront/pkg/outbox"
)

// Writer publishes order events. Messages are keyed by order id and hashed,
// so every event of one order lands on the same partition in commit order.
type Writer struct {
	log *slog.Logger
	*kafka.Writer
}

var _ outbox.Producer = (*Writer)(nil)

func NewWriter(log *slog.Logger, brokers []string) *Writer {
	return &Writer{
		log: log,
		Writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

func (w *Writer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if err := w.Writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	w.log.Debug("order events published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.Writer.Close()
}
