package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/pkg/idempotency"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type EventHandler interface {
	Handle(ctx context.Context, eventType string, payload []byte) error
}

type Consumer struct {
	log     *slog.Logger
	reader  MessageReader
	handler EventHandler
	idem    *idempotency.Store
	timeout time.Duration
	tracer  trace.Tracer
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

// NewConsumer builds a consumer that gives each message at most timeout,
// dedupe check and email included.
func NewConsumer(log *slog.Logger, reader MessageReader, handler EventHandler, idem *idempotency.Store, timeout time.Duration) *Consumer {
	return &Consumer{
		log:     log,
		reader:  reader,
		handler: handler,
		idem:    idem,
		timeout: timeout,
		tracer:  otel.Tracer("notification-consumer"),
	}
}

// Run consumes until ctx is cancelled. Every message is committed once
// handled, whether or not the email went out.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		c.process(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		// redis down: sending twice beats never sending
		c.log.Error("idempotency check failed", "key", key, "err", err)
	} else if seen {
		c.log.Info("duplicate message skipped", "key", key)
		return
	}

	eventType := tracing.HeaderValue(msg.Headers, outbox.EventTypeHeader)
	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "Consume"+eventType)
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", string(msg.Key)),
		attribute.Int64("kafka.offset", msg.Offset),
	)

	if err := c.handler.Handle(msgCtx, eventType, msg.Value); err != nil {
		span.RecordError(err)
		c.log.Error("notification failed", "type", eventType, "order_id", string(msg.Key), "err", err)
	}
}
