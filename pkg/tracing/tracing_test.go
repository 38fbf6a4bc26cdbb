package tracing

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func setupTestTracer(t *testing.T) trace.Tracer {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Tracer("test")
}

func TestTraceparentRoundTripThroughKafkaHeaders(t *testing.T) {
	tracer := setupTestTracer(t)
	ctx, span := tracer.Start(context.Background(), "PlaceOrder")
	defer span.End()

	tp := Traceparent(ctx)
	require.NotEmpty(t, tp)

	headers := []kafka.Header{
		{Key: "event_type", Value: []byte("OrderPlaced")},
		{Key: TraceparentHeader, Value: []byte(tp)},
	}
	assert.Equal(t, "OrderPlaced", HeaderValue(headers, "event_type"))
	assert.Equal(t, "", HeaderValue(headers, "missing"))

	extracted := ExtractKafkaHeaders(context.Background(), headers)
	sc := trace.SpanContextFromContext(extracted)
	assert.Equal(t, span.SpanContext().TraceID(), sc.TraceID())
	assert.True(t, sc.IsRemote())
}

func TestTraceparentWithoutSpan(t *testing.T) {
	setupTestTracer(t)
	assert.Equal(t, "", Traceparent(context.Background()))
}
