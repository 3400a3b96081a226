//go:build integration

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/LerianStudio/lib-gated/gated/ledger"
	"github.com/LerianStudio/lib-gated/gated/log"
	libOpentelemetry "github.com/LerianStudio/lib-gated/gated/opentelemetry"
	"github.com/LerianStudio/lib-gated/gated/registry"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcrabbit "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// startBroker runs a disposable RabbitMQ and returns a connection to it.
func startBroker(t *testing.T) *amqp.Connection {
	t.Helper()

	ctx := context.Background()

	broker, err := tcrabbit.Run(ctx, "rabbitmq:3-management-alpine",
		testcontainers.WithWaitStrategy(wait.ForLog("Server startup complete").WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = broker.Terminate(ctx) })

	uri, err := broker.AmqpURL(ctx)
	require.NoError(t, err)

	conn, err := amqp.Dial(uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// subscribe binds an exclusive queue to routingKey on the default exchange.
func subscribe(t *testing.T, conn *amqp.Connection, routingKey string) <-chan amqp.Delivery {
	t.Helper()

	ch, err := conn.Channel()
	require.NoError(t, err)
	require.NoError(t, DeclareExchange(ch, DefaultExchange))

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, routingKey, DefaultExchange, false, nil))

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	return deliveries
}

func TestIntegration_CommittedIssueIsPublished(t *testing.T) {
	previous := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(previous) })

	conn := startBroker(t)
	deliveries := subscribe(t, conn, TypeLedgerCommitted)

	ch, err := conn.Channel()
	require.NoError(t, err)

	pub, err := NewRabbitMQPublisher(ch, WithLogger(log.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	reg := registry.New()
	reg.Grant(context.Background(), "U1")

	l, err := ledger.New(reg, ledger.WithCommitHook(LedgerHook(pub, log.NewNop())))
	require.NoError(t, err)

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "issue")
	receipt, err := l.Issue(ctx, "U1", decimal.NewFromInt(42))
	span.End()
	require.NoError(t, err)

	select {
	case msg := <-deliveries:
		assert.Equal(t, TypeLedgerCommitted, msg.Type)

		var event Event
		require.NoError(t, json.Unmarshal(msg.Body, &event))
		assert.Equal(t, receipt.ID, event.ReceiptID)
		require.Len(t, event.Postings, 1)
		assert.Equal(t, ledger.KindIssue, event.Postings[0].Kind)

		restored := libOpentelemetry.ExtractTraceContextFromQueueHeaders(context.Background(), msg.Headers)
		assert.Equal(t, span.SpanContext().TraceID().String(), libOpentelemetry.GetTraceIDFromContext(restored))
	case <-time.After(10 * time.Second):
		t.Fatal("no ledger event delivered")
	}
}
