//go:build unit

package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LerianStudio/lib-gated/gated/ledger"
	"github.com/LerianStudio/lib-gated/gated/registry"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type fakeChannel struct {
	mu         sync.Mutex
	confirmErr error
	publishErr error
	ack        bool
	silent     bool
	confirms   chan amqp.Confirmation
	published  []amqp.Publishing
	keys       []string
	exchanges  []string
	closed     bool
	tag        uint64
}

func (f *fakeChannel) Confirm(bool) error { return f.confirmErr }

func (f *fakeChannel) NotifyPublish(c chan amqp.Confirmation) chan amqp.Confirmation {
	f.confirms = c
	return c
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.publishErr != nil {
		return f.publishErr
	}

	f.published = append(f.published, msg)
	f.keys = append(f.keys, key)
	f.exchanges = append(f.exchanges, exchange)
	f.tag++

	if !f.silent {
		f.confirms <- amqp.Confirmation{DeliveryTag: f.tag, Ack: f.ack}
	}

	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

func sampleEvent() Event {
	return FromReceipt(ledger.Receipt{
		Postings:    []ledger.Posting{ledger.Transfer("U1", "U2", decimal.NewFromInt(5))},
		CommittedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
}

func TestNewRabbitMQPublisher(t *testing.T) {
	_, err := NewRabbitMQPublisher(nil)
	require.ErrorIs(t, err, ErrChannelRequired)

	var typedNil *fakeChannel

	_, err = NewRabbitMQPublisher(typedNil)
	require.ErrorIs(t, err, ErrChannelRequired)

	_, err = NewRabbitMQPublisher(&fakeChannel{confirmErr: errors.New("not supported")})
	require.ErrorIs(t, err, ErrConfirmModeUnavailable)
}

func TestRabbitMQPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{ack: true}

	pub, err := NewRabbitMQPublisher(ch, WithExchange("ledger.events"))
	require.NoError(t, err)

	event := sampleEvent()
	require.NoError(t, pub.Publish(context.Background(), event))

	require.Len(t, ch.published, 1)
	msg := ch.published[0]

	assert.Equal(t, "ledger.events", ch.exchanges[0])
	assert.Equal(t, TypeLedgerCommitted, ch.keys[0])
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, event.ID.String(), msg.MessageId)
	assert.Equal(t, TypeLedgerCommitted, msg.Headers["event_type"])

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	require.Len(t, decoded.Postings, 1)
	assert.True(t, decoded.Postings[0].Amount.Equal(decimal.NewFromInt(5)))
}

func TestRabbitMQPublisher_InjectsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	provider := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	ctx, span := provider.Tracer("events-test").Start(context.Background(), "publish")
	defer span.End()

	ch := &fakeChannel{ack: true}
	pub, err := NewRabbitMQPublisher(ch)
	require.NoError(t, err)

	require.NoError(t, pub.Publish(ctx, sampleEvent()))
	assert.Contains(t, ch.published[0].Headers, "traceparent")
}

func TestRabbitMQPublisher_Failures(t *testing.T) {
	t.Run("nack", func(t *testing.T) {
		pub, err := NewRabbitMQPublisher(&fakeChannel{ack: false})
		require.NoError(t, err)

		require.ErrorIs(t, pub.Publish(context.Background(), sampleEvent()), ErrPublishNacked)
	})

	t.Run("publish error", func(t *testing.T) {
		boom := errors.New("channel closed")
		pub, err := NewRabbitMQPublisher(&fakeChannel{publishErr: boom})
		require.NoError(t, err)

		require.ErrorIs(t, pub.Publish(context.Background(), sampleEvent()), boom)
	})

	t.Run("confirm timeout closes the publisher", func(t *testing.T) {
		ch := &fakeChannel{silent: true}
		pub, err := NewRabbitMQPublisher(ch, WithConfirmTimeout(10*time.Millisecond))
		require.NoError(t, err)

		require.ErrorIs(t, pub.Publish(context.Background(), sampleEvent()), ErrConfirmTimeout)
		assert.True(t, ch.closed)
		require.ErrorIs(t, pub.Publish(context.Background(), sampleEvent()), ErrPublisherClosed)
	})

	t.Run("closed", func(t *testing.T) {
		ch := &fakeChannel{ack: true}
		pub, err := NewRabbitMQPublisher(ch)
		require.NoError(t, err)

		require.NoError(t, pub.Close())
		require.NoError(t, pub.Close())
		assert.True(t, ch.closed)
		require.ErrorIs(t, pub.Publish(context.Background(), sampleEvent()), ErrPublisherClosed)
	})
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, Event) error { return errors.New("broker down") }

func TestLedgerHook_PublishesOnCommitOnly(t *testing.T) {
	ctx := context.Background()
	recorder := NewRecorder()

	reg := registry.New()
	reg.Grant(ctx, "U1")

	l, err := ledger.New(reg, ledger.WithCommitHook(LedgerHook(recorder, nil)))
	require.NoError(t, err)

	receipt, err := l.Issue(ctx, "U1", decimal.NewFromInt(10))
	require.NoError(t, err)

	_, err = l.Transfer(ctx, "U1", "U2", decimal.NewFromInt(1))
	require.Error(t, err)

	events := recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, receipt.ID, events[0].ReceiptID)
	assert.Equal(t, TypeLedgerCommitted, events[0].Type)
	assert.Equal(t, receipt.Postings, events[0].Postings)

	recorder.Reset()
	assert.Empty(t, recorder.Events())
}

func TestLedgerHook_PublishFailureDoesNotAffectLedger(t *testing.T) {
	ctx := context.Background()
	reg := registry.New()
	reg.Grant(ctx, "U1")

	l, err := ledger.New(reg, ledger.WithCommitHook(LedgerHook(failingPublisher{}, nil)))
	require.NoError(t, err)

	_, err = l.Issue(ctx, "U1", decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, l.BalanceOf("U1").Equal(decimal.NewFromInt(10)))
}
