package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LerianStudio/lib-gated/gated/internal/nilcheck"
	"github.com/LerianStudio/lib-gated/gated/log"
	libOpentelemetry "github.com/LerianStudio/lib-gated/gated/opentelemetry"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ publisher errors.
var (
	ErrChannelRequired        = errors.New("rabbitmq channel is required")
	ErrConfirmModeUnavailable = errors.New("channel does not support confirm mode")
	ErrPublishNacked          = errors.New("message was nacked by broker")
	ErrConfirmTimeout         = errors.New("confirmation timed out")
	ErrPublisherClosed        = errors.New("publisher is closed")
)

const (
	// DefaultExchange is the exchange ledger events are published to.
	DefaultExchange = "gated.ledger"
	// DefaultConfirmTimeout bounds the wait for a broker confirmation.
	DefaultConfirmTimeout = 5 * time.Second

	confirmChannelBuffer = 256
)

// Channel is the subset of *amqp.Channel used by RabbitMQPublisher.
type Channel interface {
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher publishes events as persistent JSON messages with
// publisher confirms. Publishes are serialized so confirms arrive in order.
type RabbitMQPublisher struct {
	mu             sync.Mutex
	ch             Channel
	confirms       chan amqp.Confirmation
	exchange       string
	confirmTimeout time.Duration
	logger         log.Logger
	closed         bool
}

// RabbitMQOption configures a RabbitMQPublisher.
type RabbitMQOption func(*RabbitMQPublisher)

// WithExchange sets the target exchange.
func WithExchange(exchange string) RabbitMQOption {
	return func(p *RabbitMQPublisher) {
		if exchange != "" {
			p.exchange = exchange
		}
	}
}

// WithConfirmTimeout sets how long Publish waits for a confirmation.
func WithConfirmTimeout(timeout time.Duration) RabbitMQOption {
	return func(p *RabbitMQPublisher) {
		if timeout > 0 {
			p.confirmTimeout = timeout
		}
	}
}

// WithLogger sets the publisher logger.
func WithLogger(logger log.Logger) RabbitMQOption {
	return func(p *RabbitMQPublisher) {
		if !nilcheck.Interface(logger) {
			p.logger = logger
		}
	}
}

// NewRabbitMQPublisher puts ch in confirm mode and returns a publisher over it.
func NewRabbitMQPublisher(ch Channel, opts ...RabbitMQOption) (*RabbitMQPublisher, error) {
	if nilcheck.Interface(ch) {
		return nil, ErrChannelRequired
	}

	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfirmModeUnavailable, err)
	}

	p := &RabbitMQPublisher{
		ch:             ch,
		confirms:       ch.NotifyPublish(make(chan amqp.Confirmation, confirmChannelBuffer)),
		exchange:       DefaultExchange,
		confirmTimeout: DefaultConfirmTimeout,
		logger:         log.NewNop(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p, nil
}

// DeclareExchange declares the durable topic exchange used by the publisher.
func DeclareExchange(ch *amqp.Channel, exchange string) error {
	if ch == nil {
		return ErrChannelRequired
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return nil
}

// Publish sends event routed by its type and waits for the broker to confirm it.
// The W3C trace context of ctx travels in the message headers.
func (p *RabbitMQPublisher) Publish(ctx context.Context, event Event) error {
	if ctx == nil {
		ctx = context.Background()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	headers := libOpentelemetry.PrepareQueueHeaders(ctx, map[string]any{
		"event_type": event.Type,
		"receipt_id": event.ReceiptID.String(),
	})

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID.String(),
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Headers:      amqp.Table(headers),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPublisherClosed
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return p.waitForConfirm(ctx)
}

func (p *RabbitMQPublisher) waitForConfirm(ctx context.Context) error {
	timeout := time.NewTimer(p.confirmTimeout)
	defer timeout.Stop()

	select {
	case confirmed, ok := <-p.confirms:
		if !ok {
			p.closed = true
			return ErrPublisherClosed
		}

		if !confirmed.Ack {
			return fmt.Errorf("%w: delivery_tag=%d", ErrPublishNacked, confirmed.DeliveryTag)
		}

		return nil
	case <-timeout.C:
		// A late confirmation would be read by the next publish.
		p.invalidate()

		return ErrConfirmTimeout
	case <-ctx.Done():
		p.invalidate()

		return fmt.Errorf("context cancelled: %w", ctx.Err())
	}
}

func (p *RabbitMQPublisher) invalidate() {
	p.closed = true

	if err := p.ch.Close(); err != nil {
		p.logger.Log(context.Background(), log.LevelWarn, "failed to close rabbitmq channel", log.Err(err))
	}
}

// Close closes the channel. Further publishes fail with ErrPublisherClosed.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true

	if err := p.ch.Close(); err != nil {
		return fmt.Errorf("closing publisher channel: %w", err)
	}

	return nil
}
