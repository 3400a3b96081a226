package gateway

import (
	"errors"
	"time"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/LerianStudio/lib-gated/gated/bundle"
	"github.com/LerianStudio/lib-gated/gated/idempotency"
	"github.com/LerianStudio/lib-gated/gated/ledger"
	"github.com/LerianStudio/lib-gated/gated/log"
	"github.com/LerianStudio/lib-gated/gated/opentelemetry/metrics"
	"github.com/LerianStudio/lib-gated/gated/registry"
	"github.com/LerianStudio/lib-gated/gated/wrapper"
)

var (
	// ErrNilRegistry is returned by New without a registry.
	ErrNilRegistry = errors.New("gateway: registry is required")
	// ErrNilLedger is returned by New without a ledger.
	ErrNilLedger = errors.New("gateway: ledger is required")
	// ErrTreasuryRequired is returned by New when reserve operations are
	// enabled next to an adapter without a treasury identity.
	ErrTreasuryRequired = errors.New("gateway: reserve operations with an adapter need a treasury identity")
)

// Handler serves the gateway routes.
type Handler struct {
	registry        *registry.Registry
	ledger          *ledger.Ledger
	adapter         *wrapper.Adapter
	executor        *bundle.Executor
	idempotency     idempotency.Store
	idempotencyTTL  time.Duration
	logger          log.Logger
	metrics         *metrics.MetricsFactory
	reserveOperator bool
	treasury        gated.Identity
}

// Option configures a Handler.
type Option func(*Handler)

// WithAdapter enables the wrap and unwrap endpoints and bundle steps.
func WithAdapter(adapter *wrapper.Adapter) Option {
	return func(h *Handler) {
		h.adapter = adapter
	}
}

// WithIdempotency enables X-Idempotency handling. A non-positive ttl uses
// idempotency.DefaultTTL.
func WithIdempotency(store idempotency.Store, ttl time.Duration) Option {
	return func(h *Handler) {
		h.idempotency = store
		h.idempotencyTTL = ttl
	}
}

// WithLogger sets the handler logger used when no request logger is present.
func WithLogger(logger log.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetricsFactory sets the factory used by the bundle executor.
func WithMetricsFactory(factory *metrics.MetricsFactory) Option {
	return func(h *Handler) {
		h.metrics = factory
	}
}

// WithReserveOperations enables the operator issue and redeem endpoints. With
// an adapter they move value between the treasury and the reserve so supply
// stays backed. Without one they post to the ledger alone.
func WithReserveOperations(enabled bool) Option {
	return func(h *Handler) {
		h.reserveOperator = enabled
	}
}

// WithTreasury sets the external identity that funds operator issues and
// receives operator redemptions.
func WithTreasury(id gated.Identity) Option {
	return func(h *Handler) {
		h.treasury = id
	}
}

// New creates a Handler. The bundle executor shares the adapter when one is
// configured.
func New(reg *registry.Registry, l *ledger.Ledger, opts ...Option) (*Handler, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}

	if l == nil {
		return nil, ErrNilLedger
	}

	h := &Handler{
		registry: reg,
		ledger:   l,
		logger:   log.NewNop(),
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.reserveOperator && h.adapter != nil && h.treasury.IsZero() {
		return nil, ErrTreasuryRequired
	}

	execOpts := []bundle.ExecutorOption{bundle.WithLogger(h.logger)}
	if h.metrics != nil {
		execOpts = append(execOpts, bundle.WithMetricsFactory(h.metrics))
	}

	if h.adapter != nil {
		execOpts = append(execOpts, bundle.WithAdapter(h.adapter))
	}

	h.executor = bundle.NewExecutor(l, execOpts...)

	return h, nil
}
