package wrapper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/LerianStudio/lib-gated/gated/assert"
	constant "github.com/LerianStudio/lib-gated/gated/constants"
	"github.com/LerianStudio/lib-gated/gated/internal/nilcheck"
	"github.com/LerianStudio/lib-gated/gated/ledger"
	"github.com/LerianStudio/lib-gated/gated/log"
	"github.com/LerianStudio/lib-gated/gated/opentelemetry/metrics"
	"github.com/LerianStudio/lib-gated/gated/reserve"
	"github.com/shopspring/decimal"
)

var (
	// ErrUpstream wraps opaque failures reported by the external value source.
	ErrUpstream = constant.ErrUpstreamFailure
	// ErrNilLedger is returned by New without a ledger.
	ErrNilLedger = errors.New("wrapper: ledger is nil")
	// ErrNilSource is returned by New without a value source.
	ErrNilSource = errors.New("wrapper: value source is nil")
	// ErrPrecisionMismatch is returned by New when the source and the ledger
	// declare different decimals.
	ErrPrecisionMismatch = errors.New("wrapper: source and ledger precision differ")
)

// Adapter is the wrap/unwrap adapter between a reserve.Source and a ledger.
type Adapter struct {
	ledger  *ledger.Ledger
	source  reserve.Source
	logger  log.Logger
	metrics *metrics.MetricsFactory
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(logger log.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetricsFactory enables the wrap volume histogram.
func WithMetricsFactory(factory *metrics.MetricsFactory) Option {
	return func(a *Adapter) {
		a.metrics = factory
	}
}

// New creates an adapter. The source and the ledger must use the same precision.
func New(l *ledger.Ledger, source reserve.Source, opts ...Option) (*Adapter, error) {
	if l == nil {
		return nil, ErrNilLedger
	}

	if nilcheck.Interface(source) {
		return nil, ErrNilSource
	}

	if source.Decimals() != l.Decimals() {
		return nil, fmt.Errorf("%w: source=%d ledger=%d", ErrPrecisionMismatch, source.Decimals(), l.Decimals())
	}

	a := &Adapter{ledger: l, source: source, logger: log.NewNop()}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Wrap pulls amount from id into the reserve and issues it to id.
func (a *Adapter) Wrap(ctx context.Context, id gated.Identity, amount decimal.Decimal) (ledger.Receipt, error) {
	receipt, err := a.ledger.Atomic(ctx, func(tx *ledger.Tx) error {
		return a.WrapTx(tx, id, amount)
	})
	if err != nil {
		return ledger.Receipt{}, err
	}

	a.observe(ctx, "wrap", id, amount)

	return receipt, nil
}

// Unwrap redeems amount from id and pushes it from the reserve to id.
func (a *Adapter) Unwrap(ctx context.Context, id gated.Identity, amount decimal.Decimal) (ledger.Receipt, error) {
	receipt, err := a.ledger.Atomic(ctx, func(tx *ledger.Tx) error {
		return a.UnwrapTx(tx, id, amount)
	})
	if err != nil {
		return ledger.Receipt{}, err
	}

	a.observe(ctx, "unwrap", id, amount)

	return receipt, nil
}

// Mint pulls amount from treasury into the reserve and issues it to id. It is
// the backed form of a raw issue: the treasury funds the reserve instead of
// the holder.
func (a *Adapter) Mint(ctx context.Context, treasury, id gated.Identity, amount decimal.Decimal) (ledger.Receipt, error) {
	if err := validTreasury(treasury); err != nil {
		return ledger.Receipt{}, err
	}

	receipt, err := a.ledger.Atomic(ctx, func(tx *ledger.Tx) error {
		return a.deposit(tx, treasury, id, amount)
	})
	if err != nil {
		return ledger.Receipt{}, err
	}

	a.observe(ctx, "mint", id, amount)

	return receipt, nil
}

// Burn redeems amount from id and pushes it from the reserve to treasury.
func (a *Adapter) Burn(ctx context.Context, id, treasury gated.Identity, amount decimal.Decimal) (ledger.Receipt, error) {
	if err := validTreasury(treasury); err != nil {
		return ledger.Receipt{}, err
	}

	receipt, err := a.ledger.Atomic(ctx, func(tx *ledger.Tx) error {
		return a.withdraw(tx, id, treasury, amount)
	})
	if err != nil {
		return ledger.Receipt{}, err
	}

	a.observe(ctx, "burn", id, amount)

	return receipt, nil
}

// WrapTx runs the wrap steps inside tx. Nothing is pulled when id is not
// authorized; a pull is refunded if tx does not commit.
func (a *Adapter) WrapTx(tx *ledger.Tx, id gated.Identity, amount decimal.Decimal) error {
	return a.deposit(tx, id, id, amount)
}

// UnwrapTx stages the redemption inside tx and defers the push to the commit
// steps of tx, so nothing is paid out unless every other posting of the unit
// has passed. The push is reclaimed only if a later commit step fails.
func (a *Adapter) UnwrapTx(tx *ledger.Tx, id gated.Identity, amount decimal.Decimal) error {
	return a.withdraw(tx, id, id, amount)
}

// deposit pulls from payer and issues to id.
func (a *Adapter) deposit(tx *ledger.Tx, payer, id gated.Identity, amount decimal.Decimal) error {
	if err := ledger.Issue(id, amount).Validate(); err != nil {
		return err
	}

	if !tx.IsAuthorized(id) {
		return ledger.DestinationNotAuthorized(id)
	}

	if err := a.source.Pull(tx.Context(), payer, amount); err != nil {
		return upstreamError("pull", err)
	}

	tx.OnRollback(func(ctx context.Context) error {
		if err := a.source.Push(ctx, payer, amount); err != nil {
			return fmt.Errorf("refund %s to %s: %w", amount, payer, err)
		}

		return nil
	})

	return tx.Issue(id, amount)
}

// withdraw redeems from id and pays payee once the unit has passed.
func (a *Adapter) withdraw(tx *ledger.Tx, id, payee gated.Identity, amount decimal.Decimal) error {
	if err := tx.Redeem(id, amount); err != nil {
		return err
	}

	tx.BeforeCommit(func(ctx context.Context) error {
		if err := a.source.Push(ctx, payee, amount); err != nil {
			return upstreamError("push", err)
		}

		tx.OnRollback(func(ctx context.Context) error {
			if err := a.source.Pull(ctx, payee, amount); err != nil {
				return fmt.Errorf("reclaim %s from %s: %w", amount, payee, err)
			}

			return nil
		})

		return nil
	})

	return nil
}

// Reserve returns the value the source holds in reserve, or
// reserve.ErrBalanceUnsupported.
func (a *Adapter) Reserve(ctx context.Context) (decimal.Decimal, error) {
	balance, err := reserve.BalanceOf(ctx, a.source)
	if err != nil && !errors.Is(err, reserve.ErrBalanceUnsupported) {
		return decimal.Zero, upstreamError("reserve balance", err)
	}

	return balance, err
}

// CheckBacking verifies that the reserve equals the ledger supply. It holds
// the ledger lock while reading both.
func (a *Adapter) CheckBacking(ctx context.Context) error {
	_, err := a.ledger.Atomic(ctx, func(tx *ledger.Tx) error {
		held, err := a.Reserve(tx.Context())
		if err != nil {
			return err
		}

		asserter := assert.New(a.logger, "wrapper", "check_backing")

		return asserter.EqualAmounts(tx.Context(), tx.TotalSupply(), held, "reserve must equal ledger supply")
	})

	return err
}

// Decimals returns the shared precision.
func (a *Adapter) Decimals() int32 {
	return a.ledger.Decimals()
}

func (a *Adapter) observe(ctx context.Context, direction string, id gated.Identity, amount decimal.Decimal) {
	a.logger.Log(ctx, log.LevelInfo, direction+" committed",
		log.Stringer("identity", id),
		log.Stringer("amount", amount))

	if a.metrics == nil {
		return
	}

	if err := a.metrics.RecordWrapVolume(ctx, direction, amount.Shift(-a.ledger.Decimals()).InexactFloat64()); err != nil {
		a.logger.Log(ctx, log.LevelWarn, "failed to record wrap volume", log.Err(err))
	}
}

func validTreasury(treasury gated.Identity) error {
	if _, err := gated.ParseIdentity(string(treasury)); err != nil || string(treasury) != strings.TrimSpace(string(treasury)) {
		return ledger.InvalidInput("treasury", "treasury identity is invalid")
	}

	return nil
}

func upstreamError(op string, err error) error {
	if errors.Is(err, reserve.ErrUpstreamUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}
