package ledger

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/LerianStudio/lib-gated/gated"
	constant "github.com/LerianStudio/lib-gated/gated/constants"
	"github.com/LerianStudio/lib-gated/gated/internal/nilcheck"
	"github.com/LerianStudio/lib-gated/gated/log"
	"github.com/LerianStudio/lib-gated/gated/opentelemetry/metrics"
	"github.com/LerianStudio/lib-gated/gated/registry"
	"github.com/LerianStudio/lib-gated/gated/runtime"
	"github.com/shopspring/decimal"
)

// Pinner is an authorization source whose state can be pinned for the
// duration of a unit of work. *registry.Registry implements it.
type Pinner interface {
	Hold() (registry.View, func())
}

// CommitHook is notified after a unit of work that staged at least one
// posting has been committed. It runs after the ledger lock is released.
type CommitHook func(ctx context.Context, receipt Receipt)

// Ledger is the gated balance ledger.
//
// Methods must not be called from inside a unit of work passed to Atomic;
// use the *Tx instead.
type Ledger struct {
	mu       sync.Mutex
	authz    registry.Authorizer
	balances map[gated.Identity]decimal.Decimal
	supply   decimal.Decimal
	decimals int32
	logger   log.Logger
	metrics  *metrics.MetricsFactory
	hooks    []CommitHook
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the ledger logger.
func WithLogger(logger log.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetricsFactory enables posting, denial and supply metrics.
func WithMetricsFactory(factory *metrics.MetricsFactory) Option {
	return func(l *Ledger) {
		l.metrics = factory
	}
}

// WithDecimals sets the precision of one whole ledger unit.
func WithDecimals(decimals int32) Option {
	return func(l *Ledger) {
		l.decimals = decimals
	}
}

// WithCommitHook registers a hook notified on every commit.
func WithCommitHook(hook CommitHook) Option {
	return func(l *Ledger) {
		if hook != nil {
			l.hooks = append(l.hooks, hook)
		}
	}
}

// New creates an empty ledger gated by authz.
func New(authz registry.Authorizer, opts ...Option) (*Ledger, error) {
	if nilcheck.Interface(authz) {
		return nil, ErrNilAuthorizer
	}

	l := &Ledger{
		authz:    authz,
		balances: make(map[gated.Identity]decimal.Decimal),
		supply:   decimal.Zero,
		decimals: constant.DefaultDecimals,
		logger:   log.NewNop(),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.decimals < 0 || l.decimals > constant.MaxDecimals {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDecimals, l.decimals)
	}

	return l, nil
}

// Issue credits destination with amount and increases supply.
func (l *Ledger) Issue(ctx context.Context, destination gated.Identity, amount decimal.Decimal) (Receipt, error) {
	return l.Apply(ctx, Issue(destination, amount))
}

// Redeem debits source by amount and decreases supply.
func (l *Ledger) Redeem(ctx context.Context, source gated.Identity, amount decimal.Decimal) (Receipt, error) {
	return l.Apply(ctx, Redeem(source, amount))
}

// Transfer moves amount from source to destination.
func (l *Ledger) Transfer(ctx context.Context, source, destination gated.Identity, amount decimal.Decimal) (Receipt, error) {
	return l.Apply(ctx, Transfer(source, destination, amount))
}

// Apply commits a single posting.
func (l *Ledger) Apply(ctx context.Context, posting Posting) (Receipt, error) {
	return l.Atomic(ctx, func(tx *Tx) error {
		return tx.Apply(posting)
	})
}

// BalanceOf returns the committed balance of id, zero when it never held value.
func (l *Ledger) BalanceOf(id gated.Identity) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balanceOf(id)
}

// TotalSupply returns issued minus redeemed.
func (l *Ledger) TotalSupply() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.supply
}

// Balances returns a snapshot of every balance ever credited.
func (l *Ledger) Balances() map[gated.Identity]decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	return maps.Clone(l.balances)
}

// Decimals returns the precision of one whole ledger unit.
func (l *Ledger) Decimals() int32 {
	return l.decimals
}

func (l *Ledger) balanceOf(id gated.Identity) decimal.Decimal {
	if balance, ok := l.balances[id]; ok {
		return balance
	}

	return decimal.Zero
}

// pin returns the authorization view used by one unit of work.
func (l *Ledger) pin() (registry.Authorizer, func()) {
	if p, ok := l.authz.(Pinner); ok {
		return p.Hold()
	}

	return l.authz, func() {}
}

func (l *Ledger) afterCommit(ctx context.Context, receipt Receipt, supply decimal.Decimal) {
	if len(receipt.Postings) == 0 {
		return
	}

	l.logger.Log(ctx, log.LevelInfo, "ledger unit committed",
		log.Stringer("receipt_id", receipt.ID),
		log.Int("postings", len(receipt.Postings)),
		log.Stringer("supply", supply))

	if l.metrics != nil {
		for _, posting := range receipt.Postings {
			if err := l.metrics.RecordPostingApplied(ctx, posting.Kind.String()); err != nil {
				l.logger.Log(ctx, log.LevelWarn, "failed to record posting metric", log.Err(err))
			}
		}

		if err := l.metrics.RecordSupply(ctx, supply.Shift(-l.decimals).InexactFloat64()); err != nil {
			l.logger.Log(ctx, log.LevelWarn, "failed to record supply metric", log.Err(err))
		}
	}

	for _, hook := range l.hooks {
		l.notify(ctx, hook, receipt)
	}
}

func (l *Ledger) notify(ctx context.Context, hook CommitHook, receipt Receipt) {
	defer runtime.RecoverAndLogWithContext(ctx, l.logger, "ledger", "commit_hook")

	hook(ctx, receipt)
}

func (l *Ledger) recordDenied(ctx context.Context, kind Kind, side string) {
	if l.metrics == nil {
		return
	}

	if err := l.metrics.RecordAuthorizationDenied(ctx, kind.String(), side); err != nil {
		l.logger.Log(ctx, log.LevelWarn, "failed to record denial metric", log.Err(err))
	}
}
