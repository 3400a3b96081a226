package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/LerianStudio/lib-gated/gated/assert"
	constant "github.com/LerianStudio/lib-gated/gated/constants"
	"github.com/LerianStudio/lib-gated/gated/log"
	libOpentelemetry "github.com/LerianStudio/lib-gated/gated/opentelemetry"
	"github.com/LerianStudio/lib-gated/gated/registry"
	"github.com/LerianStudio/lib-gated/gated/runtime"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Compensation undoes an external side effect of a unit of work that failed.
type Compensation func(ctx context.Context) error

// CommitStep performs an external side effect once every posting of a unit of
// work has been staged and checked. A failing step aborts the unit.
type CommitStep func(ctx context.Context) error

// Tx is a unit of work in progress. It is only valid inside the function
// passed to Atomic.
type Tx struct {
	ctx       context.Context
	ledger    *Ledger
	authz     registry.Authorizer
	span      trace.Span
	staged    map[gated.Identity]decimal.Decimal
	supply    decimal.Decimal
	postings  []Posting
	rollbacks []Compensation
	steps     []CommitStep
	sealed    bool
	done      bool
}

// Atomic runs fn as one unit of work. Postings staged by fn are committed
// together when fn returns nil and every step registered with BeforeCommit
// succeeds. When fn or a step returns an error or panics, nothing is
// committed and the compensations registered with OnRollback run in reverse
// order; their failures are joined to the returned error.
//
// The ledger lock is held for the whole call and, when the authorization
// source is a Pinner, so is its pin: fn must not call back into the Ledger or
// mutate the registry.
func (l *Ledger) Atomic(ctx context.Context, fn func(tx *Tx) error) (Receipt, error) {
	if fn == nil {
		return Receipt{}, ErrNilUnitOfWork
	}

	if ctx == nil {
		ctx = context.Background()
	}

	tracer := gated.TracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "ledger.atomic")
	defer span.End()

	receipt, supply, err := l.execute(ctx, span, fn)
	if err != nil {
		var domainErr *DomainError
		if errors.As(err, &domainErr) {
			span.SetAttributes(attribute.String(constant.AttrErrorCode, string(domainErr.Code)))
			libOpentelemetry.RecordBusinessError(span, constant.EventPostingRejected, err)
		} else {
			libOpentelemetry.RecordError(span, "ledger unit of work failed", err)
		}

		return Receipt{}, err
	}

	span.SetAttributes(attribute.String(constant.AttrReceiptID, receipt.ID.String()))

	l.afterCommit(ctx, receipt, supply)

	return receipt, nil
}

func (l *Ledger) execute(ctx context.Context, span trace.Span, fn func(tx *Tx) error) (Receipt, decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, decimal.Zero, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	authz, release := l.pin()
	defer release()

	tx := &Tx{
		ctx:    ctx,
		ledger: l,
		authz:  authz,
		span:   span,
		staged: make(map[gated.Identity]decimal.Decimal),
		supply: l.supply,
	}
	defer func() { tx.done = true }()

	err := tx.run(fn)
	if err == nil {
		err = ctx.Err()
	}

	if err == nil {
		err = tx.checkConservation()
	}

	if err == nil {
		err = tx.runCommitSteps()
	}

	if err != nil {
		return Receipt{}, decimal.Zero, tx.rollback(err)
	}

	for id, balance := range tx.staged {
		l.balances[id] = balance
	}

	l.supply = tx.supply

	return Receipt{
		ID:          uuid.New(),
		Postings:    slices.Clone(tx.postings),
		CommittedAt: time.Now().UTC(),
	}, l.supply, nil
}

func (tx *Tx) run(fn func(tx *Tx) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			runtime.HandlePanicValue(tx.ctx, tx.ledger.logger, r, "ledger", "atomic")
			err = fmt.Errorf("%w: %v", ErrPanicRecovered, r)
		}
	}()

	return fn(tx)
}

// runCommitSteps seals tx and runs the commit steps in registration order.
// A step may register compensations for its own effect; they run if a later
// step fails.
func (tx *Tx) runCommitSteps() error {
	tx.sealed = true

	for _, step := range tx.steps {
		if err := tx.guard(tx.ctx, "commit_step", step); err != nil {
			return err
		}
	}

	return nil
}

func (tx *Tx) checkConservation() error {
	asserter := assert.New(tx.ledger.logger, "ledger", "commit")
	delta := decimal.Zero

	for id, balance := range tx.staged {
		if err := asserter.NonNegative(tx.ctx, balance, "staged balance must not be negative", log.Stringer("identity", id)); err != nil {
			return err
		}

		delta = delta.Add(balance.Sub(tx.ledger.balanceOf(id)))
	}

	return asserter.EqualAmounts(tx.ctx, tx.supply.Sub(tx.ledger.supply), delta,
		"balance delta must equal supply delta", log.Int("postings", len(tx.postings)))
}

func (tx *Tx) rollback(cause error) error {
	tx.ledger.logger.Log(tx.ctx, log.LevelDebug, "ledger unit rolled back",
		log.Int("staged_postings", len(tx.postings)),
		log.Int("compensations", len(tx.rollbacks)),
		log.Err(cause))

	var errs []error

	ctx := context.WithoutCancel(tx.ctx)

	for i := len(tx.rollbacks) - 1; i >= 0; i-- {
		if err := tx.guard(ctx, "compensation", tx.rollbacks[i]); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		return cause
	}

	tx.ledger.logger.Log(ctx, log.LevelError, "ledger compensation failed", log.Err(errors.Join(errs...)))

	return errors.Join(cause, fmt.Errorf("%w: %w", ErrCompensationFailed, errors.Join(errs...)))
}

func (tx *Tx) guard(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			runtime.HandlePanicValue(ctx, tx.ledger.logger, r, "ledger", name)
			err = fmt.Errorf("%w: %v", ErrPanicRecovered, r)
		}
	}()

	return fn(ctx)
}

// Context returns the context of the unit of work.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// Issue stages an issue posting.
func (tx *Tx) Issue(destination gated.Identity, amount decimal.Decimal) error {
	return tx.Apply(Issue(destination, amount))
}

// Redeem stages a redeem posting.
func (tx *Tx) Redeem(source gated.Identity, amount decimal.Decimal) error {
	return tx.Apply(Redeem(source, amount))
}

// Transfer stages a transfer posting.
func (tx *Tx) Transfer(source, destination gated.Identity, amount decimal.Decimal) error {
	return tx.Apply(Transfer(source, destination, amount))
}

// Apply checks and stages posting. The checks run in order: shape, source
// authorization, destination authorization, source balance. The first failure
// is returned and nothing is staged.
func (tx *Tx) Apply(posting Posting) error {
	if tx.done || tx.sealed {
		return ErrTxDone
	}

	if err := tx.ctx.Err(); err != nil {
		return err
	}

	if err := posting.Validate(); err != nil {
		return tx.reject(posting, "", err)
	}

	source, hasSource := posting.GatedSource()
	if hasSource && !tx.authz.IsAuthorized(source) {
		return tx.reject(posting, "source", SourceNotAuthorized(source))
	}

	destination, hasDestination := posting.GatedDestination()
	if hasDestination && !tx.authz.IsAuthorized(destination) {
		return tx.reject(posting, "destination", DestinationNotAuthorized(destination))
	}

	if hasSource {
		available := tx.BalanceOf(source)
		if available.LessThan(posting.Amount) {
			return tx.reject(posting, "", InsufficientBalance(source, posting.Amount, available))
		}

		tx.staged[source] = available.Sub(posting.Amount)
	}

	if hasDestination {
		tx.staged[destination] = tx.BalanceOf(destination).Add(posting.Amount)
	}

	switch posting.Kind {
	case KindIssue:
		tx.supply = tx.supply.Add(posting.Amount)
	case KindRedeem:
		tx.supply = tx.supply.Sub(posting.Amount)
	}

	tx.postings = append(tx.postings, posting)

	libOpentelemetry.AddEvent(tx.span, constant.EventPostingApplied, postingAttributes(posting)...)

	return nil
}

// BalanceOf returns the balance of id as seen by this unit of work.
func (tx *Tx) BalanceOf(id gated.Identity) decimal.Decimal {
	if balance, ok := tx.staged[id]; ok {
		return balance
	}

	return tx.ledger.balanceOf(id)
}

// TotalSupply returns the supply as seen by this unit of work.
func (tx *Tx) TotalSupply() decimal.Decimal {
	return tx.supply
}

// IsAuthorized reports whether id is authorized in the state pinned for this unit of work.
func (tx *Tx) IsAuthorized(id gated.Identity) bool {
	return tx.authz.IsAuthorized(id)
}

// Decimals returns the ledger precision.
func (tx *Tx) Decimals() int32 {
	return tx.ledger.decimals
}

// Postings returns the postings staged so far.
func (tx *Tx) Postings() []Posting {
	return slices.Clone(tx.postings)
}

// BeforeCommit registers fn to run after the function passed to Atomic has
// returned nil and the staged postings passed every check. Steps run in
// registration order under the ledger lock; postings can no longer be staged.
func (tx *Tx) BeforeCommit(fn CommitStep) {
	if fn != nil && !tx.done && !tx.sealed {
		tx.steps = append(tx.steps, fn)
	}
}

// OnRollback registers fn to run if the unit of work does not commit.
func (tx *Tx) OnRollback(fn Compensation) {
	if fn != nil && !tx.done {
		tx.rollbacks = append(tx.rollbacks, fn)
	}
}

func (tx *Tx) reject(posting Posting, side string, err error) error {
	if side != "" {
		tx.ledger.recordDenied(tx.ctx, posting.Kind, side)
	}

	tx.ledger.logger.Log(tx.ctx, log.LevelDebug, "posting rejected",
		log.String("kind", posting.Kind.String()),
		log.Stringer("amount", posting.Amount),
		log.Err(err))

	libOpentelemetry.AddEvent(tx.span, constant.EventPostingRejected,
		append(postingAttributes(posting), attribute.String("error", err.Error()))...)

	return err
}

func postingAttributes(posting Posting) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(constant.AttrPostingKind, posting.Kind.String()),
		attribute.String(constant.AttrPostingSource, posting.Source.String()),
		attribute.String(constant.AttrPostingDestination, posting.Destination.String()),
		attribute.String(constant.AttrPostingAmount, posting.Amount.String()),
	}
}
