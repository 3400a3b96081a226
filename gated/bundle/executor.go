package bundle

import (
	"context"
	"errors"

	"github.com/LerianStudio/lib-gated/gated"
	constant "github.com/LerianStudio/lib-gated/gated/constants"
	"github.com/LerianStudio/lib-gated/gated/ledger"
	"github.com/LerianStudio/lib-gated/gated/log"
	libOpentelemetry "github.com/LerianStudio/lib-gated/gated/opentelemetry"
	"github.com/LerianStudio/lib-gated/gated/opentelemetry/metrics"
	"github.com/LerianStudio/lib-gated/gated/wrapper"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Result is a committed bundle.
type Result struct {
	BundleID uuid.UUID      `json:"bundleId"`
	Receipt  ledger.Receipt `json:"receipt"`
	Analysis Analysis       `json:"analysis"`
}

// Executor runs bundles against a ledger.
type Executor struct {
	ledger  *ledger.Ledger
	adapter *wrapper.Adapter
	logger  log.Logger
	metrics *metrics.MetricsFactory
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithAdapter enables WRAP and UNWRAP steps.
func WithAdapter(adapter *wrapper.Adapter) ExecutorOption {
	return func(e *Executor) {
		e.adapter = adapter
	}
}

// WithLogger sets the executor logger.
func WithLogger(logger log.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetricsFactory enables bundle outcome metrics.
func WithMetricsFactory(factory *metrics.MetricsFactory) ExecutorOption {
	return func(e *Executor) {
		e.metrics = factory
	}
}

// NewExecutor creates an executor over l.
func NewExecutor(l *ledger.Ledger, opts ...ExecutorOption) *Executor {
	e := &Executor{ledger: l, logger: log.NewNop()}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute runs every step of b inside one ledger unit of work. Either all
// hops commit or none do; the failing hop is reported as a *HopError. Unwrap
// payouts run after the last hop has passed, and a failed payout is returned
// as the upstream error. The context is checked before each hop.
func (e *Executor) Execute(ctx context.Context, b Bundle) (Result, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	tracer := gated.TracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "bundle.execute")
	defer span.End()

	span.SetAttributes(
		attribute.String(constant.AttrBundleID, b.ID.String()),
		attribute.Int(constant.AttrBundleSteps, len(b.Steps)),
	)

	if err := Validate(b.Steps); err != nil {
		e.finish(ctx, b, "invalid", err)
		libOpentelemetry.RecordBusinessError(span, "bundle.invalid", err)

		return Result{}, err
	}

	var analysis Analysis

	receipt, err := e.ledger.Atomic(ctx, func(tx *ledger.Tx) error {
		analysis = Analyze(b.Steps, tx)

		for hop, step := range b.Steps {
			if err := tx.Context().Err(); err != nil {
				return &HopError{Index: hop, Step: step, Err: err}
			}

			if err := e.apply(tx, step); err != nil {
				return &HopError{Index: hop, Step: step, Err: err}
			}
		}

		return nil
	})
	if err != nil {
		var hopErr *HopError
		if errors.As(err, &hopErr) {
			span.SetAttributes(attribute.Int(constant.AttrBundleHop, hopErr.Index))
		}

		e.finish(ctx, b, "rejected", err)
		libOpentelemetry.RecordBusinessError(span, "bundle.rejected", err)

		return Result{}, err
	}

	e.finish(ctx, b, "committed", nil)

	return Result{BundleID: b.ID, Receipt: receipt, Analysis: analysis}, nil
}

func (e *Executor) apply(tx *ledger.Tx, step Step) error {
	switch step.Op {
	case OpWrap:
		if e.adapter == nil {
			return ErrWrapUnavailable
		}

		return e.adapter.WrapTx(tx, step.Destination, step.Amount)
	case OpUnwrap:
		if e.adapter == nil {
			return ErrWrapUnavailable
		}

		return e.adapter.UnwrapTx(tx, step.Source, step.Amount)
	default:
		return tx.Apply(step.Posting())
	}
}

func (e *Executor) finish(ctx context.Context, b Bundle, outcome string, err error) {
	fields := []log.Field{
		log.Stringer("bundle_id", b.ID),
		log.Int("steps", len(b.Steps)),
		log.String("outcome", outcome),
	}

	if err != nil {
		e.logger.Log(ctx, log.LevelInfo, "bundle aborted", append(fields, log.Err(err))...)
	} else {
		e.logger.Log(ctx, log.LevelInfo, "bundle committed", fields...)
	}

	if e.metrics == nil {
		return
	}

	if mErr := e.metrics.RecordBundleExecuted(ctx, outcome, len(b.Steps)); mErr != nil {
		e.logger.Log(ctx, log.LevelWarn, "failed to record bundle metric", log.Err(mErr))
	}
}
