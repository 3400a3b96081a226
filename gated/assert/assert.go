package assert

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/LerianStudio/lib-gated/gated/log"
	"github.com/LerianStudio/lib-gated/gated/runtime"
	"github.com/shopspring/decimal"
)

// Logger is the part of log.Logger assertions write to.
type Logger interface {
	Log(ctx context.Context, level log.Level, msg string, fields ...log.Field)
}

// ErrAssertionFailed is wrapped by every AssertionError.
var ErrAssertionFailed = errors.New("assertion failed")

// AssertionError is a violated invariant.
type AssertionError struct {
	Assertion string
	Message   string
	Component string
	Operation string
	Fields    []log.Field
}

func (e *AssertionError) Error() string {
	if e == nil {
		return ErrAssertionFailed.Error()
	}

	var sb strings.Builder

	sb.WriteString("assertion failed: ")
	sb.WriteString(e.Message)

	for _, f := range e.Fields {
		fmt.Fprintf(&sb, " %s=%v", f.Key, f.Value)
	}

	return sb.String()
}

func (e *AssertionError) Unwrap() error { return ErrAssertionFailed }

// Asserter labels the failures of one component and operation.
type Asserter struct {
	logger    Logger
	component string
	operation string
}

func New(logger Logger, component, operation string) *Asserter {
	return &Asserter{logger: logger, component: component, operation: operation}
}

// That fails when ok is false.
func (a *Asserter) That(ctx context.Context, ok bool, msg string, fields ...log.Field) error {
	if ok {
		return nil
	}

	return a.fail(ctx, "That", msg, fields)
}

// NonNegative fails when amount is below zero.
func (a *Asserter) NonNegative(ctx context.Context, amount decimal.Decimal, msg string, fields ...log.Field) error {
	if !amount.IsNegative() {
		return nil
	}

	return a.fail(ctx, "NonNegative", msg, append([]log.Field{log.Stringer("amount", amount)}, fields...))
}

// EqualAmounts fails unless want and got are numerically equal; scale is ignored.
func (a *Asserter) EqualAmounts(ctx context.Context, want, got decimal.Decimal, msg string, fields ...log.Field) error {
	if want.Equal(got) {
		return nil
	}

	return a.fail(ctx, "EqualAmounts", msg,
		append([]log.Field{log.Stringer("want", want), log.Stringer("got", got)}, fields...))
}

func (a *Asserter) fail(ctx context.Context, assertion, msg string, fields []log.Field) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if a == nil {
		a = &Asserter{}
	}

	var stack []byte
	if !runtime.IsProductionMode() {
		stack = debug.Stack()
	}

	if a.logger != nil {
		logFields := append([]log.Field{
			log.String("assertion", assertion),
			log.String("component", a.component),
			log.String("operation", a.operation),
		}, fields...)

		if stack != nil {
			logFields = append(logFields, log.String("stack_trace", string(stack)))
		}

		a.logger.Log(ctx, log.LevelError, "assertion failed: "+msg, logFields...)
	}

	countFailure(ctx, a.component, a.operation, assertion)
	recordOnSpan(ctx, assertion, msg, stack, a.component, a.operation)

	return &AssertionError{
		Assertion: assertion,
		Message:   msg,
		Component: a.component,
		Operation: a.operation,
		Fields:    fields,
	}
}
