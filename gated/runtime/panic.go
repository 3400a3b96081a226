package runtime

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/LerianStudio/lib-gated/gated/log"
)

// Logger is the part of log.Logger this package needs.
type Logger interface {
	Log(ctx context.Context, level log.Level, msg string, fields ...log.Field)
}

// PanicPolicy says what happens once a recovered panic has been recorded.
type PanicPolicy int

const (
	// KeepRunning swallows the panic.
	KeepRunning PanicPolicy = iota
	// CrashProcess re-panics with the original value.
	CrashProcess
)

const redactedPanic = "panic recovered (details redacted)"

var production atomic.Bool

// SetProductionMode hides panic values and stacks from logs and spans.
func SetProductionMode(enabled bool) { production.Store(enabled) }

func IsProductionMode() bool { return production.Load() }

// RecoverAndLogWithContext is meant to be deferred. It records a panic and
// lets the caller return normally.
//
//	defer runtime.RecoverAndLogWithContext(ctx, logger, "server", "closer_redis")
func RecoverAndLogWithContext(ctx context.Context, logger Logger, component, name string) {
	if r := recover(); r != nil {
		record(ctx, logger, r, component, name)
	}
}

// RecoverWithPolicyAndContext is RecoverAndLogWithContext that re-panics under CrashProcess.
func RecoverWithPolicyAndContext(ctx context.Context, logger Logger, component, name string, policy PanicPolicy) {
	if r := recover(); r != nil {
		record(ctx, logger, r, component, name)

		if policy == CrashProcess {
			panic(r)
		}
	}
}

// HandlePanicValue records a value someone else already recovered, such as a
// ledger transaction turning a panic into an error. Nil is ignored.
func HandlePanicValue(ctx context.Context, logger Logger, panicValue any, component, name string) {
	if panicValue != nil {
		record(ctx, logger, panicValue, component, name)
	}
}

// SafeGo runs fn on a new goroutine that cannot take the process down under KeepRunning.
func SafeGo(logger Logger, name string, policy PanicPolicy, fn func()) {
	if fn == nil {
		return
	}

	SafeGoWithContextAndComponent(context.Background(), logger, "", name, policy, func(context.Context) { fn() })
}

// SafeGoWithContextAndComponent is SafeGo with ctx handed to fn and used for
// the panic span and metric.
func SafeGoWithContextAndComponent(ctx context.Context, logger Logger, component, name string, policy PanicPolicy, fn func(context.Context)) {
	if fn == nil {
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}

	go func() {
		defer RecoverWithPolicyAndContext(ctx, logger, component, name, policy)

		fn(ctx)
	}()
}

func record(ctx context.Context, logger Logger, panicValue any, component, name string) {
	if ctx == nil {
		ctx = context.Background()
	}

	stack := debug.Stack()
	value := describe(panicValue)

	if logger != nil {
		fields := []log.Field{
			log.String("component", component),
			log.String("source", name),
			log.String("panic_value", value),
		}

		if !IsProductionMode() {
			fields = append(fields, log.String("stack_trace", string(stack)))
		}

		logger.Log(ctx, log.LevelError, "panic recovered", fields...)
	}

	countPanic(ctx, component, name)
	recordOnSpan(ctx, value, stack, component, name)
}

// describe renders a panic value, or the redaction marker in production.
func describe(value any) string {
	if IsProductionMode() {
		return redactedPanic
	}

	switch v := value.(type) {
	case string:
		return v
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}
