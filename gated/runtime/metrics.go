package runtime

import (
	"context"
	"sync/atomic"

	"github.com/LerianStudio/lib-gated/gated/log"
	"github.com/LerianStudio/lib-gated/gated/opentelemetry/metrics"
)

type panicCounter struct {
	factory *metrics.MetricsFactory
	logger  Logger
}

var panicMetrics atomic.Pointer[panicCounter]

// InitPanicMetrics makes recovered panics count on factory. The first call
// with a non-nil factory wins; logger reports recording failures.
func InitPanicMetrics(factory *metrics.MetricsFactory, logger Logger) {
	if factory == nil {
		return
	}

	panicMetrics.CompareAndSwap(nil, &panicCounter{factory: factory, logger: logger})
}

// ResetPanicMetrics uninstalls the counter. Tests use it.
func ResetPanicMetrics() { panicMetrics.Store(nil) }

func countPanic(ctx context.Context, component, name string) {
	pc := panicMetrics.Load()
	if pc == nil {
		return
	}

	if err := pc.factory.RecordPanicRecovered(ctx, component, name); err != nil && pc.logger != nil {
		pc.logger.Log(ctx, log.LevelWarn, "failed to record panic metric", log.Err(err))
	}
}
