package assert

import (
	"context"
	"fmt"
	"sync/atomic"

	constant "github.com/LerianStudio/lib-gated/gated/constants"
	"github.com/LerianStudio/lib-gated/gated/opentelemetry/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const AssertionSpanEventName = constant.EventAssertionFailed

var failureFactory atomic.Pointer[metrics.MetricsFactory]

// InitAssertionMetrics makes failures count on factory. The first non-nil factory wins.
func InitAssertionMetrics(factory *metrics.MetricsFactory) {
	if factory != nil {
		failureFactory.CompareAndSwap(nil, factory)
	}
}

// ResetAssertionMetrics uninstalls the counter. Tests use it.
func ResetAssertionMetrics() { failureFactory.Store(nil) }

func countFailure(ctx context.Context, component, operation, assertion string) {
	if factory := failureFactory.Load(); factory != nil {
		_ = factory.RecordAssertionFailed(ctx, component, operation, assertion)
	}
}

func recordOnSpan(ctx context.Context, assertion, msg string, stack []byte, component, operation string) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	key := func(name string) attribute.Key { return attribute.Key(constant.AttrPrefixAssertion + name) }

	attrs := []attribute.KeyValue{
		key("name").String(assertion),
		key("message").String(msg),
		key("component").String(component),
		key("operation").String(operation),
	}

	if len(stack) > 0 {
		attrs = append(attrs, key("stack").String(string(stack)))
	}

	span.AddEvent(AssertionSpanEventName, trace.WithAttributes(attrs...))
	span.RecordError(fmt.Errorf("%w: %s", ErrAssertionFailed, msg))
	span.SetStatus(codes.Error, "assertion failed in "+component+"/"+operation)
}
