package opentelemetry

import (
	"context"

	"github.com/LerianStudio/lib-gated/gated"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// AttrBagSpanProcessor copies the request attribute bag onto every span at start.
type AttrBagSpanProcessor struct{}

// OnStart implements sdktrace.SpanProcessor.
func (AttrBagSpanProcessor) OnStart(ctx context.Context, s sdktrace.ReadWriteSpan) {
	if kv := gated.AttributesFromContext(ctx); len(kv) > 0 {
		s.SetAttributes(kv...)
	}
}

// OnEnd implements sdktrace.SpanProcessor.
func (AttrBagSpanProcessor) OnEnd(sdktrace.ReadOnlySpan) {}

// Shutdown implements sdktrace.SpanProcessor.
func (AttrBagSpanProcessor) Shutdown(context.Context) error { return nil }

// ForceFlush implements sdktrace.SpanProcessor.
func (AttrBagSpanProcessor) ForceFlush(context.Context) error { return nil }
