package opentelemetry

import (
	"context"
	"maps"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// queueCarrier exposes AMQP headers as a propagation.TextMapCarrier. Only
// string values are visible to the propagator.
type queueCarrier map[string]any

func (c queueCarrier) Get(key string) string {
	v, _ := c[key].(string)
	return v
}

func (c queueCarrier) Set(key, value string) { c[key] = value }

func (c queueCarrier) Keys() []string { return slices.Collect(maps.Keys(c)) }

// PrepareQueueHeaders copies baseHeaders and injects the trace context of ctx,
// producing a map suitable for amqp.Table.
func PrepareQueueHeaders(ctx context.Context, baseHeaders map[string]any) map[string]any {
	headers := make(map[string]any, len(baseHeaders)+2)
	maps.Copy(headers, baseHeaders)

	otel.GetTextMapPropagator().Inject(ctx, queueCarrier(headers))

	return headers
}

// ExtractTraceContextFromQueueHeaders restores the trace context carried in AMQP headers.
func ExtractTraceContextFromQueueHeaders(baseCtx context.Context, headers map[string]any) context.Context {
	if len(headers) == 0 {
		return baseCtx
	}

	return otel.GetTextMapPropagator().Extract(baseCtx, queueCarrier(headers))
}

// GetTraceIDFromContext returns the active trace id or an empty string.
func GetTraceIDFromContext(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}

	return ""
}
