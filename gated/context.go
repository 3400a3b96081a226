package gated

import (
	"context"
	"strings"

	"github.com/LerianStudio/lib-gated/gated/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type requestScopeKey struct{}

const defaultTracerName = "gated.default"

// requestScope is what the transport layer attaches to a request context.
// It is copied on every change so derived contexts never alter their parent.
type requestScope struct {
	headerID string
	tracer   trace.Tracer
	logger   log.Logger
	// attrs are copied onto every span started under the request.
	attrs []attribute.KeyValue
}

func scopeOf(ctx context.Context) requestScope {
	if scope, ok := ctx.Value(requestScopeKey{}).(requestScope); ok {
		return scope
	}

	return requestScope{}
}

func withScope(ctx context.Context, change func(*requestScope)) context.Context {
	scope := scopeOf(ctx)
	scope.attrs = append([]attribute.KeyValue(nil), scope.attrs...)
	change(&scope)

	return context.WithValue(ctx, requestScopeKey{}, scope)
}

func ContextWithLogger(ctx context.Context, logger log.Logger) context.Context {
	return withScope(ctx, func(s *requestScope) { s.logger = logger })
}

func ContextWithTracer(ctx context.Context, tracer trace.Tracer) context.Context {
	return withScope(ctx, func(s *requestScope) { s.tracer = tracer })
}

// ContextWithHeaderID stores the request id, trimmed.
func ContextWithHeaderID(ctx context.Context, headerID string) context.Context {
	return withScope(ctx, func(s *requestScope) { s.headerID = strings.TrimSpace(headerID) })
}

// ContextWithSpanAttributes adds kv to the attributes stamped on the request's spans.
func ContextWithSpanAttributes(ctx context.Context, kv ...attribute.KeyValue) context.Context {
	if len(kv) == 0 {
		return ctx
	}

	return withScope(ctx, func(s *requestScope) { s.attrs = append(s.attrs, kv...) })
}

// NewLoggerFromContext returns the request logger, or a Nop logger.
func NewLoggerFromContext(ctx context.Context) log.Logger {
	if logger := scopeOf(ctx).logger; logger != nil {
		return logger
	}

	return log.NewNop()
}

// TracerFromContext returns the request tracer, or one from the global provider.
func TracerFromContext(ctx context.Context) trace.Tracer {
	if tracer := scopeOf(ctx).tracer; tracer != nil {
		return tracer
	}

	return otel.Tracer(defaultTracerName)
}

// HeaderIDFromContext returns the request id, empty outside a request.
func HeaderIDFromContext(ctx context.Context) string {
	return scopeOf(ctx).headerID
}

// AttributesFromContext returns a copy of the request span attributes.
func AttributesFromContext(ctx context.Context) []attribute.KeyValue {
	attrs := scopeOf(ctx).attrs
	if len(attrs) == 0 {
		return nil
	}

	return append([]attribute.KeyValue(nil), attrs...)
}
