//go:build unit

package gated

import (
	"context"
	"testing"

	"github.com/LerianStudio/lib-gated/gated/log"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestContextDefaults(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, log.NewNop(), NewLoggerFromContext(ctx))
	assert.NotNil(t, TracerFromContext(ctx))
	assert.Empty(t, HeaderIDFromContext(ctx))
	assert.Nil(t, AttributesFromContext(ctx))
}

func TestContextStoresRequestScope(t *testing.T) {
	logger := log.NewNop()
	tracer := noop.NewTracerProvider().Tracer("test")

	ctx := ContextWithLogger(context.Background(), logger)
	ctx = ContextWithTracer(ctx, tracer)
	ctx = ContextWithHeaderID(ctx, " req-1 ")

	assert.Equal(t, logger, NewLoggerFromContext(ctx))
	assert.Equal(t, tracer, TracerFromContext(ctx))
	assert.Equal(t, "req-1", HeaderIDFromContext(ctx))
}

func TestContextHelpersDoNotMutateParent(t *testing.T) {
	parent := ContextWithSpanAttributes(ContextWithHeaderID(context.Background(), "parent"), attribute.String("a", "1"))
	child := ContextWithHeaderID(parent, "child")
	child = ContextWithSpanAttributes(child, attribute.String("b", "2"))

	assert.Equal(t, "parent", HeaderIDFromContext(parent))
	assert.Equal(t, "child", HeaderIDFromContext(child))
	assert.Len(t, AttributesFromContext(parent), 1)
	assert.Len(t, AttributesFromContext(child), 2)
	assert.Equal(t, parent, ContextWithSpanAttributes(parent))
}
