package runtime

import (
	"context"
	"errors"

	constant "github.com/LerianStudio/lib-gated/gated/constants"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrPanic is recorded on the span that observed a recovered panic.
var ErrPanic = errors.New("panic")

const PanicSpanEventName = constant.EventPanicRecovered

const maxSpanStackLen = 4096

func recordOnSpan(ctx context.Context, value string, stack []byte, component, name string) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	stackText := ""
	if !IsProductionMode() {
		stackText = string(stack)
		if len(stackText) > maxSpanStackLen {
			stackText = stackText[:maxSpanStackLen] + "\n...[truncated]"
		}
	}

	attrs := []attribute.KeyValue{
		attribute.String(constant.AttrPrefixPanic+"value", value),
		attribute.String(constant.AttrPrefixPanic+"stack", stackText),
		attribute.String(constant.AttrPrefixPanic+"goroutine_name", name),
	}

	where := name
	if component != "" {
		attrs = append(attrs, attribute.String(constant.AttrPrefixPanic+"component", component))
		where = component + "/" + name
	}

	span.AddEvent(PanicSpanEventName, trace.WithAttributes(attrs...))
	span.RecordError(ErrPanic)
	span.SetStatus(codes.Error, "panic recovered in "+where)
}
