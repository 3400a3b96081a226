package opentelemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AddEvent adds a named event to span. A nil span is ignored.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}

	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordBusinessError records an expected rejection as an event and leaves the
// span status untouched.
func RecordBusinessError(span trace.Span, name string, err error) {
	if span == nil || err == nil {
		return
	}

	span.AddEvent(name, trace.WithAttributes(attribute.String("error", err.Error())))
}

// RecordError marks span as failed with message and records err.
func RecordError(span trace.Span, message string, err error) {
	if span == nil || err == nil {
		return
	}

	span.SetStatus(codes.Error, message+": "+err.Error())
	span.RecordError(err)
}
