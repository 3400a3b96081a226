package metrics

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilCounter is returned when a counter builder has no instrument.
	ErrNilCounter = errors.New("counter instrument is nil")
	// ErrNilInstrument is returned when a gauge or histogram builder has no instrument.
	ErrNilInstrument = errors.New("metric instrument is nil")
)

// attrs is an immutable attribute list shared by the builders.
type attrs []attribute.KeyValue

func (a attrs) withLabels(labels map[string]string) attrs {
	out := make(attrs, 0, len(a)+len(labels))
	out = append(out, a...)

	for key, value := range labels {
		out = append(out, attribute.String(key, value))
	}

	return out
}

func (a attrs) withAttributes(kv ...attribute.KeyValue) attrs {
	out := make(attrs, 0, len(a)+len(kv))
	out = append(out, a...)

	return append(out, kv...)
}

// CounterBuilder records int64 counter increments with optional labels.
type CounterBuilder struct {
	counter metric.Int64Counter
	name    string
	attrs   attrs
}

// WithLabels returns a builder with additional string labels.
func (c *CounterBuilder) WithLabels(labels map[string]string) *CounterBuilder {
	return &CounterBuilder{counter: c.counter, name: c.name, attrs: c.attrs.withLabels(labels)}
}

// WithAttributes returns a builder with additional OpenTelemetry attributes.
func (c *CounterBuilder) WithAttributes(kv ...attribute.KeyValue) *CounterBuilder {
	return &CounterBuilder{counter: c.counter, name: c.name, attrs: c.attrs.withAttributes(kv...)}
}

// Add records a counter increment.
func (c *CounterBuilder) Add(ctx context.Context, value int64) error {
	if c.counter == nil {
		return ErrNilCounter
	}

	c.counter.Add(ctx, value, metric.WithAttributes(c.attrs...))

	return nil
}

// AddOne increments the counter by one.
func (c *CounterBuilder) AddOne(ctx context.Context) error {
	return c.Add(ctx, 1)
}

// Number is the value type of a recording instrument.
type Number interface {
	~int64 | ~float64
}

// recorder is satisfied by the OTel int64/float64 gauges and histograms.
type recorder[N Number] interface {
	Record(ctx context.Context, value N, opts ...metric.RecordOption)
}

// Instrument records values on a gauge or histogram with optional labels.
type Instrument[N Number] struct {
	inst  recorder[N]
	name  string
	attrs attrs
}

// Builder aliases for the instruments the factory hands out.
type (
	GaugeBuilder          = Instrument[int64]
	HistogramBuilder      = Instrument[int64]
	FloatGaugeBuilder     = Instrument[float64]
	FloatHistogramBuilder = Instrument[float64]
)

// WithLabels returns an instrument with additional string labels.
func (i *Instrument[N]) WithLabels(labels map[string]string) *Instrument[N] {
	return &Instrument[N]{inst: i.inst, name: i.name, attrs: i.attrs.withLabels(labels)}
}

// WithAttributes returns an instrument with additional OpenTelemetry attributes.
func (i *Instrument[N]) WithAttributes(kv ...attribute.KeyValue) *Instrument[N] {
	return &Instrument[N]{inst: i.inst, name: i.name, attrs: i.attrs.withAttributes(kv...)}
}

// Record records value.
func (i *Instrument[N]) Record(ctx context.Context, value N) error {
	if i.inst == nil {
		return ErrNilInstrument
	}

	i.inst.Record(ctx, value, metric.WithAttributes(i.attrs...))

	return nil
}

// Set is Record, named for gauges.
func (i *Instrument[N]) Set(ctx context.Context, value N) error {
	return i.Record(ctx, value)
}
