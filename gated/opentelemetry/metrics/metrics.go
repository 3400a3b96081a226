package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/LerianStudio/lib-gated/gated/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MetricsFactory creates OpenTelemetry instruments lazily and caches them by name.
// It is safe for concurrent use.
type MetricsFactory struct {
	meter           metric.Meter
	counters        sync.Map // string -> metric.Int64Counter
	gauges          sync.Map // string -> metric.Int64Gauge
	histograms      sync.Map // string -> metric.Int64Histogram
	floatGauges     sync.Map // string -> metric.Float64Gauge
	floatHistograms sync.Map // string -> metric.Float64Histogram
	logger          log.Logger
}

// ErrNilMeter indicates that a nil OTEL meter was provided.
var ErrNilMeter = errors.New("metric meter cannot be nil")

// Metric describes an instrument.
type Metric struct {
	Name        string
	Description string
	Unit        string
	// Buckets are explicit histogram boundaries; ignored by other instruments.
	Buckets []float64
}

// Default histogram bucket configurations.
var (
	// DefaultLatencyBuckets for latency measurements, in seconds.
	DefaultLatencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

	// DefaultHopBuckets for the number of hops per bundle.
	DefaultHopBuckets = []float64{1, 2, 3, 4, 5, 8, 13, 21, 34, 64}

	// DefaultVolumeBuckets for wrapped/unwrapped amounts, in whole ledger units.
	DefaultVolumeBuckets = []float64{1, 10, 100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000}
)

// NewMetricsFactory creates a new MetricsFactory.
func NewMetricsFactory(meter metric.Meter, logger log.Logger) (*MetricsFactory, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	if logger == nil {
		logger = log.NewNop()
	}

	return &MetricsFactory{meter: meter, logger: logger}, nil
}

// NewNopFactory returns a MetricsFactory backed by the OpenTelemetry no-op meter.
func NewNopFactory() *MetricsFactory {
	return &MetricsFactory{
		meter:  noop.NewMeterProvider().Meter("nop"),
		logger: log.NewNop(),
	}
}

// Counter creates or retrieves an int64 counter.
func (f *MetricsFactory) Counter(m Metric) (*CounterBuilder, error) {
	counter, err := loadOrCreate(&f.counters, m.Name, func() (metric.Int64Counter, error) {
		return f.meter.Int64Counter(m.Name, metric.WithDescription(m.Description), metric.WithUnit(m.Unit))
	})
	if err != nil {
		return nil, f.reportCreateError("counter", m.Name, err)
	}

	return &CounterBuilder{counter: counter, name: m.Name}, nil
}

// Gauge creates or retrieves an int64 gauge.
func (f *MetricsFactory) Gauge(m Metric) (*GaugeBuilder, error) {
	gauge, err := loadOrCreate(&f.gauges, m.Name, func() (metric.Int64Gauge, error) {
		return f.meter.Int64Gauge(m.Name, metric.WithDescription(m.Description), metric.WithUnit(m.Unit))
	})
	if err != nil {
		return nil, f.reportCreateError("gauge", m.Name, err)
	}

	return &GaugeBuilder{inst: gauge, name: m.Name}, nil
}

// Histogram creates or retrieves an int64 histogram. Different bucket layouts
// for the same name produce distinct instruments.
func (f *MetricsFactory) Histogram(m Metric) (*HistogramBuilder, error) {
	if m.Buckets == nil {
		m.Buckets = DefaultLatencyBuckets
	}

	histogram, err := loadOrCreate(&f.histograms, histogramCacheKey(m.Name, m.Buckets), func() (metric.Int64Histogram, error) {
		return f.meter.Int64Histogram(m.Name,
			metric.WithDescription(m.Description),
			metric.WithUnit(m.Unit),
			metric.WithExplicitBucketBoundaries(m.Buckets...),
		)
	})
	if err != nil {
		return nil, f.reportCreateError("histogram", m.Name, err)
	}

	return &HistogramBuilder{inst: histogram, name: m.Name}, nil
}

// FloatGauge creates or retrieves a float64 gauge, used for values that exceed int64
// once scaled to base units, such as total supply.
func (f *MetricsFactory) FloatGauge(m Metric) (*FloatGaugeBuilder, error) {
	gauge, err := loadOrCreate(&f.floatGauges, m.Name, func() (metric.Float64Gauge, error) {
		return f.meter.Float64Gauge(m.Name, metric.WithDescription(m.Description), metric.WithUnit(m.Unit))
	})
	if err != nil {
		return nil, f.reportCreateError("float gauge", m.Name, err)
	}

	return &FloatGaugeBuilder{inst: gauge, name: m.Name}, nil
}

// FloatHistogram creates or retrieves a float64 histogram.
func (f *MetricsFactory) FloatHistogram(m Metric) (*FloatHistogramBuilder, error) {
	if m.Buckets == nil {
		m.Buckets = DefaultVolumeBuckets
	}

	histogram, err := loadOrCreate(&f.floatHistograms, histogramCacheKey(m.Name, m.Buckets), func() (metric.Float64Histogram, error) {
		return f.meter.Float64Histogram(m.Name,
			metric.WithDescription(m.Description),
			metric.WithUnit(m.Unit),
			metric.WithExplicitBucketBoundaries(m.Buckets...),
		)
	})
	if err != nil {
		return nil, f.reportCreateError("float histogram", m.Name, err)
	}

	return &FloatHistogramBuilder{inst: histogram, name: m.Name}, nil
}

func (f *MetricsFactory) reportCreateError(kind, name string, err error) error {
	if f.logger != nil {
		f.logger.Log(context.Background(), log.LevelError, "failed to create "+kind+" metric",
			log.String("metric_name", name), log.Err(err))
	}

	return fmt.Errorf("create %s %q: %w", kind, name, err)
}

// loadOrCreate returns the cached instrument under key or creates and stores one.
// Concurrent creators converge on the first stored instrument.
func loadOrCreate[T any](cache *sync.Map, key string, create func() (T, error)) (T, error) {
	var zero T

	if cached, ok := cache.Load(key); ok {
		instrument, ok := cached.(T)
		if !ok {
			return zero, fmt.Errorf("instrument cache contains invalid type for %q", key)
		}

		return instrument, nil
	}

	instrument, err := create()
	if err != nil {
		return zero, err
	}

	actual, _ := cache.LoadOrStore(key, instrument)

	stored, ok := actual.(T)
	if !ok {
		return zero, fmt.Errorf("instrument cache contains invalid type for %q", key)
	}

	return stored, nil
}

func histogramCacheKey(name string, buckets []float64) string {
	if len(buckets) == 0 {
		return name
	}

	sorted := make([]float64, len(buckets))
	copy(sorted, buckets)
	sort.Float64s(sorted)

	parts := make([]string, len(sorted))
	for i, b := range sorted {
		parts[i] = strconv.FormatFloat(b, 'g', -1, 64)
	}

	return name + ":" + strings.Join(parts, ",")
}
