package metrics

import "context"

// Host gauges sampled by the gateway monitor, as whole percentages.
var (
	MetricSystemCPUUsage = Metric{Name: "system.cpu.usage", Unit: "percentage", Description: "Host CPU usage."}
	MetricSystemMemUsage = Metric{Name: "system.mem.usage", Unit: "percentage", Description: "Host memory usage."}
)

func (f *MetricsFactory) RecordSystemCPUUsage(ctx context.Context, percentage int64) error {
	return f.setGauge(ctx, MetricSystemCPUUsage, percentage)
}

func (f *MetricsFactory) RecordSystemMemUsage(ctx context.Context, percentage int64) error {
	return f.setGauge(ctx, MetricSystemMemUsage, percentage)
}

func (f *MetricsFactory) setGauge(ctx context.Context, m Metric, value int64) error {
	gauge, err := f.Gauge(m)
	if err != nil {
		return err
	}

	return gauge.Set(ctx, value)
}
