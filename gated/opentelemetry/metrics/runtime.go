package metrics

import (
	"context"

	constant "github.com/LerianStudio/lib-gated/gated/constants"
)

var (
	// MetricPanicRecovered counts panics caught by the runtime recovery helpers.
	MetricPanicRecovered = Metric{
		Name:        constant.MetricPanicRecoveredTotal,
		Unit:        "1",
		Description: "Total number of recovered panics.",
	}

	// MetricAssertionFailed counts failed runtime assertions.
	MetricAssertionFailed = Metric{
		Name:        constant.MetricAssertionFailedTotal,
		Unit:        "1",
		Description: "Total number of failed assertions.",
	}
)

// RecordPanicRecovered counts a recovered panic of goroutine name in component.
func (f *MetricsFactory) RecordPanicRecovered(ctx context.Context, component, name string) error {
	b, err := f.Counter(MetricPanicRecovered)
	if err != nil {
		return err
	}

	return b.WithLabels(map[string]string{
		"component":      constant.SanitizeMetricLabel(component),
		"goroutine_name": constant.SanitizeMetricLabel(name),
	}).AddOne(ctx)
}

// RecordAssertionFailed counts a failed assertion.
func (f *MetricsFactory) RecordAssertionFailed(ctx context.Context, component, operation, assertion string) error {
	b, err := f.Counter(MetricAssertionFailed)
	if err != nil {
		return err
	}

	return b.WithLabels(map[string]string{
		"component": constant.SanitizeMetricLabel(component),
		"operation": constant.SanitizeMetricLabel(operation),
		"assertion": constant.SanitizeMetricLabel(assertion),
	}).AddOne(ctx)
}
