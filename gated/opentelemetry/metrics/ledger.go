package metrics

import (
	"context"

	constant "github.com/LerianStudio/lib-gated/gated/constants"
)

// Pre-configured gateway metrics.
var (
	// MetricPostingsApplied counts committed postings by kind.
	MetricPostingsApplied = Metric{
		Name:        constant.MetricPostingsApplied,
		Unit:        "1",
		Description: "Number of postings committed to the gated ledger.",
	}

	// MetricAuthorizationDenied counts postings rejected because a gated side was not authorized.
	MetricAuthorizationDenied = Metric{
		Name:        constant.MetricAuthorizationDenied,
		Unit:        "1",
		Description: "Number of postings rejected by the source or destination authorization check.",
	}

	// MetricAuthorizationChanges counts grant/revoke calls that changed registry state.
	MetricAuthorizationChanges = Metric{
		Name:        constant.MetricAuthorizationChanges,
		Unit:        "1",
		Description: "Number of effective grant and revoke calls.",
	}

	// MetricLedgerSupply records total supply in whole ledger units.
	MetricLedgerSupply = Metric{
		Name:        constant.MetricLedgerSupply,
		Unit:        "{unit}",
		Description: "Current total supply of the gated ledger.",
	}

	// MetricWrapVolume records wrapped and unwrapped amounts in whole ledger units.
	MetricWrapVolume = Metric{
		Name:        constant.MetricWrapVolume,
		Unit:        "{unit}",
		Description: "Amounts moved through the wrap/unwrap adapter.",
		Buckets:     DefaultVolumeBuckets,
	}

	// MetricBundleExecuted counts bundle executions by outcome.
	MetricBundleExecuted = Metric{
		Name:        constant.MetricBundleExecuted,
		Unit:        "1",
		Description: "Number of composed bundles executed, by outcome.",
	}

	// MetricBreakerTransitions counts circuit breaker state changes.
	MetricBreakerTransitions = Metric{
		Name:        constant.MetricBreakerTransitions,
		Unit:        "1",
		Description: "Number of circuit breaker state transitions, by breaker and target state.",
	}

	// MetricBundleHops records the number of hops per executed bundle.
	MetricBundleHops = Metric{
		Name:        "bundle_hops",
		Unit:        "{hop}",
		Description: "Number of hops per executed bundle.",
		Buckets:     DefaultHopBuckets,
	}
)

// RecordPostingApplied increments the committed-postings counter for a posting kind.
func (f *MetricsFactory) RecordPostingApplied(ctx context.Context, kind string) error {
	b, err := f.Counter(MetricPostingsApplied)
	if err != nil {
		return err
	}

	return b.WithLabels(map[string]string{"kind": constant.SanitizeMetricLabel(kind)}).AddOne(ctx)
}

// RecordAuthorizationDenied increments the denial counter; side is "source" or "destination".
func (f *MetricsFactory) RecordAuthorizationDenied(ctx context.Context, kind, side string) error {
	b, err := f.Counter(MetricAuthorizationDenied)
	if err != nil {
		return err
	}

	return b.WithLabels(map[string]string{
		"kind": constant.SanitizeMetricLabel(kind),
		"side": constant.SanitizeMetricLabel(side),
	}).AddOne(ctx)
}

// RecordAuthorizationChange increments the registry change counter; action is "grant" or "revoke".
func (f *MetricsFactory) RecordAuthorizationChange(ctx context.Context, action string) error {
	b, err := f.Counter(MetricAuthorizationChanges)
	if err != nil {
		return err
	}

	return b.WithLabels(map[string]string{"action": constant.SanitizeMetricLabel(action)}).AddOne(ctx)
}

// RecordSupply sets the supply gauge.
func (f *MetricsFactory) RecordSupply(ctx context.Context, supply float64) error {
	b, err := f.FloatGauge(MetricLedgerSupply)
	if err != nil {
		return err
	}

	return b.Set(ctx, supply)
}

// RecordWrapVolume records an adapter movement; direction is "wrap" or "unwrap".
func (f *MetricsFactory) RecordWrapVolume(ctx context.Context, direction string, amount float64) error {
	b, err := f.FloatHistogram(MetricWrapVolume)
	if err != nil {
		return err
	}

	return b.WithLabels(map[string]string{"direction": constant.SanitizeMetricLabel(direction)}).Record(ctx, amount)
}

// RecordBundleExecuted records a bundle outcome and its hop count.
func (f *MetricsFactory) RecordBundleExecuted(ctx context.Context, outcome string, hops int) error {
	counter, err := f.Counter(MetricBundleExecuted)
	if err != nil {
		return err
	}

	if err := counter.WithLabels(map[string]string{"outcome": constant.SanitizeMetricLabel(outcome)}).AddOne(ctx); err != nil {
		return err
	}

	histogram, err := f.Histogram(MetricBundleHops)
	if err != nil {
		return err
	}

	return histogram.WithLabels(map[string]string{"outcome": constant.SanitizeMetricLabel(outcome)}).
		Record(ctx, int64(hops))
}


// RecordBreakerTransition counts a breaker moving into state to.
func (f *MetricsFactory) RecordBreakerTransition(ctx context.Context, breaker, to string) error {
	b, err := f.Counter(MetricBreakerTransitions)
	if err != nil {
		return err
	}

	return b.WithLabels(map[string]string{
		"breaker": constant.SanitizeMetricLabel(breaker),
		"state":   constant.SanitizeMetricLabel(to),
	}).AddOne(ctx)
}
