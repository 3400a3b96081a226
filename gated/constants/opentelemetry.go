package constant

const TelemetrySDKName = "lib-gated/opentelemetry"

// MaxMetricLabelLength bounds label values to keep cardinality in check.
const MaxMetricLabelLength = 64

const (
	AttrPrefixAppRequest = "app.request."
	AttrPrefixAssertion  = "assertion."
	AttrPrefixPanic      = "panic."

	AttrPostingKind        = "ledger.posting.kind"
	AttrPostingSource      = "ledger.posting.source"
	AttrPostingDestination = "ledger.posting.destination"
	AttrPostingAmount      = "ledger.posting.amount"
	AttrReceiptID          = "ledger.receipt.id"
	AttrBundleID           = "bundle.id"
	AttrBundleHop          = "bundle.hop"
	AttrBundleSteps        = "bundle.steps"
	AttrErrorCode          = "error.code"
)

// Metric names.
const (
	MetricPanicRecoveredTotal  = "panic_recovered_total"
	MetricAssertionFailedTotal = "assertion_failed_total"
	MetricPostingsApplied      = "ledger_postings_applied_total"
	// MetricAuthorizationDenied counts postings stopped by the source or destination gate.
	MetricAuthorizationDenied  = "ledger_authorization_denied_total"
	MetricAuthorizationChanges = "authorization_changes_total"
	// MetricLedgerSupply is in base units.
	MetricLedgerSupply   = "ledger_supply"
	MetricWrapVolume     = "wrapper_volume"
	MetricBundleExecuted = "bundle_executed_total"
	// MetricBreakerTransitions is labelled by breaker name and target state.
	MetricBreakerTransitions = "circuit_breaker_transitions_total"
)

// Span event names.
const (
	EventAssertionFailed = "assertion.failed"
	EventPanicRecovered  = "panic.recovered"
	EventPostingApplied  = "ledger.posting.applied"
	EventPostingRejected = "ledger.posting.rejected"
)

// SanitizeMetricLabel cuts value to MaxMetricLabelLength bytes.
func SanitizeMetricLabel(value string) string {
	if len(value) > MaxMetricLabelLength {
		return value[:MaxMetricLabelLength]
	}

	return value
}
