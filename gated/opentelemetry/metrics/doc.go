// Package metrics provides a cached OpenTelemetry instrument factory and the
// gateway's domain recorders (postings, authorization denials, supply, wrap volume).
package metrics
