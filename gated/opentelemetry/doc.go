// Package opentelemetry bootstraps OTLP trace, metric and log providers and
// offers span and propagation helpers used across the gateway.
package opentelemetry
