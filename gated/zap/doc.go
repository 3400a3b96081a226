// Package zap implements the gated/log contract on top of go.uber.org/zap.
//
// Every logger built by New tees into the OpenTelemetry log bridge, so entries
// written during a ledger operation are exported alongside its spans.
package zap
