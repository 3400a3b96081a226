// Package log defines the logging interface and typed fields used across the gateway.
//
// Backends (such as the zap package) implement Logger so the ledger, registry
// and transport layers log through one contract regardless of the sink.
package log
