// Package gateway exposes the registry, the gated ledger, the wrap adapter and
// the bundle executor over HTTP with fiber.
//
// Mutating endpoints honour the X-Idempotency header when an idempotency
// store is configured: a retried request replays the first response.
package gateway
