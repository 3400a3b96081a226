// Package gated holds the shared building blocks of the gateway: participant
// identities, request-scoped context helpers, business error responses,
// environment configuration and the application launcher.
//
// The core components live in subpackages: registry (authorization flags),
// ledger (dual-gated balances), wrapper and reserve (1:1 adapter over an
// external value source) and bundle (composed multi-hop execution).
package gated
