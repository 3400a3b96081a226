// Package idempotency remembers the outcome of mutating requests by key so a
// retried request replays the first response instead of being applied twice.
//
// A key moves through two states: reserved (a request holding the key is in
// flight) and completed (a Record is stored). Both expire after a TTL.
package idempotency
