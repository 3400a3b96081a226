// Package backoff computes capped exponential delays with full jitter and
// retries connection attempts with them.
package backoff
