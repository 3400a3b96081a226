// Package runtime recovers panics into logs, a metric and span events, and
// launches goroutines under a panic policy.
package runtime
