// Package reserve defines the external value source wrapped by the gateway
// and provides an in-memory implementation plus a circuit breaker decorator.
package reserve
