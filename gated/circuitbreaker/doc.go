// Package circuitbreaker manages named sony/gobreaker breakers. The gateway
// uses it to fast-fail calls to the external value source while it is unhealthy.
package circuitbreaker
