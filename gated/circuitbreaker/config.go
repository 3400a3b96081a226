package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker"
)

// Config holds breaker settings.
type Config struct {
	// MaxRequests is the number of probes let through while half-open.
	MaxRequests uint32
	// Interval resets the closed-state counters. Zero never resets them.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout time.Duration
	// ConsecutiveFailures trips the breaker on its own when non-zero.
	ConsecutiveFailures uint32
	// FailureRatio trips the breaker once MinRequests have been seen.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultConfig suits an upstream that sees steady traffic.
func DefaultConfig() Config {
	return Config{
		MaxRequests:         3,
		Interval:            2 * time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 15,
		FailureRatio:        0.5,
		MinRequests:         10,
	}
}

// ValueSourceConfig trips early. Value source calls sit on the path of every
// wrap and unwrap request.
func ValueSourceConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxRequests = 2
	cfg.Interval = time.Minute
	cfg.Timeout = 10 * time.Second
	cfg.ConsecutiveFailures = 5

	return cfg
}

func (c Config) tripped(counts gobreaker.Counts) bool {
	if c.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= c.ConsecutiveFailures {
		return true
	}

	if counts.Requests == 0 || counts.Requests < c.MinRequests {
		return false
	}

	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}
