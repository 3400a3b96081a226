package circuitbreaker

import (
	"context"
	"errors"

	"github.com/LerianStudio/lib-gated/gated/opentelemetry/metrics"
	"github.com/sony/gobreaker"
)

// ErrBreakerNotFound is returned by Execute for an unknown breaker name.
var ErrBreakerNotFound = errors.New("circuit breaker not found")

// Manager owns the named breakers of a process.
type Manager interface {
	GetOrCreate(name string, config Config) CircuitBreaker
	// Execute runs fn through the named breaker. The breaker must exist.
	Execute(name string, fn func() (any, error)) (any, error)
	GetState(name string) State
	GetCounts(name string) Counts
	IsHealthy(name string) bool
	// Reset swaps in a fresh closed breaker built from the stored config.
	Reset(name string)
	RegisterStateChangeListener(listener StateChangeListener)
}

// CircuitBreaker is a single breaker.
type CircuitBreaker interface {
	Execute(fn func() (any, error)) (any, error)
	State() State
	Counts() Counts
}

// State is a breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
	StateUnknown  State = "unknown"
)

func (s State) String() string { return string(s) }

var states = map[gobreaker.State]State{
	gobreaker.StateClosed:   StateClosed,
	gobreaker.StateOpen:     StateOpen,
	gobreaker.StateHalfOpen: StateHalfOpen,
}

func stateOf(s gobreaker.State) State {
	if state, ok := states[s]; ok {
		return state
	}

	return StateUnknown
}

// Counts mirrors the gobreaker request counters of the current generation.
type Counts gobreaker.Counts

// StateChangeListener is notified asynchronously when a breaker changes state.
type StateChangeListener interface {
	OnStateChange(name string, from State, to State)
}

// MetricsListener counts transitions in a metrics factory.
type MetricsListener struct {
	factory *metrics.MetricsFactory
}

// NewMetricsListener returns a listener that records every transition. A nil
// factory makes it a no-op.
func NewMetricsListener(factory *metrics.MetricsFactory) *MetricsListener {
	return &MetricsListener{factory: factory}
}

func (l *MetricsListener) OnStateChange(name string, _ State, to State) {
	if l == nil || l.factory == nil {
		return
	}

	_ = l.factory.RecordBreakerTransition(context.Background(), name, string(to))
}

type breaker struct {
	cb *gobreaker.CircuitBreaker
}

func (b breaker) Execute(fn func() (any, error)) (any, error) { return b.cb.Execute(fn) }

func (b breaker) State() State { return stateOf(b.cb.State()) }

func (b breaker) Counts() Counts { return Counts(b.cb.Counts()) }
