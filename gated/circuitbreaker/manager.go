package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/LerianStudio/lib-gated/gated/log"
	"github.com/LerianStudio/lib-gated/gated/runtime"
	"github.com/sony/gobreaker"
)

type entry struct {
	cb     *gobreaker.CircuitBreaker
	config Config
}

type manager struct {
	mu        sync.RWMutex
	entries   map[string]entry
	listeners []StateChangeListener
	logger    log.Logger
}

// NewManager creates a Manager. A nil logger is replaced by the no-op logger.
func NewManager(logger log.Logger) Manager {
	if logger == nil {
		logger = log.NewNop()
	}

	return &manager{entries: make(map[string]entry), logger: logger}
}

func (m *manager) lookup(name string) (*gobreaker.CircuitBreaker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[name]

	return e.cb, ok
}

func (m *manager) GetOrCreate(name string, config Config) CircuitBreaker {
	if cb, ok := m.lookup(name); ok {
		return breaker{cb: cb}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[name]; ok {
		return breaker{cb: e.cb}
	}

	cb := m.build(name, config)
	m.entries[name] = entry{cb: cb, config: config}

	m.logger.Log(context.Background(), log.LevelInfo, "circuit breaker created", log.String("breaker", name))

	return breaker{cb: cb}
}

func (m *manager) build(name string, config Config) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: config.tripped,
		OnStateChange: func(_ string, from, to gobreaker.State) {
			m.stateChanged(name, stateOf(from), stateOf(to))
		},
	})
}

func (m *manager) Execute(name string, fn func() (any, error)) (any, error) {
	cb, ok := m.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBreakerNotFound, name)
	}

	result, err := cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		m.logger.Log(context.Background(), log.LevelWarn, "circuit breaker rejected request",
			log.String("breaker", name), log.Stringer("state", stateOf(cb.State())))

		return nil, fmt.Errorf("%s unavailable: %w", name, err)
	}

	return result, err
}

func (m *manager) GetState(name string) State {
	cb, ok := m.lookup(name)
	if !ok {
		return StateUnknown
	}

	return stateOf(cb.State())
}

func (m *manager) GetCounts(name string) Counts {
	cb, ok := m.lookup(name)
	if !ok {
		return Counts{}
	}

	return Counts(cb.Counts())
}

func (m *manager) IsHealthy(name string) bool {
	return m.GetState(name) == StateClosed
}

func (m *manager) Reset(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[name]
	if !ok {
		return
	}

	e.cb = m.build(name, e.config)
	m.entries[name] = e

	m.logger.Log(context.Background(), log.LevelInfo, "circuit breaker reset", log.String("breaker", name))
}

func (m *manager) RegisterStateChangeListener(listener StateChangeListener) {
	if listener == nil {
		return
	}

	m.mu.Lock()
	m.listeners = append(m.listeners, listener)
	m.mu.Unlock()
}

func (m *manager) stateChanged(name string, from, to State) {
	level := log.LevelInfo
	if to == StateOpen {
		level = log.LevelError
	}

	m.logger.Log(context.Background(), level, "circuit breaker state changed",
		log.String("breaker", name), log.Stringer("from", from), log.Stringer("to", to))

	m.mu.RLock()
	listeners := append([]StateChangeListener(nil), m.listeners...)
	m.mu.RUnlock()

	for _, listener := range listeners {
		runtime.SafeGo(m.logger, "circuit_breaker_listener", runtime.KeepRunning, func() {
			listener.OnStateChange(name, from, to)
		})
	}
}
