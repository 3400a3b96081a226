package reserve

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/shopspring/decimal"
)

// Memory is an in-process Source holding external balances, allowances and
// the reserve account. It is safe for concurrent use.
type Memory struct {
	mu         sync.Mutex
	decimals   int32
	balances   map[gated.Identity]decimal.Decimal
	allowances map[gated.Identity]decimal.Decimal
	reserve    decimal.Decimal
	allowance  bool
}

// MemoryOption configures a Memory source.
type MemoryOption func(*Memory)

// WithAllowances makes Pull consume an allowance set by Approve.
func WithAllowances() MemoryOption {
	return func(m *Memory) {
		m.allowance = true
	}
}

// NewMemory creates an empty in-memory source with the given precision.
func NewMemory(decimals int32, opts ...MemoryOption) *Memory {
	m := &Memory{
		decimals:   decimals,
		balances:   make(map[gated.Identity]decimal.Decimal),
		allowances: make(map[gated.Identity]decimal.Decimal),
		reserve:    decimal.Zero,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Credit adds amount to the external balance of id.
func (m *Memory) Credit(id gated.Identity, amount decimal.Decimal) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances[id] = m.balanceOf(id).Add(amount)

	return nil
}

// Approve sets the amount the reserve may pull from id.
func (m *Memory) Approve(id gated.Identity, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.allowances[id] = amount
}

// Pull moves amount from id into the reserve.
func (m *Memory) Pull(ctx context.Context, from gated.Identity, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !validAmount(amount) {
		return ErrInvalidAmount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.allowance {
		allowed, ok := m.allowances[from]
		if !ok || allowed.LessThan(amount) {
			return fmt.Errorf("%w: %s approved %s, requested %s", ErrInsufficientAllowance, from, allowed, amount)
		}
	}

	available := m.balanceOf(from)
	if available.LessThan(amount) {
		return fmt.Errorf("%w: %s holds %s, requested %s", ErrInsufficientBalance, from, available, amount)
	}

	if m.allowance {
		m.allowances[from] = m.allowances[from].Sub(amount)
	}

	m.balances[from] = available.Sub(amount)
	m.reserve = m.reserve.Add(amount)

	return nil
}

// Push moves amount from the reserve to id.
func (m *Memory) Push(ctx context.Context, to gated.Identity, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !validAmount(amount) {
		return ErrInvalidAmount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.reserve.LessThan(amount) {
		return fmt.Errorf("%w: reserve holds %s, requested %s", ErrInsufficientReserve, m.reserve, amount)
	}

	m.reserve = m.reserve.Sub(amount)
	m.balances[to] = m.balanceOf(to).Add(amount)

	return nil
}

// Decimals returns the source precision.
func (m *Memory) Decimals() int32 {
	return m.decimals
}

// ReserveBalance returns the value held in reserve.
func (m *Memory) ReserveBalance(context.Context) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.reserve, nil
}

// BalanceOf returns the external balance of id.
func (m *Memory) BalanceOf(id gated.Identity) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.balanceOf(id)
}

// Balances returns a snapshot of all external balances.
func (m *Memory) Balances() map[gated.Identity]decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()

	return maps.Clone(m.balances)
}

func (m *Memory) balanceOf(id gated.Identity) decimal.Decimal {
	if balance, ok := m.balances[id]; ok {
		return balance
	}

	return decimal.Zero
}
