package idempotency

import (
	"context"
	"sync"
	"time"
)

// sweepInterval is the minimum time between two full scans for expired entries.
const sweepInterval = time.Minute

type memoryEntry struct {
	record    *Record
	expiresAt time.Time
}

// Memory is an in-process Store. Expired entries are dropped when read and by
// a scan that writes trigger at most once per sweepInterval.
type Memory struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	now       func() time.Time
	lastSweep time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Reserve implements Store.
func (m *Memory) Reserve(ctx context.Context, key string, ttl time.Duration) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := normalize(key)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.maybeSweep()

	if entry, ok := m.live(key); ok {
		if entry.record == nil {
			return nil, ErrInFlight
		}

		rec := *entry.record

		return &rec, nil
	}

	m.entries[key] = memoryEntry{expiresAt: m.now().Add(ttlOrDefault(ttl))}

	return nil, nil
}

// Complete implements Store.
func (m *Memory) Complete(ctx context.Context, key string, record Record, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := normalize(key)
	if err != nil {
		return err
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = m.now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.maybeSweep()

	m.entries[key] = memoryEntry{record: &record, expiresAt: m.now().Add(ttlOrDefault(ttl))}

	return nil
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, key string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := normalize(key)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.live(key)
	if !ok || entry.record == nil {
		return nil, ErrNotFound
	}

	rec := *entry.record

	return &rec, nil
}

// Release drops a pending reservation. Completed records are kept.
func (m *Memory) Release(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := normalize(key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.entries[key]; ok && entry.record == nil {
		delete(m.entries, key)
	}

	return nil
}

// Sweep drops every expired entry and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sweep()
}

// Len returns the number of entries held, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}

// maybeSweep must be called with m.mu held.
func (m *Memory) maybeSweep() {
	if m.now().Sub(m.lastSweep) < sweepInterval {
		return
	}

	m.sweep()
}

// sweep must be called with m.mu held.
func (m *Memory) sweep() int {
	now := m.now()
	m.lastSweep = now

	removed := 0

	for key, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, key)
			removed++
		}
	}

	return removed
}

// live must be called with m.mu held.
func (m *Memory) live(key string) (memoryEntry, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}

	if !m.now().Before(entry.expiresAt) {
		delete(m.entries, key)

		return memoryEntry{}, false
	}

	return entry, true
}
