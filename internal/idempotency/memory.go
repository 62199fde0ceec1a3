package idempotency

import (
	"context"
	"sync"
	"time"
)

// sweepEvery bounds how often Reserve walks the map to drop expired keys.
const sweepEvery = time.Minute

type memEntry struct {
	rec       Record
	expiresAt time.Time
}

type Memory struct {
	mu        sync.Mutex
	entries   map[string]memEntry
	now       func() time.Time
	nextSweep time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: map[string]memEntry{}, now: time.Now}
}

func (m *Memory) Reserve(_ context.Context, key, requestHash string, ttl time.Duration) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)
	if e, ok := m.entries[key]; ok && now.Before(e.expiresAt) {
		rec := e.rec
		return &rec, nil
	}
	m.entries[key] = memEntry{
		rec:       Record{RequestHash: requestHash, Status: StatusPending},
		expiresAt: now.Add(ttl),
	}
	return nil, nil
}

func (m *Memory) Complete(_ context.Context, key string, rec Record, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Status = StatusCompleted
	m.entries[key] = memEntry{rec: rec, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *Memory) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// Len reports how many keys are held, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// sweep must be called with mu held.
func (m *Memory) sweep(now time.Time) {
	if now.Before(m.nextSweep) {
		return
	}
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.nextSweep = now.Add(sweepEvery)
}
