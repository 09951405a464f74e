package kv

import (
	"context"
	"sync"
	"time"

	"shopmetrics/internal/ports"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryKV is an in-process ports.KV used in tests and local
// development. Safe for concurrent use; expiry is evaluated lazily
// against the injected clock.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryKV creates an in-memory KV on the wall clock.
func NewMemoryKV() *MemoryKV {
	return NewMemoryKVWithClock(time.Now)
}

// NewMemoryKVWithClock creates an in-memory KV with an injected clock,
// letting tests simulate TTL expiry without sleeping.
func NewMemoryKVWithClock(now func() time.Time) *MemoryKV {
	return &MemoryKV{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

func (m *MemoryKV) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && m.now().After(e.expiresAt)
}

func (m *MemoryKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *MemoryKV) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[key]; ok && !m.expired(existing) {
		return false, nil
	}
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = entry
	return true, nil
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok || m.expired(entry) {
		return nil, ports.ErrNotFound
	}
	return append([]byte(nil), entry.value...), nil
}

func (m *MemoryKV) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

// Len reports the number of live entries, used in tests.
func (m *MemoryKV) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, entry := range m.entries {
		if !m.expired(entry) {
			n++
		}
	}
	return n
}
