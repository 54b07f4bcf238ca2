package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-process Store. Values do not survive a restart, so it
// suits long-running services and tests.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	closed  bool

	// now returns the current time. Tests override it to move the clock.
	now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", false, ErrClosed
	}

	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}

	if expired(e.expiresAt, m.now()) {
		delete(m.entries, key)
		return "", false, nil
	}

	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.entries[key] = memoryEntry{value: value, expiresAt: expiresAt(m.now(), ttl)}

	return nil
}

// SetMany stores all entries under a single lock so readers never observe
// half of a token pair.
func (m *Memory) SetMany(_ context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	now := m.now()
	for _, e := range entries {
		m.entries[e.Key] = memoryEntry{value: e.Value, expiresAt: expiresAt(now, e.TTL)}
	}

	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	delete(m.entries, key)

	return nil
}

func (m *Memory) EvictExpired(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	now := m.now()
	for k, e := range m.entries {
		if expired(e.expiresAt, now) {
			delete(m.entries, k)
		}
	}

	return nil
}

// Len returns the number of stored entries, including expired ones that
// have not been evicted yet.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.entries = nil

	return nil
}
