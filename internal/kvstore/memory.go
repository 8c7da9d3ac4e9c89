package kvstore

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-memory Store for tests and early development.
// TTLs are honored against an injectable clock so expiry is testable
// without sleeping.

type Memory struct {
	mu    sync.Mutex
	items map[string]memoryItem

	// Clock is injectable for deterministic tests. Defaults to time.Now.
	Clock func() time.Time
}

type memoryItem struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func NewMemory() *Memory {
	return &Memory{items: map[string]memoryItem{}, Clock: time.Now}
}

func (m *Memory) now() time.Time {
	if m.Clock != nil {
		return m.Clock()
	}
	return time.Now()
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok {
		return "", false, nil
	}
	if !it.expiresAt.IsZero() && !m.now().Before(it.expiresAt) {
		delete(m.items, key)
		return "", false, nil
	}
	return it.value, true, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := memoryItem{value: value}
	if ttl > 0 {
		it.expiresAt = m.now().Add(ttl)
	}
	m.items[key] = it
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Len reports the number of live entries. Test helper.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
