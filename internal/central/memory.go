package central

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"
)

// MemoryIdempotencyStore is a process-local stand-in for Redis used in tests
// and when the stub runs without a Redis instance. TTLs are ignored.
type MemoryIdempotencyStore struct {
	mu     stdsync.Mutex
	values map[string]string
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{values: map[string]string{}}
}

func (m *MemoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	if !ok {
		return "", fmt.Errorf("key %q not found", key)
	}
	return value, nil
}

func (m *MemoryIdempotencyStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = fmt.Sprint(value)
	return nil
}

func (m *MemoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.values[key]; exists {
		return false, nil
	}
	m.values[key] = fmt.Sprint(value)
	return true, nil
}

func (m *MemoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("caldera:idempotency:%s:%s", scope, id)
}

func (m *MemoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}
