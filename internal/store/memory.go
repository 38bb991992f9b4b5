package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store backed by a map. It is safe for concurrent
// use and is the store of choice in tests and single-node deployments.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get returns the value stored under key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

// Set stores value under key.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

// Has reports whether key exists.
func (m *Memory) Has(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}

// Update runs fn against a staged overlay under the store lock. Writes are
// applied to the underlying map only if fn succeeds, giving all-or-nothing
// semantics.
func (m *Memory) Update(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	overlay := &memoryTx{base: m.data, staged: make(map[string][]byte)}
	if err := fn(overlay); err != nil {
		return err
	}
	for k, v := range overlay.staged {
		m.data[k] = v
	}
	return nil
}

// memoryTx overlays staged writes on the base map. Only used while the store
// lock is held.
type memoryTx struct {
	base   map[string][]byte
	staged map[string][]byte
}

func (t *memoryTx) Get(_ context.Context, key string) ([]byte, bool, error) {
	if v, ok := t.staged[key]; ok {
		return v, true, nil
	}
	v, ok := t.base[key]
	if !ok {
		return nil, false, nil
	}
	return v, true, nil
}

func (t *memoryTx) Set(_ context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	t.staged[key] = cp
	return nil
}

func (t *memoryTx) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := t.Get(ctx, key)
	return ok, err
}
