package repository

import (
	"context"
	"sync"
)

// MemoryBackend keeps the slot in process memory.
type MemoryBackend struct {
	mu    sync.RWMutex
	value []byte
	set   bool
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

var _ Backend = (*MemoryBackend)(nil)

func (m *MemoryBackend) Get(ctx context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return nil, ErrNotFound
	}
	out := make([]byte, len(m.value))
	copy(out, m.value)
	return out, nil
}

func (m *MemoryBackend) Set(ctx context.Context, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = make([]byte, len(value))
	copy(m.value, value)
	m.set = true
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
