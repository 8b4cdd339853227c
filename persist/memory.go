package persist

import (
	"context"
	"maps"
	"sync"
)

var _ KV = (*MemoryKV)(nil)

// MemoryKV is a process-local KV, used in tests and with CLINIC_STORE=memory.
type MemoryKV struct {
	values map[string]string
	lock   sync.RWMutex
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.values[key] = value
	return nil
}

func (m *MemoryKV) Remove(_ context.Context, key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.values, key)
	return nil
}

// Snapshot returns a copy of every stored value.
func (m *MemoryKV) Snapshot() map[string]string {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return maps.Clone(m.values)
}
