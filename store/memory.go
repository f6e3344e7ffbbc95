package store

import (
	"sort"
	"sync"
)

// MemoryStore keeps everything in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	v, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	return cloneBytes(v), nil
}

func (m *MemoryStore) Put(key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.values[key] = cloneBytes(value)
	return nil
}

func (m *MemoryStore) Delete(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrClosed
	}
	if _, ok := m.values[key]; !ok {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func (m *MemoryStore) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	names := make([]string, 0, len(m.values))
	for k := range m.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names, nil
}

// Close drops all values. Further calls return ErrClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.values = nil
	return nil
}
