package storage

import "sync"

// MemoryKV is an in-process KV for tests.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string][]byte

	// FailGet and FailSet, when non-nil, are returned by Get and Set.
	FailGet error
	FailSet error
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string][]byte)}
}

func (m *MemoryKV) Get(keys ...string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailGet != nil {
		return nil, m.FailGet
	}
	result := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			result[k] = append([]byte(nil), v...)
		}
	}
	return result, nil
}

func (m *MemoryKV) Set(values map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSet != nil {
		return m.FailSet
	}
	for k, v := range values {
		m.values[k] = append([]byte(nil), v...)
	}
	return nil
}
