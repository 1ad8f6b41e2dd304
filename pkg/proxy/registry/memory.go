package registry

import (
	"context"
	"sync"
)

// MemoryStore is an in-process, mutex-guarded Store, the generalization
// of the teacher's in-memory Storage/InMemoryStateMachine pattern
// (pkg/mcast/types/storage.go, state_machine.go) to hash-map semantics.
// Used by tests and single-process demos in place of a real Redis
// instance. Field insertion order is preserved for HKeys, so tie-breaks
// documented in spec.md §4.1 step 4 are deterministic: first-registered
// wins.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]*table
}

type table struct {
	order  []string
	values map[string][]byte
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*table)}
}

func (m *MemoryStore) tableFor(key string) *table {
	t, ok := m.tables[key]
	if !ok {
		t = &table{values: make(map[string][]byte)}
		m.tables[key] = t
	}
	return t
}

func (m *MemoryStore) HSet(_ context.Context, key, field string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tableFor(key)
	if _, exists := t.values[field]; !exists {
		t.order = append(t.order, field)
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	t.values[field] = cp
	return nil
}

func (m *MemoryStore) HDel(_ context.Context, key, field string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[key]
	if !ok {
		return nil
	}
	if _, exists := t.values[field]; !exists {
		return nil
	}
	delete(t.values, field)
	for i, f := range t.order {
		if f == field {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) HGetAll(_ context.Context, key string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte)
	t, ok := m.tables[key]
	if !ok {
		return out, nil
	}
	for _, f := range t.order {
		cp := make([]byte, len(t.values[f]))
		copy(cp, t.values[f])
		out[f] = cp
	}
	return out, nil
}

func (m *MemoryStore) HMGet(_ context.Context, key string, fields []string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[key]
	out := make([][]byte, len(fields))
	if !ok {
		return out, nil
	}
	for i, f := range fields {
		if v, exists := t.values[f]; exists {
			cp := make([]byte, len(v))
			copy(cp, v)
			out[i] = cp
		}
	}
	return out, nil
}

func (m *MemoryStore) HLen(_ context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[key]
	if !ok {
		return 0, nil
	}
	return len(t.order), nil
}

func (m *MemoryStore) HKeys(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[key]
	if !ok {
		return nil, nil
	}
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
