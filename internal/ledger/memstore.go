package ledger

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store, used when no database is configured
// and in tests.
type MemoryStore struct {
	mu       sync.Mutex
	payloads map[string][]byte
	batches  []ChangeBatch
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{payloads: make(map[string][]byte)}
}

// Put stores a raw payload directly.
func (m *MemoryStore) Put(setKey string, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads[setKey] = append([]byte(nil), payload...)
}

// LoadSet implements Store.
func (m *MemoryStore) LoadSet(ctx context.Context, setKey string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payloads[setKey]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), p...), nil
}

// SaveSet implements Store.
func (m *MemoryStore) SaveSet(ctx context.Context, setKey string, payload []byte, batch ChangeBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads[setKey] = append([]byte(nil), payload...)
	m.batches = append(m.batches, batch)
	return nil
}

// SaveSets implements BatchStore.
func (m *MemoryStore) SaveSets(ctx context.Context, writes []SetWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range writes {
		m.payloads[w.SetKey] = append([]byte(nil), w.Payload...)
		m.batches = append(m.batches, w.Batch)
	}
	return nil
}

// SetKeys implements Store.
func (m *MemoryStore) SetKeys(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.payloads))
	for k := range m.payloads {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Batches returns every batch saved so far.
func (m *MemoryStore) Batches() []ChangeBatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChangeBatch(nil), m.batches...)
}
