package docstore

import (
	"context"
	"sort"
)

// MemoryStore holds documents in a map, mainly for tests.
type MemoryStore struct {
	docs map[string][]byte
}

// NewMemoryStore constructs a MemoryStore over the given documents. The map
// is used directly, not copied.
func NewMemoryStore(docs map[string][]byte) *MemoryStore {
	if docs == nil {
		docs = map[string][]byte{}
	}
	return &MemoryStore{docs: docs}
}

// List returns all keys, sorted ascending.
func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(m.docs))
	for k := range m.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Fetch returns the document at key.
func (m *MemoryStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	data, ok := m.docs[key]
	if !ok {
		return nil, &NotFoundError{Key: key}
	}
	return data, nil
}
