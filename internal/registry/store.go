package registry

import (
	"context"
	"sync"
	"time"
)

// TypeInfo is the cached shape of one registry type: the humanized display
// name, the description, and the declared property IRIs in registry order.
type TypeInfo struct {
	TypeID      string    `json:"type_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Properties  []string  `json:"properties,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// SchemaStore is the durable cache keyed by type id. Concurrent ingestions
// share one store; races are harmless because both writers store the same
// fetched value.
type SchemaStore interface {
	Get(ctx context.Context, typeID string) (TypeInfo, bool, error)
	Put(ctx context.Context, info TypeInfo) error
}

// MemoryStore keeps schemas in process memory. Tests and cache-less setups
// use it; production wires the Postgres-backed store.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]TypeInfo
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]TypeInfo)}
}

func (m *MemoryStore) Get(_ context.Context, typeID string) (TypeInfo, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.items[typeID]
	return info, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, info TypeInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[info.TypeID] = info
	return nil
}
