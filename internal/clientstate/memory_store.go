package clientstate

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory client-state store for demo/development mode.
type MemoryStore struct {
	entries map[string]map[string]*Entry // clientID → key → entry
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory client-state store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]map[string]*Entry),
	}
}

func (m *MemoryStore) Get(ctx context.Context, clientID, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys, ok := m.entries[clientID]
	if !ok {
		return "", ErrNotFound
	}
	entry, ok := keys[key]
	if !ok {
		return "", ErrNotFound
	}
	return entry.Value, nil
}

func (m *MemoryStore) Set(ctx context.Context, clientID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys, ok := m.entries[clientID]
	if !ok {
		keys = make(map[string]*Entry)
		m.entries[clientID] = keys
	}
	keys[key] = &Entry{
		ClientID:  clientID,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, clientID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if keys, ok := m.entries[clientID]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(m.entries, clientID)
		}
	}
	return nil
}
