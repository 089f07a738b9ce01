package battery

import (
	"context"
	"sort"
	"sync"
	"time"
)

type returnKey struct {
	batteryID     int64
	transactionID int64
}

// MemoryReturnStore is an in-memory return store for demo/development mode.
type MemoryReturnStore struct {
	returns map[returnKey]*Return
	mu      sync.RWMutex
}

// NewMemoryReturnStore creates a new in-memory return store.
func NewMemoryReturnStore() *MemoryReturnStore {
	return &MemoryReturnStore{
		returns: make(map[returnKey]*Return),
	}
}

func (m *MemoryReturnStore) Create(ctx context.Context, ret *Return) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := returnKey{ret.BatteryID, ret.TransactionID}
	if _, ok := m.returns[key]; ok {
		return ErrReturnExists
	}
	cp := *ret
	m.returns[key] = &cp
	return nil
}

func (m *MemoryReturnStore) Get(ctx context.Context, batteryID, transactionID int64) (*Return, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ret, ok := m.returns[returnKey{batteryID, transactionID}]
	if !ok {
		return nil, ErrReturnNotFound
	}
	cp := *ret
	return &cp, nil
}

func (m *MemoryReturnStore) List(ctx context.Context) ([]*Return, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Return, 0, len(m.returns))
	for _, ret := range m.returns {
		cp := *ret
		result = append(result, &cp)
	}
	// Most recent first
	sort.Slice(result, func(i, j int) bool {
		return result[i].ReturnedAt.After(result[j].ReturnedAt)
	})
	return result, nil
}

func (m *MemoryReturnStore) UpdateStatus(ctx context.Context, batteryID, transactionID int64, status ReturnStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ret, ok := m.returns[returnKey{batteryID, transactionID}]
	if !ok {
		return ErrReturnNotFound
	}
	ret.Status = status
	ret.UpdatedAt = time.Now()
	return nil
}
