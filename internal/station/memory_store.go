package station

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory station store for demo/development mode.
type MemoryStore struct {
	stations  map[int64]*Station
	inventory Inventory
	transfers []*Transfer
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory station store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stations:  make(map[int64]*Station),
		inventory: make(Inventory),
	}
}

func (m *MemoryStore) CreateStation(ctx context.Context, st *Station, slots Slots) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stations[st.StationID]; ok {
		return ErrStationExists
	}
	cp := *st
	m.stations[st.StationID] = &cp
	m.inventory[st.StationID] = slots
	return nil
}

func (m *MemoryStore) GetStation(ctx context.Context, id int64) (*Station, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.stations[id]
	if !ok {
		return nil, ErrStationNotFound
	}
	cp := *st
	return &cp, nil
}

func (m *MemoryStore) ListStations(ctx context.Context) ([]*Station, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Station, 0, len(m.stations))
	for _, st := range m.stations {
		cp := *st
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StationID < result[j].StationID
	})
	return result, nil
}

func (m *MemoryStore) GetInventory(ctx context.Context) (Inventory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inventory.Clone(), nil
}

func (m *MemoryStore) SetInventory(ctx context.Context, inv Inventory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inventory = inv.Clone()
	return nil
}

func (m *MemoryStore) RecordTransfer(ctx context.Context, t *Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *t
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	m.transfers = append(m.transfers, &cp)
	return nil
}

func (m *MemoryStore) ListTransfers(ctx context.Context, limit int) ([]*Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Most recent first
	result := make([]*Transfer, 0, limit)
	for i := len(m.transfers) - 1; i >= 0 && len(result) < limit; i-- {
		cp := *m.transfers[i]
		result = append(result, &cp)
	}
	return result, nil
}
