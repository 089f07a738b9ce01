package transactions

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory transaction store for demo/development mode.
type MemoryStore struct {
	transactions map[int64]*Transaction
	nextID       int64
	mu           sync.RWMutex
}

// NewMemoryStore creates a new in-memory transaction store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions: make(map[int64]*Transaction),
		nextID:       1,
	}
}

func (m *MemoryStore) Create(ctx context.Context, tx *Transaction) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *tx
	if cp.TransactionID == 0 {
		cp.TransactionID = m.nextID
		m.nextID++
	} else if cp.TransactionID >= m.nextID {
		m.nextID = cp.TransactionID + 1
	}

	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	if cp.OccurredAt.IsZero() {
		cp.OccurredAt = now
	}

	m.transactions[cp.TransactionID] = &cp
	out := cp
	return &out, nil
}

func (m *MemoryStore) Get(ctx context.Context, id int64) (*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.transactions[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context, limit int) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Transaction, 0, len(m.transactions))
	for _, tx := range m.transactions {
		cp := *tx
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].OccurredAt.After(result[j].OccurredAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MemoryStore) ListSince(ctx context.Context, since time.Time) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Transaction
	for _, tx := range m.transactions {
		if !tx.OccurredAt.Before(since) {
			cp := *tx
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].OccurredAt.Before(result[j].OccurredAt)
	})
	return result, nil
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, id int64, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.transactions[id]
	if !ok {
		return ErrTransactionNotFound
	}
	tx.Status = status
	tx.UpdatedAt = time.Now()
	return nil
}
