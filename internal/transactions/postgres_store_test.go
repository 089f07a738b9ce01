//go:build integration

package transactions

import (
	"context"
	"testing"
	"time"

	"github.com/voltswap/voltswap/internal/testutil"
)

func setupTestStore(t *testing.T) (*PostgresStore, func()) {
	t.Helper()
	db, cleanup := testutil.PGTest(t)
	return NewPostgresStore(db), cleanup
}

func TestPostgres_CreateAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	created, err := store.Create(ctx, &Transaction{
		CustomerName: "Lan Pham",
		Amount:       29.99,
		Status:       StatusCompleted,
		OccurredAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.TransactionID == 0 {
		t.Fatal("Expected generated transaction ID")
	}

	got, err := store.Get(ctx, created.TransactionID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.CustomerName != "Lan Pham" || got.Amount != 29.99 {
		t.Errorf("Unexpected transaction: %+v", got)
	}
}

func TestPostgres_ListSince(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now()

	for _, daysAgo := range []int{1, 5, 20} {
		_, err := store.Create(ctx, &Transaction{
			CustomerName: "C",
			Amount:       10,
			Status:       StatusCompleted,
			OccurredAt:   now.AddDate(0, 0, -daysAgo),
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	recent, err := store.ListSince(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("ListSince failed: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("Expected 2 recent transactions, got %d", len(recent))
	}
}

func TestPostgres_UpdateStatus(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	created, err := store.Create(ctx, &Transaction{
		CustomerName: "C",
		Amount:       5,
		Status:       StatusPending,
		OccurredAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.UpdateStatus(ctx, created.TransactionID, StatusFailed); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	got, err := store.Get(ctx, created.TransactionID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != StatusFailed {
		t.Errorf("Expected FAILED, got %s", got.Status)
	}

	if err := store.UpdateStatus(ctx, 999999, StatusCompleted); err != ErrTransactionNotFound {
		t.Errorf("Expected ErrTransactionNotFound, got %v", err)
	}
}
