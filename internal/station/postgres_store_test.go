//go:build integration

package station

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

func seedStation(t *testing.T, store *PostgresStore, id int64, slots Slots) {
	t.Helper()
	now := time.Now()
	err := store.CreateStation(context.Background(), &Station{
		StationID:   id,
		StationName: "Station",
		Address:     "1 Main St",
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, slots)
	if err != nil {
		t.Fatalf("CreateStation failed: %v", err)
	}
}

func TestPostgres_CreateAndGetStation(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	seedStation(t, store, 1, Slots{Total: 20, Available: 12})

	st, err := store.GetStation(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetStation failed: %v", err)
	}
	if st.StationID != 1 || st.Status != StatusActive {
		t.Errorf("Unexpected station: %+v", st)
	}
}

func TestPostgres_DuplicateStation(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	seedStation(t, store, 2, Slots{Total: 10, Available: 5})

	now := time.Now()
	err := store.CreateStation(context.Background(), &Station{
		StationID: 2, StationName: "Dup", Address: "x", Status: StatusActive,
		CreatedAt: now, UpdatedAt: now,
	}, Slots{Total: 10, Available: 5})
	if err != ErrStationExists {
		t.Errorf("Expected ErrStationExists, got %v", err)
	}
}

func TestPostgres_InventoryRoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedStation(t, store, 3, Slots{Total: 20, Available: 15})
	seedStation(t, store, 4, Slots{Total: 10, Available: 2})

	inv, err := store.GetInventory(ctx)
	if err != nil {
		t.Fatalf("GetInventory failed: %v", err)
	}
	if inv[3].Available != 15 || inv[4].Available != 2 {
		t.Errorf("Unexpected inventory: %+v", inv)
	}

	inv[3] = Slots{Total: 20, Available: 10}
	inv[4] = Slots{Total: 10, Available: 7}
	if err := store.SetInventory(ctx, inv); err != nil {
		t.Fatalf("SetInventory failed: %v", err)
	}

	inv, err = store.GetInventory(ctx)
	if err != nil {
		t.Fatalf("GetInventory failed: %v", err)
	}
	if inv[3].Available != 10 || inv[4].Available != 7 {
		t.Errorf("Inventory not persisted: %+v", inv)
	}
}

func TestPostgres_CheckRejectsNegativeAvailable(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedStation(t, store, 5, Slots{Total: 5, Available: 5})

	// The CHECK constraint backstops the in-process validation.
	err := store.SetInventory(ctx, Inventory{5: {Total: 5, Available: -1}})
	if err == nil {
		t.Fatal("Expected CHECK violation, got nil")
	}

	inv, _ := store.GetInventory(ctx)
	if inv[5].Available != 5 {
		t.Errorf("Inventory changed after failed update: %+v", inv[5])
	}
}

func TestPostgres_RecordAndListTransfers(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedStation(t, store, 6, Slots{Total: 10, Available: 8})
	seedStation(t, store, 7, Slots{Total: 10, Available: 3})

	err := store.RecordTransfer(ctx, &Transfer{
		TransferID:    "xfer_test1",
		FromStationID: 6,
		ToStationID:   7,
		Count:         2,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		t.Fatalf("RecordTransfer failed: %v", err)
	}

	transfers, err := store.ListTransfers(ctx, 10)
	if err != nil {
		t.Fatalf("ListTransfers failed: %v", err)
	}
	if len(transfers) != 1 || transfers[0].TransferID != "xfer_test1" {
		t.Errorf("Unexpected transfers: %+v", transfers)
	}
}
