package transactions

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltswap/voltswap/internal/receipts"
)

func TestService_Record(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(), nil)

	tx, err := svc.Record(ctx, &Transaction{
		CustomerName: "Linh Tran",
		Amount:       4.99,
		StationID:    1,
	})
	require.NoError(t, err)
	assert.NotZero(t, tx.TransactionID)
	assert.Equal(t, StatusPending, tx.Status)
	assert.False(t, tx.OccurredAt.IsZero())

	// Missing customer name rejected
	_, err = svc.Record(ctx, &Transaction{Amount: 4.99})
	assert.Error(t, err)

	// Negative amount rejected
	_, err = svc.Record(ctx, &Transaction{CustomerName: "X", Amount: -1})
	assert.Error(t, err)

	// Unknown status rejected
	_, err = svc.Record(ctx, &Transaction{CustomerName: "X", Status: Status("REFUNDED")})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(), nil)

	tx, err := svc.Record(ctx, &Transaction{CustomerName: "Linh Tran", Amount: 4.99})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, tx.TransactionID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)

	_, err = svc.UpdateStatus(ctx, tx.TransactionID, Status("REFUNDED"))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateStatus(ctx, 9999, StatusFailed)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestMemoryStore_ListSince(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	now := time.Now()
	for i, age := range []time.Duration{0, 24 * time.Hour, 10 * 24 * time.Hour} {
		_, err := store.Create(ctx, &Transaction{
			CustomerName: "C",
			Amount:       float64(i + 1),
			OccurredAt:   now.Add(-age),
			Status:       StatusCompleted,
		})
		require.NoError(t, err)
	}

	recent, err := store.ListSince(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	// Oldest first
	require.Len(t, recent, 2)
	assert.True(t, recent[0].OccurredAt.Before(recent[1].OccurredAt))
}

func TestService_UpdateStatus_IssuesReceiptOnSettle(t *testing.T) {
	ctx := context.Background()
	receiptStore := receipts.NewMemoryStore()
	receiptsSvc := receipts.NewService(receiptStore, receipts.NewSigner("test-secret"))
	svc := NewService(NewMemoryStore(), nil).WithReceipts(receiptsSvc)

	tx, err := svc.Record(ctx, &Transaction{CustomerName: "Linh Tran", Amount: 4.99})
	require.NoError(t, err)

	// Moving to FAILED issues nothing
	_, err = svc.UpdateStatus(ctx, tx.TransactionID, StatusFailed)
	require.NoError(t, err)
	issued, err := receiptsSvc.ListByReference(ctx, strconv.FormatInt(tx.TransactionID, 10))
	require.NoError(t, err)
	assert.Empty(t, issued)

	// Settling to COMPLETED issues a signed receipt
	_, err = svc.UpdateStatus(ctx, tx.TransactionID, StatusCompleted)
	require.NoError(t, err)

	issued, err = receiptsSvc.ListByReference(ctx, strconv.FormatInt(tx.TransactionID, 10))
	require.NoError(t, err)
	require.Len(t, issued, 1)
	assert.Equal(t, receipts.SourceSwap, issued[0].Source)
	assert.Equal(t, "4.99", issued[0].Amount)
	assert.NotEmpty(t, issued[0].Signature)
}
