package clientstate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "c1", KeyPaymentID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "c1", KeyPaymentID, "pay-1"))

	got, err := store.Get(ctx, "c1", KeyPaymentID)
	require.NoError(t, err)
	assert.Equal(t, "pay-1", got)

	// Other clients don't see it
	_, err = store.Get(ctx, "c2", KeyPaymentID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Overwrite
	require.NoError(t, store.Set(ctx, "c1", KeyPaymentID, "pay-2"))
	got, err = store.Get(ctx, "c1", KeyPaymentID)
	require.NoError(t, err)
	assert.Equal(t, "pay-2", got)

	require.NoError(t, store.Delete(ctx, "c1", KeyPaymentID))
	_, err = store.Get(ctx, "c1", KeyPaymentID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing key is not an error
	require.NoError(t, store.Delete(ctx, "c1", "nope"))
}

func TestPendingPurchaseRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := GetPendingPurchase(ctx, store, "c1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SetPendingPurchase(ctx, store, "c1", &PendingPurchase{
		PackageID:   2,
		PackageName: "Standard Monthly",
		Price:       "29.99",
	}))

	p, err := GetPendingPurchase(ctx, store, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.PackageID)
	assert.Equal(t, "Standard Monthly", p.PackageName)
}

func TestGetSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := GetSession(ctx, store, "c1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "c1", KeyUserID, "7"))

	// Token absent: session still resolves with empty token
	sess, err := GetSession(ctx, store, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), sess.UserID)
	assert.Empty(t, sess.Token)

	require.NoError(t, store.Set(ctx, "c1", KeyToken, "tok-abc"))
	sess, err = GetSession(ctx, store, "c1")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", sess.Token)
}
