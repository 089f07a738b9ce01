package checkout

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltswap/voltswap/internal/backend"
	"github.com/voltswap/voltswap/internal/clientstate"
	"github.com/voltswap/voltswap/internal/receipts"
)

// mockBackend implements PaymentExecutor and PackageActivator with
// scripted responses.
type mockBackend struct {
	executeResult *backend.ExecuteResult
	executeErr    error
	executeCalls  int

	activateResult *backend.ActivationResult
	activateErr    error
	activateCalls  int

	lastActivation backend.CreateUserPackageRequest
}

func (m *mockBackend) ExecutePayment(ctx context.Context, paymentID, payerID, token string) (*backend.ExecuteResult, error) {
	m.executeCalls++
	return m.executeResult, m.executeErr
}

func (m *mockBackend) CreateUserPackage(ctx context.Context, token string, req backend.CreateUserPackageRequest) (*backend.ActivationResult, error) {
	m.activateCalls++
	m.lastActivation = req
	return m.activateResult, m.activateErr
}

func seedClient(t *testing.T, store clientstate.Store, clientID string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, clientstate.SetPendingPurchase(ctx, store, clientID, &clientstate.PendingPurchase{
		PackageID:   1,
		PackageName: "Basic Monthly",
		Price:       "29.99",
	}))
	require.NoError(t, store.Set(ctx, clientID, clientstate.KeyUserID, "7"))
	require.NoError(t, store.Set(ctx, clientID, clientstate.KeyToken, "tok"))
	require.NoError(t, store.Set(ctx, clientID, clientstate.KeyPaymentID, "pay-1"))
}

func TestParseCallback(t *testing.T) {
	params, err := ParseCallback(url.Values{"paymentId": {"pay-1"}, "PayerID": {"payer-9"}})
	require.NoError(t, err)
	assert.Equal(t, "pay-1", params.PaymentID)
	assert.Equal(t, "payer-9", params.PayerID)

	// token is accepted as the payment id fallback
	params, err = ParseCallback(url.Values{"token": {"tok-5"}})
	require.NoError(t, err)
	assert.Equal(t, "tok-5", params.PaymentID)
	assert.Empty(t, params.PayerID)

	_, err = ParseCallback(url.Values{})
	assert.ErrorIs(t, err, ErrMissingPaymentID)
}

func TestRun_SuccessPath(t *testing.T) {
	ctx := context.Background()
	store := clientstate.NewMemoryStore()
	seedClient(t, store, "c1")

	mock := &mockBackend{
		executeResult:  &backend.ExecuteResult{Status: "SUCCESS", TransactionID: "TXN-9"},
		activateResult: &backend.ActivationResult{Status: "success", PackageName: "Basic Monthly"},
	}
	r := NewReconciler(mock, mock, store)

	result := r.Run(ctx, "c1", CallbackParams{PaymentID: "pay-1", PayerID: "payer-9"})

	require.True(t, result.Succeeded())
	assert.Equal(t, "TXN-9", result.TransactionID)
	assert.False(t, result.Synthetic)
	assert.Equal(t, "Basic Monthly", result.PackageName)
	assert.Equal(t, 1, mock.executeCalls)
	assert.Equal(t, 1, mock.activateCalls)
	assert.Equal(t, int64(7), mock.lastActivation.UserID)
	assert.Equal(t, int64(1), mock.lastActivation.PackageID)

	// Markers cleared on success
	_, err := store.Get(ctx, "c1", clientstate.KeyPendingPurchase)
	assert.ErrorIs(t, err, clientstate.ErrNotFound)
	_, err = store.Get(ctx, "c1", clientstate.KeyPaymentID)
	assert.ErrorIs(t, err, clientstate.ErrNotFound)

	// Session survives
	_, err = store.Get(ctx, "c1", clientstate.KeyUserID)
	assert.NoError(t, err)
}

func TestRun_MissingPaymentID(t *testing.T) {
	store := clientstate.NewMemoryStore()
	mock := &mockBackend{}
	r := NewReconciler(mock, mock, store)

	result := r.Run(context.Background(), "c1", CallbackParams{})

	assert.Equal(t, StateError, result.State)
	assert.Equal(t, KindMissingPaymentID, result.ErrorKind)
	assert.Equal(t, RetryClassRetry, result.RetryClass)
	// No network calls at all
	assert.Zero(t, mock.executeCalls)
	assert.Zero(t, mock.activateCalls)
}

func TestRun_ExecutionRejected(t *testing.T) {
	ctx := context.Background()
	store := clientstate.NewMemoryStore()
	seedClient(t, store, "c1")

	mock := &mockBackend{
		executeErr: &backend.Error{Op: "execute_payment", StatusCode: 402, Message: "payment declined"},
	}
	r := NewReconciler(mock, mock, store)

	result := r.Run(ctx, "c1", CallbackParams{PaymentID: "pay-1", PayerID: "payer-9"})

	assert.Equal(t, KindExecutionFailed, result.ErrorKind)
	assert.Equal(t, "payment declined", result.ErrorMessage)
	assert.Equal(t, RetryClassRetry, result.RetryClass)
	assert.Zero(t, mock.activateCalls)

	// Pending purchase untouched so the customer can retry
	_, err := store.Get(ctx, "c1", clientstate.KeyPendingPurchase)
	assert.NoError(t, err)
}

func TestRun_Success_IssuesReceipt(t *testing.T) {
	ctx := context.Background()
	store := clientstate.NewMemoryStore()
	seedClient(t, store, "c1")

	receiptsSvc := receipts.NewService(receipts.NewMemoryStore(), receipts.NewSigner("test-secret"))
	mock := &mockBackend{
		executeResult:  &backend.ExecuteResult{Status: "success", TransactionID: "TXN-9"},
		activateResult: &backend.ActivationResult{Status: "success", PackageName: "Basic Monthly"},
	}
	r := NewReconciler(mock, mock, store).WithReceipts(receiptsSvc)

	result := r.Run(ctx, "c1", CallbackParams{PaymentID: "pay-1", PayerID: "payer-9"})
	require.True(t, result.Succeeded())

	issued, err := receiptsSvc.ListByReference(ctx, "TXN-9")
	require.NoError(t, err)
	require.Len(t, issued, 1)
	assert.Equal(t, receipts.SourceCheckout, issued[0].Source)
	assert.Equal(t, "c1", issued[0].ClientID)
	assert.Equal(t, "Basic Monthly", issued[0].Description)
	assert.Equal(t, "29.99", issued[0].Amount)
	assert.NotEmpty(t, issued[0].Signature)

	// The issued receipt verifies against its own signature
	verification, err := receiptsSvc.Verify(ctx, issued[0].ID)
	require.NoError(t, err)
	assert.True(t, verification.Valid)
}

func TestRun_FailedRun_NoReceipt(t *testing.T) {
	ctx := context.Background()
	store := clientstate.NewMemoryStore()
	seedClient(t, store, "c1")

	receiptsSvc := receipts.NewService(receipts.NewMemoryStore(), receipts.NewSigner("test-secret"))
	mock := &mockBackend{
		executeResult:  &backend.ExecuteResult{Status: "success", TransactionID: "TXN-9"},
		activateResult: &backend.ActivationResult{Status: "failed"},
	}
	r := NewReconciler(mock, mock, store).WithReceipts(receiptsSvc)

	result := r.Run(ctx, "c1", CallbackParams{PaymentID: "pay-1", PayerID: "payer-9"})
	assert.Equal(t, KindActivationFailed, result.ErrorKind)

	issued, err := receiptsSvc.ListByReference(ctx, "TXN-9")
	require.NoError(t, err)
	assert.Empty(t, issued)
}

func TestRun_ExecutionStatusNotSuccess(t *testing.T) {
	store := clientstate.NewMemoryStore()
	seedClient(t, store, "c1")

	mock := &mockBackend{
		executeResult: &backend.ExecuteResult{Status: "PENDING", Message: "payment not finalized"},
	}
	r := NewReconciler(mock, mock, store)

	result := r.Run(context.Background(), "c1", CallbackParams{PaymentID: "pay-1", PayerID: "payer-9"})

	assert.Equal(t, KindExecutionFailed, result.ErrorKind)
	assert.Equal(t, "payment not finalized", result.ErrorMessage)
	assert.Zero(t, mock.activateCalls)
}

func TestRun_ExecutionStatusAbsent(t *testing.T) {
	store := clientstate.NewMemoryStore()
	seedClient(t, store, "c1")

	// A response with no status field never passes for success
	mock := &mockBackend{
		executeResult: &backend.ExecuteResult{TransactionID: "TXN-9"},
	}
	r := NewReconciler(mock, mock, store)

	result := r.Run(context.Background(), "c1", CallbackParams{PaymentID: "pay-1", PayerID: "payer-9"})

	assert.Equal(t, KindExecutionFailed, result.ErrorKind)
	assert.Equal(t, "Payment status is not success", result.ErrorMessage)
	assert.Zero(t, mock.activateCalls)
}

func TestRun_ActivationFailed(t *testing.T) {
	ctx := context.Background()
	store := clientstate.NewMemoryStore()
	seedClient(t, store, "c1")

	mock := &mockBackend{
		executeResult:  &backend.ExecuteResult{Status: "success", TransactionID: "TXN-9"},
		activateResult: &backend.ActivationResult{Status: "failed"},
	}
	r := NewReconciler(mock, mock, store)

	result := r.Run(ctx, "c1", CallbackParams{PaymentID: "pay-1", PayerID: "payer-9"})

	assert.Equal(t, KindActivationFailed, result.ErrorKind)
	assert.Equal(t, RetryClassSupport, result.RetryClass)
	assert.Contains(t, result.ErrorMessage, "contact support")

	// Pending purchase NOT cleared: money moved, support needs the record
	_, err := store.Get(ctx, "c1", clientstate.KeyPendingPurchase)
	assert.NoError(t, err)
	_, err = store.Get(ctx, "c1", clientstate.KeyPaymentID)
	assert.NoError(t, err)
}

func TestRun_PayerIDAbsent_SkipsExecute(t *testing.T) {
	store := clientstate.NewMemoryStore()
	seedClient(t, store, "c1")

	mock := &mockBackend{
		activateResult: &backend.ActivationResult{Status: "success", PackageName: "Basic Monthly"},
	}
	fixed := time.UnixMilli(1712345678901)
	r := NewReconciler(mock, mock, store).WithClock(func() time.Time { return fixed })

	result := r.Run(context.Background(), "c1", CallbackParams{PaymentID: "pay-1"})

	require.True(t, result.Succeeded())
	assert.Zero(t, mock.executeCalls)
	assert.Equal(t, 1, mock.activateCalls)
	assert.True(t, result.Synthetic)
	assert.Equal(t, "TXN-45678901", result.TransactionID)
}

func TestRun_MissingPurchase(t *testing.T) {
	ctx := context.Background()
	store := clientstate.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "c1", clientstate.KeyUserID, "7"))

	mock := &mockBackend{
		executeResult: &backend.ExecuteResult{Status: "success"},
	}
	r := NewReconciler(mock, mock, store)

	result := r.Run(ctx, "c1", CallbackParams{PaymentID: "pay-1", PayerID: "payer-9"})

	assert.Equal(t, KindMissingPurchase, result.ErrorKind)
	assert.Zero(t, mock.activateCalls)
}

func TestRun_NotAuthenticated(t *testing.T) {
	ctx := context.Background()
	store := clientstate.NewMemoryStore()
	require.NoError(t, clientstate.SetPendingPurchase(ctx, store, "c1", &clientstate.PendingPurchase{PackageID: 1}))

	mock := &mockBackend{}
	r := NewReconciler(mock, mock, store)

	result := r.Run(ctx, "c1", CallbackParams{PaymentID: "pay-1"})

	assert.Equal(t, KindNotAuthenticated, result.ErrorKind)
	assert.Zero(t, mock.activateCalls)
}

func TestFallbackTransactionID(t *testing.T) {
	id := fallbackTransactionID(time.UnixMilli(1712345678901))
	assert.Equal(t, "TXN-45678901", id)
	assert.Len(t, id, 12)
}
