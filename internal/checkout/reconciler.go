package checkout

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/voltswap/voltswap/internal/backend"
	"github.com/voltswap/voltswap/internal/clientstate"
	"github.com/voltswap/voltswap/internal/logging"
	"github.com/voltswap/voltswap/internal/metrics"
	"github.com/voltswap/voltswap/internal/receipts"
	"github.com/voltswap/voltswap/internal/traces"
)

// PaymentExecutor finalizes an approved gateway payment with the backend.
type PaymentExecutor interface {
	ExecutePayment(ctx context.Context, paymentID, payerID, token string) (*backend.ExecuteResult, error)
}

// PackageActivator attaches a purchased package to a user.
type PackageActivator interface {
	CreateUserPackage(ctx context.Context, token string, req backend.CreateUserPackageRequest) (*backend.ActivationResult, error)
}

// Publisher pushes realtime events to connected consoles.
type Publisher interface {
	Publish(eventType string, payload any)
}

// Reconciler drives the post-redirect payment completion flow.
type Reconciler struct {
	executor  PaymentExecutor
	activator PackageActivator
	state     clientstate.Store
	events    Publisher
	receipts  *receipts.Service
	logger    *slog.Logger
	now       func() time.Time
}

// NewReconciler creates a reconciler.
func NewReconciler(executor PaymentExecutor, activator PackageActivator, state clientstate.Store) *Reconciler {
	return &Reconciler{
		executor:  executor,
		activator: activator,
		state:     state,
		logger:    slog.Default(),
		now:       time.Now,
	}
}

// WithLogger sets a structured logger.
func (r *Reconciler) WithLogger(l *slog.Logger) *Reconciler {
	r.logger = l
	return r
}

// WithEvents sets a realtime event publisher.
func (r *Reconciler) WithEvents(events Publisher) *Reconciler {
	r.events = events
	return r
}

// WithReceipts sets the receipt service. Successful runs issue a signed
// receipt; a nil service (or disabled signing) skips issuance.
func (r *Reconciler) WithReceipts(svc *receipts.Service) *Reconciler {
	r.receipts = svc
	return r
}

// WithClock overrides the clock, for tests.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Run executes the reconciliation flow for one callback and returns the
// terminal result. Domain failures are reported in the result, never as an
// error: the customer already paid (or tried to), so the flow must always
// land on a describable terminal state.
func (r *Reconciler) Run(ctx context.Context, clientID string, params CallbackParams) (result *Result) {
	ctx, span := traces.StartSpan(ctx, "checkout.Run",
		traces.ClientID(clientID),
		traces.PaymentID(params.PaymentID),
	)
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("checkout panic", "client_id", clientID, "panic", rec)
			result = failure(KindUnexpected, "An unexpected error occurred")
		}
		metrics.CheckoutsTotal.WithLabelValues(outcomeLabel(result)).Inc()
		if r.events != nil && result != nil {
			r.events.Publish("checkout.completed", map[string]any{
				"state":         string(result.State),
				"transactionId": result.TransactionID,
				"errorKind":     string(result.ErrorKind),
			})
		}
	}()

	log := logging.L(ctx).With("client_id", clientID, "payment_id", params.PaymentID)

	if params.PaymentID == "" {
		return failure(KindMissingPaymentID, "Payment ID not found in URL")
	}

	// Session token, when the client has one. Backend calls work without it
	// in development mode.
	token, err := r.state.Get(ctx, clientID, clientstate.KeyToken)
	if err != nil && !errors.Is(err, clientstate.ErrNotFound) {
		log.Error("load token failed", "error", err)
		return failure(KindUnexpected, "An unexpected error occurred")
	}

	// When PayerID is absent the backend already executed the payment during
	// the gateway callback, so the execute step is skipped and a synthetic
	// transaction id stands in until the real one is known.
	transactionID := fallbackTransactionID(r.now())
	synthetic := true

	if params.PayerID != "" {
		log.Info("executing payment", "state", StateExecuting)

		execResult, err := r.executor.ExecutePayment(ctx, params.PaymentID, params.PayerID, token)
		if err != nil {
			var be *backend.Error
			if errors.As(err, &be) {
				msg := be.Message
				if msg == "" {
					msg = "Payment execution failed"
				}
				log.Warn("payment execution rejected", "status", be.StatusCode, "message", be.Message)
				return failure(KindExecutionFailed, msg)
			}
			log.Error("payment execution failed", "error", err)
			return failure(KindUnexpected, "An unexpected error occurred")
		}

		// The backend reports status in mixed case.
		if !strings.EqualFold(execResult.Status, "success") {
			msg := execResult.Message
			if msg == "" {
				msg = "Payment status is not success"
			}
			log.Warn("payment execution not successful", "backend_status", execResult.Status)
			return failure(KindExecutionFailed, msg)
		}

		if execResult.TransactionID != "" {
			transactionID = execResult.TransactionID
			synthetic = false
		}
	} else {
		log.Info("payer id absent, skipping execute step")
	}

	pending, err := clientstate.GetPendingPurchase(ctx, r.state, clientID)
	if err != nil {
		if errors.Is(err, clientstate.ErrNotFound) {
			return failure(KindMissingPurchase, "Purchase information not found")
		}
		log.Error("load pending purchase failed", "error", err)
		return failure(KindUnexpected, "An unexpected error occurred")
	}

	sess, err := clientstate.GetSession(ctx, r.state, clientID)
	if err != nil {
		if errors.Is(err, clientstate.ErrNotFound) {
			return failure(KindNotAuthenticated, "User not logged in")
		}
		log.Error("load session failed", "error", err)
		return failure(KindUnexpected, "An unexpected error occurred")
	}

	log.Info("activating package", "state", StateActivating,
		"user_id", sess.UserID, "package_id", pending.PackageID)

	activation, err := r.activator.CreateUserPackage(ctx, token, backend.CreateUserPackageRequest{
		UserID:          sess.UserID,
		PackageID:       pending.PackageID,
		TransactionDate: r.now(),
	})
	if err != nil || activation.Status != "success" {
		// The payment went through but the package did not attach. The
		// pending purchase stays so support can recover it; retrying the
		// payment would charge the customer twice.
		if err != nil {
			log.Error("package activation failed", "error", err)
		} else {
			log.Error("package activation not successful", "backend_status", activation.Status)
		}
		return failure(KindActivationFailed,
			"Payment succeeded but package activation failed. Please contact support.")
	}

	packageName := activation.PackageName
	if packageName == "" {
		packageName = pending.PackageName
	}

	// Terminal success: clear the reconciliation markers. A failed delete
	// is logged but does not fail the run.
	if err := r.state.Delete(ctx, clientID, clientstate.KeyPendingPurchase); err != nil {
		log.Warn("clear pending purchase failed", "error", err)
	}
	if err := r.state.Delete(ctx, clientID, clientstate.KeyPaymentID); err != nil {
		log.Warn("clear payment id failed", "error", err)
	}

	log.Info("checkout complete", "transaction_id", transactionID, "package", packageName)

	// Signed receipt for the completed payment. Issuance failure is logged
	// but never fails the run: the customer's package is already active.
	if err := r.receipts.IssueReceipt(ctx, receipts.IssueRequest{
		Source:      receipts.SourceCheckout,
		Reference:   transactionID,
		ClientID:    clientID,
		Description: packageName,
		Amount:      pending.Price,
		Status:      "completed",
	}); err != nil {
		log.Warn("receipt issue failed", "error", err)
	}

	return &Result{
		State:         StateSuccess,
		TransactionID: transactionID,
		Synthetic:     synthetic,
		PackageName:   packageName,
	}
}

func outcomeLabel(result *Result) string {
	if result == nil {
		return string(KindUnexpected)
	}
	if result.Succeeded() {
		return "success"
	}
	return string(result.ErrorKind)
}
