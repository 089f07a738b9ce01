// Package checkout runs the payment-completion reconciliation flow: after
// the payment gateway redirects back to the console, it finalizes the
// payment with the station backend and activates the purchased package for
// the signed-in user.
package checkout

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

var (
	ErrMissingPaymentID = errors.New("checkout: payment id not found in callback")
)

// State is a stage of the reconciliation run. The machine only moves
// forward; Success and Error are terminal.
type State string

const (
	StateInit       State = "init"
	StateExecuting  State = "executing"
	StateActivating State = "activating"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// Kind classifies a terminal reconciliation failure.
type Kind string

const (
	KindMissingPaymentID Kind = "missing_payment_id"
	KindExecutionFailed  Kind = "execution_failed"
	KindMissingPurchase  Kind = "missing_purchase"
	KindNotAuthenticated Kind = "not_authenticated"
	KindActivationFailed Kind = "activation_failed"
	KindUnexpected       Kind = "unexpected"
)

// RetryClass tells the view whether the customer can retry the flow or
// should contact support. Activation failures mean money moved but the
// package did not attach, so retrying the payment would double-charge.
type RetryClass string

const (
	RetryClassRetry   RetryClass = "retry"
	RetryClassSupport RetryClass = "support"
)

// retryClassFor maps each failure kind to its retry class.
func retryClassFor(kind Kind) RetryClass {
	switch kind {
	case KindActivationFailed, KindUnexpected:
		return RetryClassSupport
	default:
		return RetryClassRetry
	}
}

// CallbackParams are the gateway redirect parameters.
type CallbackParams struct {
	PaymentID string
	PayerID   string
}

// ParseCallback extracts the payment callback parameters from the redirect
// query. The gateway sends paymentId; some configurations send the payment
// id under token instead, so that is accepted as a fallback. PayerID is
// optional: its absence means the backend already executed the payment.
func ParseCallback(values url.Values) (CallbackParams, error) {
	paymentID := values.Get("paymentId")
	if paymentID == "" {
		paymentID = values.Get("token")
	}
	if paymentID == "" {
		return CallbackParams{}, ErrMissingPaymentID
	}
	return CallbackParams{
		PaymentID: paymentID,
		PayerID:   values.Get("PayerID"),
	}, nil
}

// Result is the terminal outcome of a reconciliation run.
type Result struct {
	State         State      `json:"state"`
	TransactionID string     `json:"transactionId,omitempty"`
	Synthetic     bool       `json:"synthetic,omitempty"`
	PackageName   string     `json:"packageName,omitempty"`
	ErrorKind     Kind       `json:"errorKind,omitempty"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
	RetryClass    RetryClass `json:"retryClass,omitempty"`
}

// Succeeded reports whether the run reached the success state.
func (r *Result) Succeeded() bool { return r.State == StateSuccess }

// failure builds a terminal error result.
func failure(kind Kind, message string) *Result {
	return &Result{
		State:        StateError,
		ErrorKind:    kind,
		ErrorMessage: message,
		RetryClass:   retryClassFor(kind),
	}
}

// fallbackTransactionID builds the synthetic transaction id used when the
// backend executed the payment itself and no id came back: TXN- plus the
// last 8 digits of the unix-millisecond clock.
func fallbackTransactionID(now time.Time) string {
	ms := fmt.Sprintf("%d", now.UnixMilli())
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	}
	return "TXN-" + ms
}
