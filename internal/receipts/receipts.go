// Package receipts issues HMAC-signed receipts for money movements the
// console observes: completed package checkouts and settled swap
// transactions. A receipt is proof the console recorded the payment and
// can be verified later without trusting the database row.
package receipts

import (
	"context"
	"errors"
	"time"
)

var (
	ErrReceiptNotFound = errors.New("receipts: not found")
	ErrSigningDisabled = errors.New("receipts: signing disabled (no HMAC secret configured)")
)

// Source identifies which flow produced the receipt.
type Source string

const (
	SourceCheckout Source = "checkout"
	SourceSwap     Source = "swap"
)

// Receipt is a signed proof that the console recorded a payment.
type Receipt struct {
	ID          string    `json:"id"`
	Source      Source    `json:"source"`
	Reference   string    `json:"reference"`             // transaction id of the underlying payment
	ClientID    string    `json:"clientId,omitempty"`    // console client that drove the checkout
	Description string    `json:"description,omitempty"` // package name or swap summary
	Amount      string    `json:"amount,omitempty"`
	Status      string    `json:"status"`
	PayloadHash string    `json:"payloadHash"` // SHA-256 of canonical payload
	Signature   string    `json:"signature"`   // HMAC-SHA256 signature
	IssuedAt    time.Time `json:"issuedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Metadata    string    `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// IssueRequest is the input for creating a receipt.
type IssueRequest struct {
	Source      Source
	Reference   string
	ClientID    string
	Description string
	Amount      string
	Status      string
	Metadata    string
}

// VerifyRequest is the input for verifying a receipt signature.
type VerifyRequest struct {
	ReceiptID string `json:"receiptId" binding:"required"`
}

// VerifyResponse is the result of receipt verification.
type VerifyResponse struct {
	Valid     bool   `json:"valid"`
	ReceiptID string `json:"receiptId"`
	Expired   bool   `json:"expired,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Store persists receipt data.
type Store interface {
	Create(ctx context.Context, receipt *Receipt) error
	Get(ctx context.Context, id string) (*Receipt, error)
	ListByClient(ctx context.Context, clientID string, limit int) ([]*Receipt, error)
	ListByReference(ctx context.Context, reference string) ([]*Receipt, error)
}

// receiptPayload is the canonical struct signed by HMAC.
// Field order must be deterministic (JSON marshalling of struct is by field order).
type receiptPayload struct {
	Amount      string `json:"amount"`
	ClientID    string `json:"clientId"`
	Description string `json:"description"`
	Reference   string `json:"reference"`
	Source      string `json:"source"`
	Status      string `json:"status"`
}
