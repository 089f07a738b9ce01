// Package transactions records battery-swap transactions. The dashboard
// aggregates are derived from this store.
package transactions

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTransactionNotFound = errors.New("transactions: not found")
	ErrInvalidStatus       = errors.New("transactions: invalid status")
)

// Status is a transaction's settlement state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// ValidStatus reports whether s is a recognised transaction status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Transaction is one battery swap.
type Transaction struct {
	TransactionID int64     `json:"transactionId"`
	OccurredAt    time.Time `json:"timeDate"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail,omitempty"`
	VIN           string    `json:"vin,omitempty"`
	Amount        float64   `json:"amount"`
	Status        Status    `json:"status"`
	UserID        int64     `json:"userId,omitempty"`
	StationID     int64     `json:"stationId,omitempty"`
	PackageID     int64     `json:"packageId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Store persists swap transactions.
type Store interface {
	Create(ctx context.Context, tx *Transaction) (*Transaction, error)
	Get(ctx context.Context, id int64) (*Transaction, error)
	List(ctx context.Context, limit int) ([]*Transaction, error)
	ListSince(ctx context.Context, since time.Time) ([]*Transaction, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
}
