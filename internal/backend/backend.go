// Package backend is the REST client for the external station backend, the
// service that owns users, payments, packages, and battery inventory.
package backend

import (
	"fmt"
	"time"
)

// Battery is a battery record as the station backend reports it.
type Battery struct {
	BatteryID    int64   `json:"batteryID"`
	BatteryName  string  `json:"batteryName"`
	Status       string  `json:"status"`
	Quantity     int     `json:"quantity"`
	Capacity     float64 `json:"capacity"`
	Model        string  `json:"model"`
	UsageCount   int     `json:"usageCount"`
	BatteryType  string  `json:"batteryType"`
	BorrowStatus string  `json:"borrowStatus"`
	StationID    int64   `json:"stationID"`
}

// ExecuteResult is the backend's response to a payment execution.
type ExecuteResult struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	TransactionID string `json:"transactionId"`
}

// ActivationResult is the backend's response to a user-package activation.
type ActivationResult struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	PackageName string `json:"packageName"`
}

// PaymentInit is the backend's response to a payment creation: the gateway
// approval URL the customer is redirected to.
type PaymentInit struct {
	PaymentID   string `json:"paymentId"`
	ApprovalURL string `json:"approvalUrl"`
}

// CreateUserPackageRequest activates a purchased package for a user.
type CreateUserPackageRequest struct {
	UserID          int64     `json:"userId"`
	PackageID       int64     `json:"packageId"`
	TransactionDate time.Time `json:"transactionDate"`
}

// Error is a non-2xx response from the station backend. Message carries the
// remote error body's message when one was parseable.
type Error struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend: %s: status %d", e.Op, e.StatusCode)
}
