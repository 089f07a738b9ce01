// Package clientstate persists per-console-client key/value state: the
// pending package purchase, the signed-in session, and the payment-id marker
// the reconciliation flow reads after the gateway redirect.
package clientstate

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Well-known keys. The console writes these before redirecting to the
// payment gateway and the reconciler consumes them afterwards.
const (
	KeyPendingPurchase = "pendingPackagePurchase"
	KeyUserID          = "userId"
	KeyToken           = "token"
	KeyPaymentID       = "paymentId"
)

var (
	ErrNotFound = errors.New("clientstate: key not found")
)

// Entry is one stored value for a (clientID, key) pair.
type Entry struct {
	ClientID  string    `json:"clientId"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PendingPurchase is the package the client selected before the gateway
// redirect.
type PendingPurchase struct {
	PackageID   int64  `json:"packageId"`
	PackageName string `json:"packageName,omitempty"`
	Price       string `json:"price,omitempty"`
}

// Session identifies the signed-in console user.
type Session struct {
	UserID int64
	Token  string
}

// Store persists client state keyed by (clientID, key).
type Store interface {
	Get(ctx context.Context, clientID, key string) (string, error)
	Set(ctx context.Context, clientID, key, value string) error
	Delete(ctx context.Context, clientID, key string) error
}

// GetPendingPurchase loads and decodes the pending purchase for a client.
func GetPendingPurchase(ctx context.Context, s Store, clientID string) (*PendingPurchase, error) {
	raw, err := s.Get(ctx, clientID, KeyPendingPurchase)
	if err != nil {
		return nil, err
	}
	var p PendingPurchase
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetPendingPurchase encodes and stores the pending purchase for a client.
func SetPendingPurchase(ctx context.Context, s Store, clientID string, p *PendingPurchase) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.Set(ctx, clientID, KeyPendingPurchase, string(raw))
}

// GetSession loads the client's session. Token may be empty even when the
// user ID is set; the caller decides whether that matters.
func GetSession(ctx context.Context, s Store, clientID string) (*Session, error) {
	rawID, err := s.Get(ctx, clientID, KeyUserID)
	if err != nil {
		return nil, err
	}
	var userID int64
	if err := json.Unmarshal([]byte(rawID), &userID); err != nil {
		return nil, err
	}

	token, err := s.Get(ctx, clientID, KeyToken)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	return &Session{UserID: userID, Token: token}, nil
}
