package receipts

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/voltswap/voltswap/internal/idgen"
)

// Service implements receipt business logic.
type Service struct {
	store  Store
	signer *Signer
}

// NewService creates a receipt service.
// If signer is nil, IssueReceipt is a no-op (signing disabled).
func NewService(store Store, signer *Signer) *Service {
	return &Service{
		store:  store,
		signer: signer,
	}
}

// IssueReceipt signs and persists a receipt. Nil-safe: returns nil if
// service or signer is nil, so callers issue unconditionally.
func (s *Service) IssueReceipt(ctx context.Context, req IssueRequest) error {
	if s == nil || s.signer == nil {
		return nil
	}

	payload := receiptPayload{
		Amount:      req.Amount,
		ClientID:    req.ClientID,
		Description: req.Description,
		Reference:   req.Reference,
		Source:      string(req.Source),
		Status:      req.Status,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("receipts: failed to marshal payload: %w", err)
	}
	hash := sha256.Sum256(data)

	sig, issuedAt, expiresAt, err := s.signer.Sign(payload)
	if err != nil {
		return fmt.Errorf("receipts: failed to sign: %w", err)
	}

	receipt := &Receipt{
		ID:          idgen.WithPrefix("rcpt_"),
		Source:      req.Source,
		Reference:   req.Reference,
		ClientID:    req.ClientID,
		Description: req.Description,
		Amount:      req.Amount,
		Status:      req.Status,
		PayloadHash: fmt.Sprintf("%x", hash),
		Signature:   sig,
		IssuedAt:    issuedAt,
		ExpiresAt:   expiresAt,
		Metadata:    req.Metadata,
		CreatedAt:   time.Now(),
	}

	return s.store.Create(ctx, receipt)
}

// Get returns a receipt by ID.
func (s *Service) Get(ctx context.Context, id string) (*Receipt, error) {
	return s.store.Get(ctx, id)
}

// ListByClient returns receipts issued for a console client's checkouts.
func (s *Service) ListByClient(ctx context.Context, clientID string, limit int) ([]*Receipt, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListByClient(ctx, clientID, limit)
}

// ListByReference returns receipts for a payment transaction id.
func (s *Service) ListByReference(ctx context.Context, reference string) ([]*Receipt, error) {
	return s.store.ListByReference(ctx, reference)
}

// Verify checks whether a receipt's signature is valid.
func (s *Service) Verify(ctx context.Context, receiptID string) (*VerifyResponse, error) {
	if s.signer == nil {
		return &VerifyResponse{
			Valid:     false,
			ReceiptID: receiptID,
			Error:     ErrSigningDisabled.Error(),
		}, nil
	}

	receipt, err := s.store.Get(ctx, receiptID)
	if err != nil {
		return &VerifyResponse{
			Valid:     false,
			ReceiptID: receiptID,
			Error:     ErrReceiptNotFound.Error(),
		}, nil
	}

	payload := receiptPayload{
		Amount:      receipt.Amount,
		ClientID:    receipt.ClientID,
		Description: receipt.Description,
		Reference:   receipt.Reference,
		Source:      string(receipt.Source),
		Status:      receipt.Status,
	}

	valid := s.signer.Verify(payload, receipt.Signature)

	resp := &VerifyResponse{
		Valid:     valid,
		ReceiptID: receiptID,
	}

	if valid && time.Now().After(receipt.ExpiresAt) {
		resp.Expired = true
	}

	if !valid {
		resp.Error = "signature verification failed"
	}

	return resp, nil
}
