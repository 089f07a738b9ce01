package transactions

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/voltswap/voltswap/internal/receipts"
	"github.com/voltswap/voltswap/internal/validation"
)

// Publisher pushes realtime events to connected consoles.
type Publisher interface {
	Publish(eventType string, payload any)
}

// Service implements swap transaction business logic.
type Service struct {
	store    Store
	events   Publisher
	receipts *receipts.Service
	logger   *slog.Logger
}

// NewService creates a transactions service. events may be nil.
func NewService(store Store, events Publisher) *Service {
	return &Service{
		store:  store,
		events: events,
		logger: slog.Default(),
	}
}

// WithLogger sets a structured logger.
func (s *Service) WithLogger(l *slog.Logger) *Service {
	s.logger = l
	return s
}

// WithReceipts sets the receipt service. Transactions that settle to
// COMPLETED get a signed receipt; nil skips issuance.
func (s *Service) WithReceipts(svc *receipts.Service) *Service {
	s.receipts = svc
	return s
}

// Record stores a new swap transaction. New transactions default to PENDING.
func (s *Service) Record(ctx context.Context, tx *Transaction) (*Transaction, error) {
	if errs := validation.Validate(
		validation.Required("customerName", tx.CustomerName),
	); len(errs) > 0 {
		return nil, errs
	}
	if tx.Amount < 0 {
		return nil, validation.ValidationErrors{{Field: "amount", Message: "must not be negative"}}
	}

	if tx.Status == "" {
		tx.Status = StatusPending
	}
	if !ValidStatus(tx.Status) {
		return nil, ErrInvalidStatus
	}

	created, err := s.store.Create(ctx, tx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction recorded",
		"transaction_id", created.TransactionID, "amount", created.Amount, "status", created.Status)

	if s.events != nil {
		s.events.Publish("transaction.created", created)
	}
	return created, nil
}

// Get returns one transaction.
func (s *Service) Get(ctx context.Context, id int64) (*Transaction, error) {
	return s.store.Get(ctx, id)
}

// List returns recent transactions, most recent first.
func (s *Service) List(ctx context.Context, limit int) ([]*Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.List(ctx, limit)
}

// ListSince returns transactions on or after the given time, oldest first.
func (s *Service) ListSince(ctx context.Context, since time.Time) ([]*Transaction, error) {
	return s.store.ListSince(ctx, since)
}

// UpdateStatus moves a transaction to a new settlement state.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) (*Transaction, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}

	tx, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction status updated", "transaction_id", id, "status", status)

	if status == StatusCompleted {
		if err := s.receipts.IssueReceipt(ctx, receipts.IssueRequest{
			Source:      receipts.SourceSwap,
			Reference:   strconv.FormatInt(tx.TransactionID, 10),
			Description: tx.CustomerName,
			Amount:      strconv.FormatFloat(tx.Amount, 'f', 2, 64),
			Status:      string(status),
		}); err != nil {
			s.logger.Warn("receipt issue failed", "transaction_id", id, "error", err)
		}
	}

	if s.events != nil {
		s.events.Publish("transaction.updated", tx)
	}
	return tx, nil
}
