package packages

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voltswap/voltswap/internal/backend"
	"github.com/voltswap/voltswap/internal/clientstate"
	"github.com/voltswap/voltswap/internal/traces"
)

// PaymentCreator starts a gateway payment and returns the approval URL.
type PaymentCreator interface {
	CreatePayment(ctx context.Context, token string, packageID int64, returnURL, cancelURL string) (*backend.PaymentInit, error)
}

// Service implements package browsing and purchase initiation.
type Service struct {
	payments  PaymentCreator
	state     clientstate.Store
	returnURL string
	cancelURL string
	logger    *slog.Logger
}

// NewService creates a packages service.
func NewService(payments PaymentCreator, state clientstate.Store, returnURL, cancelURL string) *Service {
	return &Service{
		payments:  payments,
		state:     state,
		returnURL: returnURL,
		cancelURL: cancelURL,
		logger:    slog.Default(),
	}
}

// WithLogger sets a structured logger.
func (s *Service) WithLogger(l *slog.Logger) *Service {
	s.logger = l
	return s
}

// List returns the package catalogue.
func (s *Service) List() []Package {
	out := make([]Package, len(Catalogue))
	copy(out, Catalogue)
	return out
}

// InitiatePurchase starts a gateway payment for a package. The pending
// purchase and payment id are recorded in client state before returning the
// approval URL, so the reconciler can finish the flow after the redirect.
func (s *Service) InitiatePurchase(ctx context.Context, clientID, token string, packageID int64) (*backend.PaymentInit, error) {
	ctx, span := traces.StartSpan(ctx, "packages.InitiatePurchase",
		traces.ClientID(clientID),
		traces.PackageID(packageID),
	)
	defer span.End()

	pkg, err := Find(packageID)
	if err != nil {
		return nil, err
	}

	init, err := s.payments.CreatePayment(ctx, token, packageID, s.returnURL, s.cancelURL)
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	pending := &clientstate.PendingPurchase{
		PackageID:   pkg.PackageID,
		PackageName: pkg.PackageName,
		Price:       fmt.Sprintf("%.2f", pkg.Price),
	}
	if err := clientstate.SetPendingPurchase(ctx, s.state, clientID, pending); err != nil {
		return nil, fmt.Errorf("record pending purchase: %w", err)
	}
	if err := s.state.Set(ctx, clientID, clientstate.KeyPaymentID, init.PaymentID); err != nil {
		return nil, fmt.Errorf("record payment id: %w", err)
	}

	s.logger.Info("purchase initiated",
		"client_id", clientID, "package_id", packageID, "payment_id", init.PaymentID)

	return init, nil
}
