package battery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/voltswap/voltswap/internal/backend"
	"github.com/voltswap/voltswap/internal/metrics"
	"github.com/voltswap/voltswap/internal/traces"
	"github.com/voltswap/voltswap/internal/validation"
)

// BatteryProvider fetches the battery fleet from the station backend.
type BatteryProvider interface {
	ListBatteries(ctx context.Context, token string) ([]backend.Battery, error)
}

// Publisher pushes realtime events to connected consoles.
type Publisher interface {
	Publish(eventType string, payload any)
}

// Service implements battery health and return operations.
type Service struct {
	provider BatteryProvider
	returns  ReturnStore
	events   Publisher
	logger   *slog.Logger
}

// NewService creates a battery service. events may be nil.
func NewService(provider BatteryProvider, returns ReturnStore, events Publisher) *Service {
	return &Service{
		provider: provider,
		returns:  returns,
		events:   events,
		logger:   slog.Default(),
	}
}

// WithLogger sets a structured logger.
func (s *Service) WithLogger(l *slog.Logger) *Service {
	s.logger = l
	return s
}

// ListScored returns the fleet annotated with SOH scores.
func (s *Service) ListScored(ctx context.Context, token string) ([]ScoredBattery, error) {
	batteries, err := s.provider.ListBatteries(ctx, token)
	if err != nil {
		return nil, err
	}
	return Score(batteries), nil
}

// Summary returns the aggregated fleet health summary.
func (s *Service) Summary(ctx context.Context, token string) (FleetSummary, error) {
	ctx, span := traces.StartSpan(ctx, "battery.Summary")
	defer span.End()

	batteries, err := s.provider.ListBatteries(ctx, token)
	if err != nil {
		return FleetSummary{}, err
	}
	return Summarize(batteries), nil
}

// Count returns the number of batteries with the given status. Status
// matching is case-insensitive at this layer; the backend is not consistent
// about casing.
func (s *Service) Count(ctx context.Context, token, status string) (int, error) {
	batteries, err := s.provider.ListBatteries(ctx, token)
	if err != nil {
		return 0, err
	}
	var n int
	for _, b := range batteries {
		if strings.EqualFold(b.Status, status) {
			n++
		}
	}
	return n, nil
}

// Classification holds the distinct values used by the inventory filters.
type Classification struct {
	Statuses   []string  `json:"statuses"`
	Models     []string  `json:"models"`
	Capacities []float64 `json:"capacities"`
}

// Classify returns the distinct statuses, models, and capacities in the fleet.
func (s *Service) Classify(ctx context.Context, token string) (Classification, error) {
	batteries, err := s.provider.ListBatteries(ctx, token)
	if err != nil {
		return Classification{}, err
	}
	return Classification{
		Statuses:   DistinctStatuses(batteries),
		Models:     DistinctModels(batteries),
		Capacities: DistinctCapacities(batteries),
	}, nil
}

// CheckIn records a returned battery. New returns always start PENDING
// unless the staff member recorded a status at intake.
func (s *Service) CheckIn(ctx context.Context, ret *Return) error {
	ctx, span := traces.StartSpan(ctx, "battery.CheckIn",
		traces.BatteryID(fmt.Sprintf("%d", ret.BatteryID)),
	)
	defer span.End()

	if errs := validation.Validate(
		validation.PositiveID("batteryID", ret.BatteryID),
		validation.PositiveID("transactionID", ret.TransactionID),
		validation.Required("customer", ret.Customer),
		validation.Required("phone", ret.Phone),
	); len(errs) > 0 {
		return errs
	}

	if ret.Status == "" {
		ret.Status = ReturnPending
	}
	if !ValidReturnStatus(ret.Status) {
		return ErrInvalidStatus
	}
	if ret.ReturnedAt.IsZero() {
		ret.ReturnedAt = time.Now()
	}
	ret.UpdatedAt = ret.ReturnedAt

	if err := s.returns.Create(ctx, ret); err != nil {
		return err
	}

	metrics.BatteryReturnsTotal.WithLabelValues(string(ret.Status)).Inc()
	s.logger.Info("battery return recorded",
		"battery_id", ret.BatteryID, "transaction_id", ret.TransactionID, "status", ret.Status)

	if s.events != nil {
		s.events.Publish("battery.returned", ret)
	}
	return nil
}

// ListReturns returns all recorded returns, most recent first.
func (s *Service) ListReturns(ctx context.Context) ([]*Return, error) {
	return s.returns.List(ctx)
}

// UpdateReturnStatus moves a return out of PENDING after inspection.
func (s *Service) UpdateReturnStatus(ctx context.Context, batteryID, transactionID int64, status ReturnStatus) (*Return, error) {
	if !ValidReturnStatus(status) {
		return nil, ErrInvalidStatus
	}

	if err := s.returns.UpdateStatus(ctx, batteryID, transactionID, status); err != nil {
		return nil, err
	}

	ret, err := s.returns.Get(ctx, batteryID, transactionID)
	if err != nil {
		return nil, err
	}

	metrics.BatteryReturnsTotal.WithLabelValues(string(status)).Inc()
	s.logger.Info("battery return status updated",
		"battery_id", batteryID, "transaction_id", transactionID, "status", status)

	if s.events != nil {
		s.events.Publish("battery.return_updated", ret)
	}
	return ret, nil
}
