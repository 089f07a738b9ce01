package station

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/voltswap/voltswap/internal/idgen"
	"github.com/voltswap/voltswap/internal/metrics"
	"github.com/voltswap/voltswap/internal/traces"
	"github.com/voltswap/voltswap/internal/validation"
)

// Publisher pushes realtime events to connected consoles.
type Publisher interface {
	Publish(eventType string, payload any)
}

// Service implements station registry and transfer operations.
type Service struct {
	store  Store
	events Publisher
	logger *slog.Logger

	// transferMu serializes transfers so no observer sees a half-applied
	// move and two concurrent transfers cannot both pass validation
	// against the same snapshot.
	transferMu sync.Mutex
}

// NewService creates a station service. events may be nil.
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

// CreateStation registers a station with its initial slot counts.
func (s *Service) CreateStation(ctx context.Context, st *Station, slots Slots) error {
	if errs := validation.Validate(
		validation.PositiveID("stationID", st.StationID),
		validation.Required("stationName", st.StationName),
		validation.Required("address", st.Address),
	); len(errs) > 0 {
		return errs
	}
	if slots.Total < 0 || slots.Available < 0 || slots.Available > slots.Total {
		return ErrInvalidSlots
	}

	if st.Status == "" {
		st.Status = StatusActive
	}
	now := time.Now()
	st.CreatedAt = now
	st.UpdatedAt = now

	if err := s.store.CreateStation(ctx, st, slots); err != nil {
		return err
	}

	s.logger.Info("station created", "station_id", st.StationID, "name", st.StationName)
	return nil
}

// Get returns one station.
func (s *Service) Get(ctx context.Context, id int64) (*Station, error) {
	return s.store.GetStation(ctx, id)
}

// List returns all stations.
func (s *Service) List(ctx context.Context) ([]*Station, error) {
	return s.store.ListStations(ctx)
}

// Inventory returns the current slot occupancy snapshot.
func (s *Service) Inventory(ctx context.Context) (Inventory, error) {
	return s.store.GetInventory(ctx)
}

// ExecuteTransfer validates and applies a battery transfer. The whole
// read-validate-write sequence runs under the transfer mutex: either the
// transfer applies fully and is recorded, or nothing changes.
func (s *Service) ExecuteTransfer(ctx context.Context, t Transfer) (*Transfer, error) {
	ctx, span := traces.StartSpan(ctx, "station.ExecuteTransfer",
		traces.StationID(t.FromStationID),
	)
	defer span.End()

	s.transferMu.Lock()
	defer s.transferMu.Unlock()

	inv, err := s.store.GetInventory(ctx)
	if err != nil {
		metrics.TransfersTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	next, err := ApplyTransfer(inv, t)
	if err != nil {
		metrics.TransfersTotal.WithLabelValues("rejected").Inc()
		s.logger.Warn("transfer rejected",
			"from", t.FromStationID, "to", t.ToStationID, "count", t.Count, "reason", err)
		return nil, err
	}

	if err := s.store.SetInventory(ctx, next); err != nil {
		metrics.TransfersTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	t.TransferID = idgen.WithPrefix("xfer_")
	t.CreatedAt = time.Now()
	if err := s.store.RecordTransfer(ctx, &t); err != nil {
		// Inventory already moved; the record is history, not state.
		s.logger.Error("record transfer failed", "error", err)
	}

	metrics.TransfersTotal.WithLabelValues("ok").Inc()
	s.logger.Info("transfer applied",
		"transfer_id", t.TransferID, "from", t.FromStationID, "to", t.ToStationID, "count", t.Count)

	if s.events != nil {
		s.events.Publish("station.transfer", &t)
	}
	return &t, nil
}

// ListTransfers returns the most recent transfers.
func (s *Service) ListTransfers(ctx context.Context, limit int) ([]*Transfer, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.store.ListTransfers(ctx, limit)
}
