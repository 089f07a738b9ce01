// Package station manages the station registry, per-station battery slot
// inventory, and inter-station battery transfers.
package station

import (
	"context"
	"errors"
	"time"
)

var (
	ErrStationNotFound            = errors.New("station: not found")
	ErrStationExists              = errors.New("station: already exists")
	ErrInvalidSlots               = errors.New("station: available must be between 0 and total")
	ErrUnknownStation             = errors.New("station: transfer references unknown station")
	ErrInvalidTransferCount       = errors.New("station: transfer count must be positive")
	ErrSameStation                = errors.New("station: transfer source and target are the same station")
	ErrInsufficientSource         = errors.New("station: source has too few available batteries")
	ErrInsufficientTargetCapacity = errors.New("station: target has too few free slots")
)

// Status is a station's operational state.
type Status string

const (
	StatusActive      Status = "active"
	StatusClosed      Status = "closed"
	StatusMaintenance Status = "maintenance"
)

// Station is a battery-swap station.
type Station struct {
	StationID   int64     `json:"stationID"`
	StationName string    `json:"stationName"`
	Address     string    `json:"address"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Slots is a station's battery slot occupancy. Available counts charged
// batteries ready to hand out; Total is the physical slot count.
// Invariant: 0 <= Available <= Total.
type Slots struct {
	Total     int `json:"total"`
	Available int `json:"available"`
}

// Free returns the number of empty slots.
func (s Slots) Free() int { return s.Total - s.Available }

// Inventory maps station IDs to their slot occupancy.
type Inventory map[int64]Slots

// Clone returns a deep copy of the inventory.
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for id, slots := range inv {
		out[id] = slots
	}
	return out
}

// Transfer moves charged batteries from one station to another.
type Transfer struct {
	TransferID    string    `json:"transferID,omitempty"`
	FromStationID int64     `json:"fromStationID"`
	ToStationID   int64     `json:"toStationID"`
	Count         int       `json:"count"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
}

// ApplyTransfer validates a transfer against an inventory snapshot and
// returns the resulting snapshot. The input is never mutated: on any error
// the returned inventory is nil and the caller's snapshot is unchanged, so
// a failed validation cannot leave half-applied state.
func ApplyTransfer(inv Inventory, t Transfer) (Inventory, error) {
	if t.Count <= 0 {
		return nil, ErrInvalidTransferCount
	}
	if t.FromStationID == t.ToStationID {
		return nil, ErrSameStation
	}

	source, ok := inv[t.FromStationID]
	if !ok {
		return nil, ErrUnknownStation
	}
	target, ok := inv[t.ToStationID]
	if !ok {
		return nil, ErrUnknownStation
	}

	if source.Available < t.Count {
		return nil, ErrInsufficientSource
	}
	if target.Free() < t.Count {
		return nil, ErrInsufficientTargetCapacity
	}

	out := inv.Clone()
	source.Available -= t.Count
	target.Available += t.Count
	out[t.FromStationID] = source
	out[t.ToStationID] = target
	return out, nil
}

// Store persists stations and their inventory.
type Store interface {
	CreateStation(ctx context.Context, st *Station, slots Slots) error
	GetStation(ctx context.Context, id int64) (*Station, error)
	ListStations(ctx context.Context) ([]*Station, error)
	GetInventory(ctx context.Context) (Inventory, error)
	SetInventory(ctx context.Context, inv Inventory) error
	RecordTransfer(ctx context.Context, t *Transfer) error
	ListTransfers(ctx context.Context, limit int) ([]*Transfer, error)
}
