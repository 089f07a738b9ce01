// Package battery implements battery health scoring, fleet summaries, and
// the staff battery-return workflow.
package battery

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/voltswap/voltswap/internal/backend"
)

var (
	ErrReturnNotFound = errors.New("battery: return not found")
	ErrReturnExists   = errors.New("battery: return already recorded")
	ErrInvalidStatus  = errors.New("battery: invalid return status")
)

// SOH computes the state-of-health score for a battery from its swap cycle
// count and rated capacity (kWh). A battery is assumed to degrade linearly
// over capacity*10 cycles; the score is clamped to [0, 100]. Zero capacity
// means the rating is unknown and scores 0 so the battery surfaces as
// critical rather than healthy.
func SOH(usageCount int, capacity float64) int {
	if capacity == 0 {
		return 0
	}
	score := (1 - float64(usageCount)/(capacity*10)) * 100
	score = math.Round(score)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score)
}

// HealthBand buckets an SOH score for display and filtering.
type HealthBand string

const (
	BandExcellent HealthBand = "excellent"
	BandGood      HealthBand = "good"
	BandFair      HealthBand = "fair"
	BandPoor      HealthBand = "poor"
	BandCritical  HealthBand = "critical"
)

// Band maps an SOH score to its health band.
func Band(soh int) HealthBand {
	switch {
	case soh >= 90:
		return BandExcellent
	case soh >= 80:
		return BandGood
	case soh >= 70:
		return BandFair
	case soh >= 60:
		return BandPoor
	default:
		return BandCritical
	}
}

// CriticalThreshold is the SOH score below which a battery needs attention.
const CriticalThreshold = 60

// ScoredBattery is a backend battery annotated with its health score.
type ScoredBattery struct {
	backend.Battery
	SOH  int        `json:"soh"`
	Band HealthBand `json:"band"`
}

// Score annotates backend batteries with SOH and band.
func Score(batteries []backend.Battery) []ScoredBattery {
	out := make([]ScoredBattery, len(batteries))
	for i, b := range batteries {
		soh := SOH(b.UsageCount, b.Capacity)
		out[i] = ScoredBattery{Battery: b, SOH: soh, Band: Band(soh)}
	}
	return out
}

// FleetSummary aggregates health across the whole battery fleet.
type FleetSummary struct {
	Total           int            `json:"total"`
	AverageSOH      int            `json:"averageSoh"`
	CriticalCount   int            `json:"criticalCount"`
	AverageCycles   int            `json:"averageCycles"`
	StatusBreakdown map[string]int `json:"statusBreakdown"`
	BandBreakdown   map[string]int `json:"bandBreakdown"`
}

// Summarize computes the fleet summary. Empty input yields zeros, not NaN.
func Summarize(batteries []backend.Battery) FleetSummary {
	summary := FleetSummary{
		Total:           len(batteries),
		StatusBreakdown: make(map[string]int),
		BandBreakdown:   make(map[string]int),
	}
	if len(batteries) == 0 {
		return summary
	}

	var sohSum, cycleSum int
	for _, b := range batteries {
		soh := SOH(b.UsageCount, b.Capacity)
		sohSum += soh
		cycleSum += b.UsageCount
		if soh < CriticalThreshold {
			summary.CriticalCount++
		}
		summary.StatusBreakdown[b.Status]++
		summary.BandBreakdown[string(Band(soh))]++
	}

	summary.AverageSOH = int(math.Round(float64(sohSum) / float64(len(batteries))))
	summary.AverageCycles = int(math.Round(float64(cycleSum) / float64(len(batteries))))
	return summary
}

// CountByStatus counts batteries whose status matches (case-sensitive, as
// the backend reports it).
func CountByStatus(batteries []backend.Battery, status string) int {
	var n int
	for _, b := range batteries {
		if b.Status == status {
			n++
		}
	}
	return n
}

// DistinctModels returns the sorted distinct battery models in the fleet.
func DistinctModels(batteries []backend.Battery) []string {
	return distinct(batteries, func(b backend.Battery) string { return b.Model })
}

// DistinctStatuses returns the sorted distinct battery statuses.
func DistinctStatuses(batteries []backend.Battery) []string {
	return distinct(batteries, func(b backend.Battery) string { return b.Status })
}

// DistinctCapacities returns the sorted distinct capacities (kWh).
func DistinctCapacities(batteries []backend.Battery) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, b := range batteries {
		if !seen[b.Capacity] {
			seen[b.Capacity] = true
			out = append(out, b.Capacity)
		}
	}
	sort.Float64s(out)
	return out
}

func distinct(batteries []backend.Battery, key func(backend.Battery) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range batteries {
		k := key(b)
		if k != "" && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// ReturnStatus is the check-in state of a returned battery.
type ReturnStatus string

const (
	ReturnPending     ReturnStatus = "PENDING"
	ReturnFull        ReturnStatus = "FULL"
	ReturnDamaged     ReturnStatus = "DAMAGED"
	ReturnMaintenance ReturnStatus = "MAINTENANCE"
)

// ValidReturnStatus reports whether s is a recognised return status.
func ValidReturnStatus(s ReturnStatus) bool {
	switch s {
	case ReturnPending, ReturnFull, ReturnDamaged, ReturnMaintenance:
		return true
	}
	return false
}

// Return records a battery a customer handed back at a station. Identified
// by (BatteryID, TransactionID): the same battery can come back under a
// different swap transaction.
type Return struct {
	BatteryID     int64        `json:"batteryID"`
	TransactionID int64        `json:"transactionID"`
	Customer      string       `json:"customer"`
	Phone         string       `json:"phone"`
	Status        ReturnStatus `json:"status"`
	ReturnedAt    time.Time    `json:"returnDateTime"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// ReturnStore persists battery returns.
type ReturnStore interface {
	Create(ctx context.Context, ret *Return) error
	Get(ctx context.Context, batteryID, transactionID int64) (*Return, error)
	List(ctx context.Context) ([]*Return, error)
	UpdateStatus(ctx context.Context, batteryID, transactionID int64, status ReturnStatus) error
}
