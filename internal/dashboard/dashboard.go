// Package dashboard derives the console's overview metrics from the
// transaction store and the battery fleet. Everything here is read-only
// aggregation; concurrent refreshes race benignly (last response wins).
package dashboard

import (
	"math"
	"strings"
	"time"

	"github.com/voltswap/voltswap/internal/backend"
	"github.com/voltswap/voltswap/internal/transactions"
)

// DayWindow is how many days the by-day charts cover.
const DayWindow = 7

// Stats is the dashboard headline row.
type Stats struct {
	TotalTransactions int     `json:"totalTransactions"`
	TransactionGrowth float64 `json:"transactionGrowth"`
	TotalRevenue      float64 `json:"totalRevenue"`
	RevenueGrowth     float64 `json:"revenueGrowth"`
	TotalBatteries    int     `json:"totalBatteries"`
	DamagedBatteries  int     `json:"damagedBatteries"`
}

// DayCount is one day's transaction count.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// DayRevenue is one day's completed revenue.
type DayRevenue struct {
	Day     string  `json:"day"`
	Revenue float64 `json:"revenue"`
}

// BatteryStatus is the fleet status breakdown shown on the dashboard.
type BatteryStatus struct {
	Full        int `json:"full"`
	Charging    int `json:"charging"`
	Maintenance int `json:"maintenance"`
	Damaged     int `json:"damaged"`
}

// Summary is the single-request dashboard payload.
type Summary struct {
	Stats             Stats         `json:"stats"`
	TransactionsByDay []DayCount    `json:"transactionsByDay"`
	RevenueByDay      []DayRevenue  `json:"revenueByDay"`
	BatteryStatus     BatteryStatus `json:"batteryStatus"`
}

// WeekTotals is one week's transaction and revenue totals.
type WeekTotals struct {
	TotalTransactions int     `json:"totalTransactions"`
	TotalRevenue      float64 `json:"totalRevenue"`
}

// Growth is week-over-week growth in percent.
type Growth struct {
	TransactionGrowth float64 `json:"transactionGrowth"`
	RevenueGrowth     float64 `json:"revenueGrowth"`
}

// WeeklyComparison compares the current week against the previous one.
type WeeklyComparison struct {
	CurrentWeek WeekTotals `json:"currentWeek"`
	LastWeek    WeekTotals `json:"lastWeek"`
	Growth      Growth     `json:"growth"`
}

// revenueOf returns the amount a transaction contributes to revenue. Only
// completed swaps count.
func revenueOf(tx *transactions.Transaction) float64 {
	if tx.Status == transactions.StatusCompleted {
		return tx.Amount
	}
	return 0
}

// dayKey formats a day bucket label.
func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// growthPercent computes percentage growth, defined as 0 when the previous
// period is 0 (a jump from nothing is not a meaningful percentage).
func growthPercent(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return math.Round((current-previous)/previous*1000) / 10
}

// CountByDay buckets transactions into per-day counts over the window
// ending at now. Days with no transactions appear with a zero count.
func CountByDay(txs []*transactions.Transaction, now time.Time) []DayCount {
	counts := make(map[string]int)
	for _, tx := range txs {
		counts[dayKey(tx.OccurredAt)]++
	}

	out := make([]DayCount, 0, DayWindow)
	for i := DayWindow - 1; i >= 0; i-- {
		day := dayKey(now.AddDate(0, 0, -i))
		out = append(out, DayCount{Day: day, Count: counts[day]})
	}
	return out
}

// RevenueByDay buckets completed revenue into per-day totals over the
// window ending at now.
func RevenueByDay(txs []*transactions.Transaction, now time.Time) []DayRevenue {
	revenue := make(map[string]float64)
	for _, tx := range txs {
		revenue[dayKey(tx.OccurredAt)] += revenueOf(tx)
	}

	out := make([]DayRevenue, 0, DayWindow)
	for i := DayWindow - 1; i >= 0; i-- {
		day := dayKey(now.AddDate(0, 0, -i))
		out = append(out, DayRevenue{Day: day, Revenue: revenue[day]})
	}
	return out
}

// BatteryBreakdown counts the fleet by dashboard status bucket. Statuses
// outside the four buckets are ignored.
func BatteryBreakdown(batteries []backend.Battery) BatteryStatus {
	var bs BatteryStatus
	for _, b := range batteries {
		switch strings.ToLower(b.Status) {
		case "full":
			bs.Full++
		case "charging":
			bs.Charging++
		case "maintenance":
			bs.Maintenance++
		case "damaged":
			bs.Damaged++
		}
	}
	return bs
}

// CompareWeeks computes the weekly comparison: the 7 days ending at now
// versus the 7 days before that.
func CompareWeeks(txs []*transactions.Transaction, now time.Time) WeeklyComparison {
	currentStart := now.AddDate(0, 0, -DayWindow)
	lastStart := now.AddDate(0, 0, -2*DayWindow)

	var current, last WeekTotals
	for _, tx := range txs {
		switch {
		case !tx.OccurredAt.Before(currentStart):
			current.TotalTransactions++
			current.TotalRevenue += revenueOf(tx)
		case !tx.OccurredAt.Before(lastStart):
			last.TotalTransactions++
			last.TotalRevenue += revenueOf(tx)
		}
	}

	return WeeklyComparison{
		CurrentWeek: current,
		LastWeek:    last,
		Growth: Growth{
			TransactionGrowth: growthPercent(float64(current.TotalTransactions), float64(last.TotalTransactions)),
			RevenueGrowth:     growthPercent(current.TotalRevenue, last.TotalRevenue),
		},
	}
}
