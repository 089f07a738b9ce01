package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltswap/voltswap/internal/backend"
	"github.com/voltswap/voltswap/internal/transactions"
)

var testNow = time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)

func tx(daysAgo int, amount float64, status transactions.Status) *transactions.Transaction {
	return &transactions.Transaction{
		CustomerName: "C",
		Amount:       amount,
		Status:       status,
		OccurredAt:   testNow.AddDate(0, 0, -daysAgo),
	}
}

func TestCountByDay(t *testing.T) {
	txs := []*transactions.Transaction{
		tx(0, 5, transactions.StatusCompleted),
		tx(0, 5, transactions.StatusPending),
		tx(2, 5, transactions.StatusCompleted),
	}

	counts := CountByDay(txs, testNow)
	require.Len(t, counts, DayWindow)

	// Oldest day first, today last
	assert.Equal(t, "2024-04-09", counts[0].Day)
	assert.Equal(t, "2024-04-15", counts[6].Day)
	assert.Equal(t, 2, counts[6].Count)
	assert.Equal(t, 1, counts[4].Count)
	assert.Equal(t, 0, counts[0].Count)
}

func TestRevenueByDay_OnlyCompletedCounts(t *testing.T) {
	txs := []*transactions.Transaction{
		tx(0, 10, transactions.StatusCompleted),
		tx(0, 99, transactions.StatusPending),
		tx(0, 50, transactions.StatusFailed),
	}

	revenue := RevenueByDay(txs, testNow)
	require.Len(t, revenue, DayWindow)
	assert.Equal(t, 10.0, revenue[6].Revenue)
}

func TestBatteryBreakdown(t *testing.T) {
	batteries := []backend.Battery{
		{Status: "Full"}, {Status: "FULL"}, {Status: "charging"},
		{Status: "Maintenance"}, {Status: "Damaged"}, {Status: "Empty"},
	}

	bs := BatteryBreakdown(batteries)
	assert.Equal(t, 2, bs.Full)
	assert.Equal(t, 1, bs.Charging)
	assert.Equal(t, 1, bs.Maintenance)
	assert.Equal(t, 1, bs.Damaged)
}

func TestCompareWeeks(t *testing.T) {
	txs := []*transactions.Transaction{
		// Current week: 3 transactions, 30 revenue
		tx(1, 10, transactions.StatusCompleted),
		tx(2, 10, transactions.StatusCompleted),
		tx(3, 10, transactions.StatusCompleted),
		// Last week: 2 transactions, 20 revenue
		tx(8, 10, transactions.StatusCompleted),
		tx(10, 10, transactions.StatusCompleted),
	}

	comparison := CompareWeeks(txs, testNow)

	assert.Equal(t, 3, comparison.CurrentWeek.TotalTransactions)
	assert.Equal(t, 30.0, comparison.CurrentWeek.TotalRevenue)
	assert.Equal(t, 2, comparison.LastWeek.TotalTransactions)
	assert.Equal(t, 20.0, comparison.LastWeek.TotalRevenue)
	assert.Equal(t, 50.0, comparison.Growth.TransactionGrowth)
	assert.Equal(t, 50.0, comparison.Growth.RevenueGrowth)
}

func TestCompareWeeks_EmptyPreviousWeek(t *testing.T) {
	txs := []*transactions.Transaction{
		tx(1, 10, transactions.StatusCompleted),
	}

	comparison := CompareWeeks(txs, testNow)

	// Growth from nothing is reported as 0, not infinity
	assert.Equal(t, 0.0, comparison.Growth.TransactionGrowth)
	assert.Equal(t, 0.0, comparison.Growth.RevenueGrowth)
}

type fakeBatteries struct {
	batteries []backend.Battery
	err       error
}

func (f *fakeBatteries) ListBatteries(ctx context.Context, token string) ([]backend.Battery, error) {
	return f.batteries, f.err
}

func TestService_Summarize(t *testing.T) {
	ctx := context.Background()
	store := transactions.NewMemoryStore()

	for _, tr := range []*transactions.Transaction{
		tx(1, 25, transactions.StatusCompleted),
		tx(9, 10, transactions.StatusCompleted),
	} {
		_, err := store.Create(ctx, tr)
		require.NoError(t, err)
	}

	provider := &fakeBatteries{batteries: []backend.Battery{
		{Status: "Full"}, {Status: "Damaged"},
	}}

	svc := NewService(store, provider).WithClock(func() time.Time { return testNow })

	summary, err := svc.Summarize(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Stats.TotalTransactions)
	assert.Equal(t, 25.0, summary.Stats.TotalRevenue)
	assert.Equal(t, 2, summary.Stats.TotalBatteries)
	assert.Equal(t, 1, summary.Stats.DamagedBatteries)
	assert.Len(t, summary.TransactionsByDay, DayWindow)
	assert.Len(t, summary.RevenueByDay, DayWindow)
	assert.Equal(t, 1, summary.BatteryStatus.Full)
}

func TestService_Stats_BackendDown(t *testing.T) {
	ctx := context.Background()
	store := transactions.NewMemoryStore()
	provider := &fakeBatteries{err: &backend.Error{Op: "list_batteries", StatusCode: 502}}

	svc := NewService(store, provider).WithClock(func() time.Time { return testNow })

	stats, err := svc.Stats(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, stats.TotalBatteries)
}
