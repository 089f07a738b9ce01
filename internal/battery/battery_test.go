package battery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltswap/voltswap/internal/backend"
)

func TestSOH(t *testing.T) {
	// Fresh battery scores 100
	assert.Equal(t, 100, SOH(0, 2.5))

	// Unknown capacity scores 0
	assert.Equal(t, 0, SOH(5, 0))

	// Linear degradation: capacity 2.5 → 25-cycle life
	assert.Equal(t, 60, SOH(10, 2.5))
	assert.Equal(t, 96, SOH(1, 2.5))

	// Clamped at 0 once past end of life
	assert.Equal(t, 0, SOH(25, 2.5))
	assert.Equal(t, 0, SOH(1000, 2.5))
}

func TestSOH_Range(t *testing.T) {
	capacities := []float64{0, 0.5, 2.5, 30, 100}
	for _, capacity := range capacities {
		for usage := 0; usage <= 2000; usage += 37 {
			soh := SOH(usage, capacity)
			require.GreaterOrEqual(t, soh, 0, "usage=%d capacity=%v", usage, capacity)
			require.LessOrEqual(t, soh, 100, "usage=%d capacity=%v", usage, capacity)
		}
	}
}

func TestSOH_MonotonicInUsage(t *testing.T) {
	prev := 101
	for usage := 0; usage <= 500; usage++ {
		soh := SOH(usage, 30)
		require.LessOrEqual(t, soh, prev, "SOH increased at usage=%d", usage)
		prev = soh
	}
}

func TestBand_Boundaries(t *testing.T) {
	assert.Equal(t, BandExcellent, Band(100))
	assert.Equal(t, BandExcellent, Band(90))
	assert.Equal(t, BandGood, Band(89))
	assert.Equal(t, BandGood, Band(80))
	assert.Equal(t, BandFair, Band(79))
	assert.Equal(t, BandFair, Band(70))
	assert.Equal(t, BandPoor, Band(69))
	assert.Equal(t, BandPoor, Band(60))
	assert.Equal(t, BandCritical, Band(59))
	assert.Equal(t, BandCritical, Band(0))
}

func TestSummarize(t *testing.T) {
	batteries := []backend.Battery{
		{BatteryID: 1, Status: "Full", Capacity: 2.5, UsageCount: 0},     // SOH 100
		{BatteryID: 2, Status: "Charging", Capacity: 2.5, UsageCount: 10}, // SOH 60
		{BatteryID: 3, Status: "Full", Capacity: 0, UsageCount: 3},        // SOH 0, critical
	}

	summary := Summarize(batteries)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 53, summary.AverageSOH) // round(160/3)
	assert.Equal(t, 1, summary.CriticalCount)
	assert.Equal(t, 4, summary.AverageCycles) // round(13/3)
	assert.Equal(t, 2, summary.StatusBreakdown["Full"])
	assert.Equal(t, 1, summary.StatusBreakdown["Charging"])
	assert.Equal(t, 1, summary.BandBreakdown[string(BandExcellent)])
	assert.Equal(t, 1, summary.BandBreakdown[string(BandPoor)])
	assert.Equal(t, 1, summary.BandBreakdown[string(BandCritical)])
}

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(nil)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0, summary.AverageSOH)
	assert.Equal(t, 0, summary.CriticalCount)
}

func TestDistinct(t *testing.T) {
	batteries := []backend.Battery{
		{Model: "VS-48", Status: "Full", Capacity: 2.5},
		{Model: "VS-48", Status: "Charging", Capacity: 2.5},
		{Model: "VS-60", Status: "Full", Capacity: 3.0},
		{Model: "", Status: "Full", Capacity: 2.5},
	}

	assert.Equal(t, []string{"VS-48", "VS-60"}, DistinctModels(batteries))
	assert.Equal(t, []string{"Charging", "Full"}, DistinctStatuses(batteries))
	assert.Equal(t, []float64{2.5, 3.0}, DistinctCapacities(batteries))
}

type fakeProvider struct {
	batteries []backend.Battery
	err       error
}

func (f *fakeProvider) ListBatteries(ctx context.Context, token string) ([]backend.Battery, error) {
	return f.batteries, f.err
}

func TestService_Count_CaseInsensitive(t *testing.T) {
	provider := &fakeProvider{batteries: []backend.Battery{
		{Status: "FULL"}, {Status: "Full"}, {Status: "charging"},
	}}
	svc := NewService(provider, NewMemoryReturnStore(), nil)

	n, err := svc.Count(context.Background(), "", "full")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestService_CheckInAndUpdate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&fakeProvider{}, NewMemoryReturnStore(), nil)

	ret := &Return{
		BatteryID:     10,
		TransactionID: 200,
		Customer:      "Linh Tran",
		Phone:         "0901234567",
	}
	require.NoError(t, svc.CheckIn(ctx, ret))
	assert.Equal(t, ReturnPending, ret.Status)
	assert.False(t, ret.ReturnedAt.IsZero())

	// Duplicate check-in rejected
	err := svc.CheckIn(ctx, &Return{
		BatteryID: 10, TransactionID: 200, Customer: "Linh Tran", Phone: "0901234567",
	})
	assert.ErrorIs(t, err, ErrReturnExists)

	// Missing fields rejected
	err = svc.CheckIn(ctx, &Return{BatteryID: 11, TransactionID: 201, Customer: "X"})
	assert.Error(t, err)

	// Status update after inspection
	updated, err := svc.UpdateReturnStatus(ctx, 10, 200, ReturnDamaged)
	require.NoError(t, err)
	assert.Equal(t, ReturnDamaged, updated.Status)

	_, err = svc.UpdateReturnStatus(ctx, 10, 200, ReturnStatus("BROKEN"))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateReturnStatus(ctx, 99, 99, ReturnFull)
	assert.ErrorIs(t, err, ErrReturnNotFound)

	list, err := svc.ListReturns(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
