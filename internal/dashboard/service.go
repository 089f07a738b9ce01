package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/voltswap/voltswap/internal/backend"
	"github.com/voltswap/voltswap/internal/traces"
	"github.com/voltswap/voltswap/internal/transactions"
)

// TransactionSource supplies the transactions the aggregates derive from.
type TransactionSource interface {
	ListSince(ctx context.Context, since time.Time) ([]*transactions.Transaction, error)
}

// BatteryProvider fetches the battery fleet from the station backend.
type BatteryProvider interface {
	ListBatteries(ctx context.Context, token string) ([]backend.Battery, error)
}

// Service computes dashboard metrics on demand.
type Service struct {
	txs       TransactionSource
	batteries BatteryProvider
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a dashboard service.
func NewService(txs TransactionSource, batteries BatteryProvider) *Service {
	return &Service{
		txs:       txs,
		batteries: batteries,
		logger:    slog.Default(),
		now:       time.Now,
	}
}

// WithLogger sets a structured logger.
func (s *Service) WithLogger(l *slog.Logger) *Service {
	s.logger = l
	return s
}

// WithClock overrides the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Stats computes the headline stats: totals plus week-over-week growth.
// Battery totals degrade to zero when the backend is unreachable; the
// dashboard should render with partial data rather than fail outright.
func (s *Service) Stats(ctx context.Context, token string) (Stats, error) {
	now := s.now()

	txs, err := s.txs.ListSince(ctx, now.AddDate(0, 0, -2*DayWindow))
	if err != nil {
		return Stats{}, err
	}
	comparison := CompareWeeks(txs, now)

	stats := Stats{
		TotalTransactions: comparison.CurrentWeek.TotalTransactions,
		TransactionGrowth: comparison.Growth.TransactionGrowth,
		TotalRevenue:      comparison.CurrentWeek.TotalRevenue,
		RevenueGrowth:     comparison.Growth.RevenueGrowth,
	}

	batteries, err := s.batteries.ListBatteries(ctx, token)
	if err != nil {
		s.logger.Warn("battery fleet unavailable for dashboard", "error", err)
		return stats, nil
	}
	stats.TotalBatteries = len(batteries)
	stats.DamagedBatteries = BatteryBreakdown(batteries).Damaged
	return stats, nil
}

// TransactionsByDay returns the per-day transaction counts for the window.
func (s *Service) TransactionsByDay(ctx context.Context) ([]DayCount, error) {
	now := s.now()
	txs, err := s.txs.ListSince(ctx, now.AddDate(0, 0, -DayWindow))
	if err != nil {
		return nil, err
	}
	return CountByDay(txs, now), nil
}

// Revenue returns the per-day completed revenue for the window.
func (s *Service) Revenue(ctx context.Context) ([]DayRevenue, error) {
	now := s.now()
	txs, err := s.txs.ListSince(ctx, now.AddDate(0, 0, -DayWindow))
	if err != nil {
		return nil, err
	}
	return RevenueByDay(txs, now), nil
}

// BatteryStatus returns the fleet status breakdown.
func (s *Service) BatteryStatus(ctx context.Context, token string) (BatteryStatus, error) {
	batteries, err := s.batteries.ListBatteries(ctx, token)
	if err != nil {
		return BatteryStatus{}, err
	}
	return BatteryBreakdown(batteries), nil
}

// Weekly returns the week-over-week comparison.
func (s *Service) Weekly(ctx context.Context) (WeeklyComparison, error) {
	now := s.now()
	txs, err := s.txs.ListSince(ctx, now.AddDate(0, 0, -2*DayWindow))
	if err != nil {
		return WeeklyComparison{}, err
	}
	return CompareWeeks(txs, now), nil
}

// Summarize builds the whole dashboard payload in one call.
func (s *Service) Summarize(ctx context.Context, token string) (Summary, error) {
	ctx, span := traces.StartSpan(ctx, "dashboard.Summarize")
	defer span.End()

	now := s.now()

	txs, err := s.txs.ListSince(ctx, now.AddDate(0, 0, -2*DayWindow))
	if err != nil {
		return Summary{}, err
	}
	comparison := CompareWeeks(txs, now)

	summary := Summary{
		Stats: Stats{
			TotalTransactions: comparison.CurrentWeek.TotalTransactions,
			TransactionGrowth: comparison.Growth.TransactionGrowth,
			TotalRevenue:      comparison.CurrentWeek.TotalRevenue,
			RevenueGrowth:     comparison.Growth.RevenueGrowth,
		},
		TransactionsByDay: CountByDay(filterSince(txs, now.AddDate(0, 0, -DayWindow)), now),
		RevenueByDay:      RevenueByDay(filterSince(txs, now.AddDate(0, 0, -DayWindow)), now),
	}

	batteries, err := s.batteries.ListBatteries(ctx, token)
	if err != nil {
		s.logger.Warn("battery fleet unavailable for dashboard", "error", err)
		return summary, nil
	}
	summary.Stats.TotalBatteries = len(batteries)
	summary.BatteryStatus = BatteryBreakdown(batteries)
	summary.Stats.DamagedBatteries = summary.BatteryStatus.Damaged
	return summary, nil
}

func filterSince(txs []*transactions.Transaction, since time.Time) []*transactions.Transaction {
	var out []*transactions.Transaction
	for _, tx := range txs {
		if !tx.OccurredAt.Before(since) {
			out = append(out, tx)
		}
	}
	return out
}
