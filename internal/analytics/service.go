package analytics

import (
	"context"
	"log/slog"
	"time"

	errs "github.com/frahmantamala/receipt-ledger/internal"
	"github.com/frahmantamala/receipt-ledger/internal/core/datamodel/category"
	"github.com/frahmantamala/receipt-ledger/internal/core/datamodel/payment"
	"github.com/frahmantamala/receipt-ledger/internal/expense"
)

// Reader is the aggregation side of the expense store.
type Reader interface {
	Totals(ctx context.Context, filter expense.Filter) (expense.Totals, error)
	TotalsBy(ctx context.Context, key expense.GroupKey, filter expense.Filter) ([]expense.GroupTotal, error)
	TopMerchants(ctx context.Context, filter expense.Filter, limit int) ([]expense.GroupTotal, error)
}

type Service struct {
	reader Reader
	logger *slog.Logger
	now    func() time.Time
}

func NewService(reader Reader, logger *slog.Logger) *Service {
	return &Service{
		reader: reader,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source windows are measured from.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Analyze reports spending over the rolling window named by period. The
// monthly trend always covers the trailing twelve 30-day buckets.
func (s *Service) Analyze(ctx context.Context, period string) (*Report, error) {
	if period == "" {
		period = DefaultPeriod
	}
	now := s.now()

	var filter expense.Filter
	if window, ok := Lookback(period); ok {
		from := now.Add(-window)
		filter.From = &from
	}

	totals, err := s.reader.Totals(ctx, filter)
	if err != nil {
		return nil, s.failed("total", err)
	}

	categories, err := s.categoryBreakdown(ctx, filter)
	if err != nil {
		return nil, s.failed("category breakdown", err)
	}

	payments, err := s.paymentBreakdown(ctx, filter)
	if err != nil {
		return nil, s.failed("payment breakdown", err)
	}

	trend, err := s.monthlyTrend(ctx, now)
	if err != nil {
		return nil, s.failed("monthly trend", err)
	}

	merchants, err := s.reader.TopMerchants(ctx, filter, TopMerchantsLimit)
	if err != nil {
		return nil, s.failed("top merchants", err)
	}
	top := make([]MerchantTotal, 0, len(merchants))
	for _, m := range merchants {
		top = append(top, MerchantTotal{Name: m.Key, Amount: toFloat(m.Amount), Count: m.Count})
	}

	return &Report{
		TotalSpent:        toFloat(totals.Amount),
		ExpenseCount:      totals.Count,
		CategoryBreakdown: categories,
		MonthlyTrend:      trend,
		TopMerchants:      top,
		PaymentBreakdown:  payments,
		Period:            period,
	}, nil
}

// Summary reports calendar aligned totals in the local time zone.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	now := s.now()
	y, m, d := now.Date()
	loc := now.Location()

	todayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)
	tomorrow := todayStart.AddDate(0, 0, 1)
	weekStart := todayStart.AddDate(0, 0, -((int(now.Weekday()) + 6) % 7))
	monthStart := time.Date(y, m, 1, 0, 0, 0, 0, loc)

	var (
		summary Summary
		err     error
	)
	if summary.Today, err = s.window(ctx, "today", expense.Filter{From: &todayStart, To: &tomorrow}); err != nil {
		return nil, err
	}
	if summary.Week, err = s.window(ctx, "week", expense.Filter{From: &weekStart}); err != nil {
		return nil, err
	}
	if summary.Month, err = s.window(ctx, "month", expense.Filter{From: &monthStart}); err != nil {
		return nil, err
	}
	if summary.AllTime, err = s.window(ctx, "all_time", expense.Filter{}); err != nil {
		return nil, err
	}

	return &summary, nil
}

func (s *Service) window(ctx context.Context, name string, filter expense.Filter) (WindowTotal, error) {
	totals, err := s.reader.Totals(ctx, filter)
	if err != nil {
		return WindowTotal{}, s.failed(name+" summary", err)
	}
	return WindowTotal{Total: toFloat(totals.Amount), Count: totals.Count}, nil
}

func (s *Service) categoryBreakdown(ctx context.Context, filter expense.Filter) (map[string]Breakdown, error) {
	groups, err := s.reader.TotalsBy(ctx, expense.GroupByCategory, filter)
	if err != nil {
		return nil, err
	}
	byKey := indexGroups(groups, func(key string) string { return string(category.Coerce(key)) })

	out := make(map[string]Breakdown, len(category.All()))
	for _, c := range category.All() {
		g := byKey[string(c)]
		out[string(c)] = Breakdown{Label: c.Label(), Amount: toFloat(g.Amount), Count: g.Count}
	}
	return out, nil
}

func (s *Service) paymentBreakdown(ctx context.Context, filter expense.Filter) (map[string]Breakdown, error) {
	groups, err := s.reader.TotalsBy(ctx, expense.GroupByPaymentMethod, filter)
	if err != nil {
		return nil, err
	}
	byKey := indexGroups(groups, func(key string) string { return string(payment.Coerce(key)) })

	out := make(map[string]Breakdown, len(payment.All()))
	for _, p := range payment.All() {
		g := byKey[string(p)]
		out[string(p)] = Breakdown{Label: p.Label(), Amount: toFloat(g.Amount), Count: g.Count}
	}
	return out, nil
}

// monthlyTrend returns TrendBuckets contiguous 30-day buckets, oldest first.
// Bucket i covers [now-30(i+1)d, now-30i d).
func (s *Service) monthlyTrend(ctx context.Context, now time.Time) ([]TrendPoint, error) {
	trend := make([]TrendPoint, TrendBuckets)
	for i := 0; i < TrendBuckets; i++ {
		end := now.Add(-time.Duration(TrendBucketDays*i) * 24 * time.Hour)
		start := now.Add(-time.Duration(TrendBucketDays*(i+1)) * 24 * time.Hour)

		totals, err := s.reader.Totals(ctx, expense.Filter{From: &start, To: &end})
		if err != nil {
			return nil, err
		}

		trend[TrendBuckets-1-i] = TrendPoint{
			Month:  start.Format(trendLabelLayout),
			Amount: toFloat(totals.Amount),
			Count:  totals.Count,
		}
	}
	return trend, nil
}

func (s *Service) failed(what string, err error) error {
	s.logger.Error("failed to compute analytics", "part", what, "error", err)
	return errs.NewInternalError("Failed to compute analytics", err)
}

// indexGroups keys groups by their coerced value, merging stray stored
// values into the enumeration member they coerce to.
func indexGroups(groups []expense.GroupTotal, coerce func(string) string) map[string]expense.GroupTotal {
	out := make(map[string]expense.GroupTotal, len(groups))
	for _, g := range groups {
		g.Key = coerce(g.Key)
		if existing, ok := out[g.Key]; ok {
			g.Amount = g.Amount.Add(existing.Amount)
			g.Count += existing.Count
		}
		out[g.Key] = g
	}
	return out
}
