package analytics

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
	PeriodAll   = "all"

	DefaultPeriod = PeriodMonth

	TrendBuckets      = 12
	TrendBucketDays   = 30
	TopMerchantsLimit = 10

	trendLabelLayout = "Jan 2006"
)

// Lookback returns the rolling window for period. Unknown periods have no
// lower bound.
func Lookback(period string) (time.Duration, bool) {
	switch period {
	case PeriodDay:
		return 24 * time.Hour, true
	case PeriodWeek:
		return 7 * 24 * time.Hour, true
	case PeriodMonth:
		return 30 * 24 * time.Hour, true
	case PeriodYear:
		return 365 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

type Breakdown struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
	Count  int64   `json:"count"`
}

type TrendPoint struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
	Count  int64   `json:"count"`
}

type MerchantTotal struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Count  int64   `json:"count"`
}

type Report struct {
	TotalSpent        float64              `json:"total_spent"`
	ExpenseCount      int64                `json:"expense_count"`
	CategoryBreakdown map[string]Breakdown `json:"category_breakdown"`
	MonthlyTrend      []TrendPoint         `json:"monthly_trend"`
	TopMerchants      []MerchantTotal      `json:"top_merchants"`
	PaymentBreakdown  map[string]Breakdown `json:"payment_breakdown"`
	Period            string               `json:"period"`
}

type WindowTotal struct {
	Total float64 `json:"total"`
	Count int64   `json:"count"`
}

type Summary struct {
	Today   WindowTotal `json:"today"`
	Week    WindowTotal `json:"week"`
	Month   WindowTotal `json:"month"`
	AllTime WindowTotal `json:"all_time"`
}

func toFloat(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
