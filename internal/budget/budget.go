package budget

import (
	"time"

	budgetDatamodel "github.com/frahmantamala/receipt-ledger/internal/core/datamodel/budget"
	"github.com/shopspring/decimal"
)

// Period is how often a budget resets.
type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"

	DefaultPeriod = Monthly
)

var periods = []Period{Daily, Weekly, Monthly, Yearly}

func PeriodValues() []string {
	out := make([]string, len(periods))
	for i, p := range periods {
		out[i] = string(p)
	}
	return out
}

// Window is the rolling span spending is measured over. Unrecognised
// periods fall back to 30 days.
func (p Period) Window() time.Duration {
	switch p {
	case Daily:
		return 24 * time.Hour
	case Weekly:
		return 7 * 24 * time.Hour
	case Yearly:
		return 365 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

type Budget struct {
	ID        int64           `json:"id"`
	Username  *string         `json:"username"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Period    Period          `json:"period"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Status is spending against a single budget.
type Status struct {
	ID         int64   `json:"id"`
	Category   string  `json:"category"`
	Budget     float64 `json:"budget"`
	Spent      float64 `json:"spent"`
	Remaining  float64 `json:"remaining"`
	Percentage float64 `json:"percentage"`
	Period     Period  `json:"period"`
	IsExceeded bool    `json:"is_exceeded"`
}

var hundred = decimal.NewFromInt(100)

// NewStatus compares spent with the budget amount. Percentage is zero for
// budgets that are not positive. A budget is exceeded only when spent is
// strictly greater than its amount.
func NewStatus(b *Budget, spent decimal.Decimal) Status {
	percentage := decimal.Zero
	if b.Amount.IsPositive() {
		percentage = spent.Div(b.Amount).Mul(hundred)
	}
	return Status{
		ID:         b.ID,
		Category:   b.Category,
		Budget:     b.Amount.InexactFloat64(),
		Spent:      spent.InexactFloat64(),
		Remaining:  b.Amount.Sub(spent).InexactFloat64(),
		Percentage: percentage.InexactFloat64(),
		Period:     b.Period,
		IsExceeded: spent.GreaterThan(b.Amount),
	}
}

func ToDataModel(b *Budget) *budgetDatamodel.Budget {
	return &budgetDatamodel.Budget{
		ID:        b.ID,
		Username:  b.Username,
		Category:  b.Category,
		Amount:    b.Amount,
		Period:    string(b.Period),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func FromDataModel(b *budgetDatamodel.Budget) *Budget {
	return &Budget{
		ID:        b.ID,
		Username:  b.Username,
		Category:  b.Category,
		Amount:    b.Amount,
		Period:    Period(b.Period),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func FromDataModelSlice(budgets []*budgetDatamodel.Budget) []*Budget {
	result := make([]*Budget, len(budgets))
	for i, b := range budgets {
		result[i] = FromDataModel(b)
	}
	return result
}
