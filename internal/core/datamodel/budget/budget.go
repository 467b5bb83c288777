package budget

import (
	"time"

	"github.com/shopspring/decimal"
)

type Budget struct {
	ID        int64           `gorm:"primaryKey"`
	Username  *string         `gorm:"column:username;size:150;uniqueIndex:idx_budgets_username_category"`
	Category  string          `gorm:"column:category;size:50;not null;uniqueIndex:idx_budgets_username_category"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(10,2);not null"`
	Period    string          `gorm:"column:period;size:20;not null;default:monthly"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Budget) TableName() string {
	return "budgets"
}
