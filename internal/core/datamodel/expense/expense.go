package expense

import (
	"encoding/json"
	"time"

	"github.com/frahmantamala/receipt-ledger/internal/core/datamodel/category"
	"github.com/frahmantamala/receipt-ledger/internal/core/datamodel/payment"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Expense struct {
	ID            int64             `gorm:"primaryKey"`
	UserID        *int64            `gorm:"column:user_id;index"`
	Username      *string           `gorm:"column:username;size:150;index"`
	ReceiptImage  *string           `gorm:"column:receipt_image;size:255"`
	MerchantName  *string           `gorm:"column:merchant_name;size:255"`
	Amount        decimal.Decimal   `gorm:"column:amount;type:numeric(10,2);not null"`
	Currency      string            `gorm:"column:currency;size:10;not null;default:USD"`
	Category      category.Category `gorm:"column:category;size:50;not null;default:other;index"`
	PaymentMethod payment.Method    `gorm:"column:payment_method;size:50;not null;default:cash"`
	Date          time.Time         `gorm:"column:date;not null;index"`
	Description   *string           `gorm:"column:description"`
	Items         json.RawMessage   `gorm:"column:items;type:jsonb"`
	Tax           decimal.Decimal   `gorm:"column:tax;type:numeric(10,2);not null;default:0"`
	Tip           decimal.Decimal   `gorm:"column:tip;type:numeric(10,2);not null;default:0"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Expense) TableName() string {
	return "expenses"
}

// BeforeSave stores dates in UTC. Range filters pass UTC bounds as well.
func (e *Expense) BeforeSave(tx *gorm.DB) error {
	e.Date = e.Date.UTC()
	return nil
}
