package expense

import (
	"encoding/json"
	"regexp"
	"strconv"
	"time"

	"github.com/frahmantamala/receipt-ledger/internal/core/datamodel/category"
	expenseDatamodel "github.com/frahmantamala/receipt-ledger/internal/core/datamodel/expense"
	"github.com/frahmantamala/receipt-ledger/internal/core/datamodel/payment"
	"github.com/frahmantamala/receipt-ledger/internal/receipt"
	"github.com/shopspring/decimal"
)

type Expense struct {
	ID            int64             `json:"id"`
	UserID        *int64            `json:"user_id"`
	Username      *string           `json:"username"`
	ReceiptImage  *string           `json:"receipt_image"`
	MerchantName  *string           `json:"merchant_name"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	Category      category.Category `json:"category"`
	PaymentMethod payment.Method    `json:"payment_method"`
	Date          time.Time         `json:"date"`
	Description   *string           `json:"description"`
	Items         json.RawMessage   `json:"items"`
	Tax           decimal.Decimal   `json:"tax"`
	Tip           decimal.Decimal   `json:"tip"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Filter narrows listing and aggregation queries. From is inclusive, To exclusive.
type Filter struct {
	Username      string
	Category      string
	PaymentMethod string
	From          *time.Time
	To            *time.Time
}

// GroupKey names a column totals can be grouped by.
type GroupKey string

const (
	GroupByCategory      GroupKey = "category"
	GroupByPaymentMethod GroupKey = "payment_method"
)

type Totals struct {
	Amount decimal.Decimal
	Count  int64
}

type GroupTotal struct {
	Key    string
	Amount decimal.Decimal
	Count  int64
}

const ledgerTimeLayout = "2006-01-02 15:04:05"

// LedgerHeaders are the spreadsheet columns written for every expense.
var LedgerHeaders = []string{
	"ID", "Date", "Merchant", "Amount", "Currency", "Category",
	"Payment Method", "Tax", "Tip", "Description", "Created At",
}

// LedgerRow flattens e into LedgerHeaders order.
func (e *Expense) LedgerRow() []any {
	return []any{
		strconv.FormatInt(e.ID, 10),
		formatLedgerTime(e.Date),
		deref(e.MerchantName),
		e.Amount.StringFixed(2),
		e.Currency,
		string(e.Category),
		string(e.PaymentMethod),
		e.Tax.StringFixed(2),
		e.Tip.StringFixed(2),
		deref(e.Description),
		formatLedgerTime(e.CreatedAt),
	}
}

var receiptDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ResolveReceiptDate turns an extracted YYYY-MM-DD date into local midnight.
// Anything else yields now.
func ResolveReceiptDate(date *string, now time.Time) time.Time {
	if date == nil || !receiptDatePattern.MatchString(*date) {
		return now
	}
	t, err := time.ParseInLocation("2006-01-02", *date, time.Local)
	if err != nil {
		return now
	}
	return t
}

// NewFromReceipt builds an unsaved expense from cleaned extraction fields.
func NewFromReceipt(f receipt.Fields, username string, now time.Time) *Expense {
	e := &Expense{
		MerchantName:  f.MerchantName,
		Amount:        f.Amount,
		Currency:      f.Currency,
		Category:      f.Category,
		PaymentMethod: f.PaymentMethod,
		Date:          ResolveReceiptDate(f.Date, now),
		Description:   f.Description,
		Tax:           f.Tax,
		Tip:           f.Tip,
	}
	if username != "" {
		e.Username = &username
	}
	if f.Items != nil {
		if raw, err := json.Marshal(f.Items); err == nil {
			e.Items = raw
		}
	}
	return e
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	return &expenseDatamodel.Expense{
		ID:            e.ID,
		UserID:        e.UserID,
		Username:      e.Username,
		ReceiptImage:  e.ReceiptImage,
		MerchantName:  e.MerchantName,
		Amount:        e.Amount,
		Currency:      e.Currency,
		Category:      e.Category,
		PaymentMethod: e.PaymentMethod,
		Date:          e.Date,
		Description:   e.Description,
		Items:         e.Items,
		Tax:           e.Tax,
		Tip:           e.Tip,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func FromDataModel(e *expenseDatamodel.Expense) *Expense {
	return &Expense{
		ID:            e.ID,
		UserID:        e.UserID,
		Username:      e.Username,
		ReceiptImage:  e.ReceiptImage,
		MerchantName:  e.MerchantName,
		Amount:        e.Amount,
		Currency:      e.Currency,
		Category:      e.Category,
		PaymentMethod: e.PaymentMethod,
		Date:          e.Date,
		Description:   e.Description,
		Items:         e.Items,
		Tax:           e.Tax,
		Tip:           e.Tip,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func FromDataModelSlice(expenses []*expenseDatamodel.Expense) []*Expense {
	result := make([]*Expense, len(expenses))
	for i, e := range expenses {
		result[i] = FromDataModel(e)
	}
	return result
}

func formatLedgerTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(ledgerTimeLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
