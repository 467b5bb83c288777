package expense

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	errs "github.com/frahmantamala/receipt-ledger/internal"
	"github.com/frahmantamala/receipt-ledger/internal/core/common/validation"
	"github.com/frahmantamala/receipt-ledger/internal/core/datamodel/category"
	"github.com/frahmantamala/receipt-ledger/internal/core/datamodel/payment"
	"github.com/frahmantamala/receipt-ledger/internal/receipt"
	"github.com/shopspring/decimal"
)

// DateInput accepts RFC 3339 timestamps as well as plain YYYY-MM-DD dates.
type DateInput struct {
	time.Time
}

var dateInputLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (d *DateInput) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range dateInputLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

type CreateExpenseDTO struct {
	UserID        *int64           `json:"user_id"`
	Username      *string          `json:"username"`
	MerchantName  *string          `json:"merchant_name"`
	Amount        *decimal.Decimal `json:"amount"`
	Currency      string           `json:"currency"`
	Category      string           `json:"category"`
	PaymentMethod string           `json:"payment_method"`
	Date          *DateInput       `json:"date"`
	Description   *string          `json:"description"`
	Items         json.RawMessage  `json:"items"`
	Tax           *decimal.Decimal `json:"tax"`
	Tip           *decimal.Decimal `json:"tip"`
}

func (dto CreateExpenseDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("amount", dto.Amount).
		Required().
		Money()

	validator.Field("tax", dto.Tax).
		Money().
		NotNegative()

	validator.Field("tip", dto.Tip).
		Money().
		NotNegative()

	validator.Field("merchant_name", dto.MerchantName).
		MaxLength(255)

	validator.Field("username", dto.Username).
		MaxLength(150)

	validator.Field("items", dto.Items).
		Custom(validateItems)

	if dto.Currency != "" {
		validator.Field("currency", normalizeCurrency(dto.Currency)).
			MinLength(3).
			MaxLength(10)
	}

	if err := validator.Validate(); err != nil {
		return err
	}
	return nil
}

// ToExpense applies defaults. username is used when the body carries none.
func (dto CreateExpenseDTO) ToExpense(username string, now time.Time) *Expense {
	e := &Expense{
		UserID:        dto.UserID,
		Username:      dto.Username,
		MerchantName:  trimmed(dto.MerchantName),
		Amount:        *dto.Amount,
		Currency:      receipt.DefaultCurrency,
		Category:      category.Coerce(dto.Category),
		PaymentMethod: payment.Cash,
		Date:          now,
		Description:   dto.Description,
		Items:         normalizeItems(dto.Items),
		Tax:           decimal.Zero,
		Tip:           decimal.Zero,
	}
	if e.Username == nil && username != "" {
		e.Username = &username
	}
	if dto.Currency != "" {
		e.Currency = normalizeCurrency(dto.Currency)
	}
	if dto.PaymentMethod != "" {
		e.PaymentMethod = payment.Coerce(dto.PaymentMethod)
	}
	if dto.Date != nil && !dto.Date.IsZero() {
		e.Date = dto.Date.Time
	}
	if dto.Tax != nil {
		e.Tax = *dto.Tax
	}
	if dto.Tip != nil {
		e.Tip = *dto.Tip
	}
	return e
}

// UpdateExpenseDTO is a partial update. Nil fields are left untouched.
type UpdateExpenseDTO struct {
	Username      *string          `json:"username"`
	MerchantName  *string          `json:"merchant_name"`
	Amount        *decimal.Decimal `json:"amount"`
	Currency      *string          `json:"currency"`
	Category      *string          `json:"category"`
	PaymentMethod *string          `json:"payment_method"`
	Date          *DateInput       `json:"date"`
	Description   *string          `json:"description"`
	Items         json.RawMessage  `json:"items"`
	Tax           *decimal.Decimal `json:"tax"`
	Tip           *decimal.Decimal `json:"tip"`
}

func (dto UpdateExpenseDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("amount", dto.Amount).
		Money()

	validator.Field("tax", dto.Tax).
		Money().
		NotNegative()

	validator.Field("tip", dto.Tip).
		Money().
		NotNegative()

	validator.Field("merchant_name", dto.MerchantName).
		MaxLength(255)

	validator.Field("username", dto.Username).
		MaxLength(150)

	validator.Field("items", dto.Items).
		Custom(validateItems)

	if dto.Currency != nil {
		validator.Field("currency", normalizeCurrency(*dto.Currency)).
			Required().
			MinLength(3).
			MaxLength(10)
	}

	if err := validator.Validate(); err != nil {
		return err
	}
	return nil
}

func (dto UpdateExpenseDTO) Apply(e *Expense) {
	if dto.Username != nil {
		e.Username = dto.Username
	}
	if dto.MerchantName != nil {
		e.MerchantName = trimmed(dto.MerchantName)
	}
	if dto.Amount != nil {
		e.Amount = *dto.Amount
	}
	if dto.Currency != nil {
		e.Currency = normalizeCurrency(*dto.Currency)
	}
	if dto.Category != nil {
		e.Category = category.Coerce(*dto.Category)
	}
	if dto.PaymentMethod != nil {
		e.PaymentMethod = payment.Coerce(*dto.PaymentMethod)
	}
	if dto.Date != nil && !dto.Date.IsZero() {
		e.Date = dto.Date.Time
	}
	if dto.Description != nil {
		e.Description = dto.Description
	}
	if dto.Items != nil {
		e.Items = normalizeItems(dto.Items)
	}
	if dto.Tax != nil {
		e.Tax = *dto.Tax
	}
	if dto.Tip != nil {
		e.Tip = *dto.Tip
	}
}

type ListExpensesQuery struct {
	Filter Filter
	Limit  int
	Offset int
}

type ListExpensesResult struct {
	Expenses []*Expense `json:"expenses"`
	Total    int64      `json:"total"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}

// ScanReceiptInput points at an upload already spooled to the media store.
// ScanReceipt removes TempPath before returning.
type ScanReceiptInput struct {
	TempPath string
	Ext      string
	Username string
}

type ScanReceiptResult struct {
	Message       string          `json:"message"`
	Expense       *Expense        `json:"expense"`
	ExtractedData *receipt.Fields `json:"extracted_data"`
	RawText       *string         `json:"raw_text"`
}

// Domain errors
var (
	ErrExpenseNotFound = errors.New("expense not found")
)

func validateItems(value interface{}) *errs.AppError {
	raw, _ := value.(json.RawMessage)
	trimmedRaw := bytes.TrimSpace(raw)
	if len(trimmedRaw) == 0 || bytes.Equal(trimmedRaw, []byte("null")) {
		return nil
	}
	if trimmedRaw[0] != '[' {
		return errs.NewValidationFieldError("items", "items must be a list", errs.ErrCodeValidationFailed)
	}
	return nil
}

func normalizeItems(raw json.RawMessage) json.RawMessage {
	trimmedRaw := bytes.TrimSpace(raw)
	if len(trimmedRaw) == 0 || bytes.Equal(trimmedRaw, []byte("null")) {
		return nil
	}
	return json.RawMessage(trimmedRaw)
}

func normalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
