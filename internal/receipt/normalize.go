package receipt

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/frahmantamala/receipt-ledger/internal/core/datamodel/category"
	"github.com/frahmantamala/receipt-ledger/internal/core/datamodel/payment"
	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

// Fields is a cleaned extraction result. Every field holds a usable value
// regardless of what the model returned.
type Fields struct {
	MerchantName  *string           `json:"merchant_name"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	Date          *string           `json:"date"`
	Category      category.Category `json:"category"`
	PaymentMethod payment.Method    `json:"payment_method"`
	Tax           decimal.Decimal   `json:"tax"`
	Tip           decimal.Decimal   `json:"tip"`
	Items         any               `json:"items"`
	Description   *string           `json:"description"`
}

// Normalize cleans a raw extraction map. It never fails: malformed values
// fall back to 0.00, "USD", "other" or nil.
func Normalize(raw map[string]any) Fields {
	items, ok := raw["items"]
	if !ok || items == nil {
		items = []any{}
	}

	return Fields{
		MerchantName:  optionalText(raw["merchant_name"]),
		Amount:        ParseMoney(raw["amount"]),
		Currency:      normalizeCurrency(raw["currency"]),
		Date:          passthroughText(raw["date"]),
		Category:      category.Coerce(text(raw["category"])),
		PaymentMethod: payment.Coerce(text(raw["payment_method"])),
		Tax:           ParseMoney(raw["tax"]),
		Tip:           ParseMoney(raw["tip"]),
		Items:         items,
		Description:   optionalText(raw["description"]),
	}
}

// Map renders f back into the raw shape accepted by Normalize.
func (f Fields) Map() map[string]any {
	m := map[string]any{
		"amount":         f.Amount.StringFixed(2),
		"currency":       f.Currency,
		"category":       string(f.Category),
		"payment_method": string(f.PaymentMethod),
		"tax":            f.Tax.StringFixed(2),
		"tip":            f.Tip.StringFixed(2),
		"items":          f.Items,
		"merchant_name":  nil,
		"date":           nil,
		"description":    nil,
	}
	if f.MerchantName != nil {
		m["merchant_name"] = *f.MerchantName
	}
	if f.Date != nil {
		m["date"] = *f.Date
	}
	if f.Description != nil {
		m["description"] = *f.Description
	}
	return m
}

// maxMoneyExponent bounds the base-10 exponent ParseMoney will rescale.
const maxMoneyExponent = 32

// ParseMoney reads a non-negative two-place amount from a loosely typed
// value. Currency symbols, thousands separators and spaces are stripped from
// strings. Anything unparseable, negative, falsy or with an extreme exponent
// yields zero.
func ParseMoney(v any) decimal.Decimal {
	var (
		d   decimal.Decimal
		err error
	)

	switch x := v.(type) {
	case nil, bool:
		return decimal.Zero
	case decimal.Decimal:
		d = x
	case json.Number:
		d, err = decimal.NewFromString(stripMoney(x.String()))
	case string:
		d, err = decimal.NewFromString(stripMoney(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero
		}
		d = decimal.NewFromFloat(x)
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return decimal.Zero
		}
		d = decimal.NewFromFloat32(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	default:
		return decimal.Zero
	}

	if err != nil || d.IsNegative() || d.Exponent() > maxMoneyExponent || d.Exponent() < -maxMoneyExponent {
		return decimal.Zero
	}
	return d.Round(2)
}

func stripMoney(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)
}

func normalizeCurrency(v any) string {
	c := strings.ToUpper(strings.TrimSpace(text(v)))
	if n := utf8.RuneCountInString(c); n < 3 || n > 10 {
		return DefaultCurrency
	}
	return c
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func optionalText(v any) *string {
	s := strings.TrimSpace(text(v))
	if s == "" {
		return nil
	}
	return &s
}

func passthroughText(v any) *string {
	if v == nil {
		return nil
	}
	s := text(v)
	return &s
}
