package payment

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Method is the closed set of payment methods.
type Method string

const (
	Cash       Method = "cash"
	CreditCard Method = "credit_card"
	DebitCard  Method = "debit_card"
	UPI        Method = "upi"
	Other      Method = "other"
)

var all = []Method{Cash, CreditCard, DebitCard, UPI, Other}

var labels = map[Method]string{
	Cash:       "Cash",
	CreditCard: "Credit Card",
	DebitCard:  "Debit Card",
	UPI:        "UPI",
	Other:      "Other",
}

func All() []Method {
	out := make([]Method, len(all))
	copy(out, all)
	return out
}

func Values() []string {
	out := make([]string, len(all))
	for i, m := range all {
		out[i] = string(m)
	}
	return out
}

func (m Method) Label() string {
	return labels[m]
}

func (m Method) Valid() bool {
	_, ok := labels[m]
	return ok
}

func Parse(s string) (Method, bool) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	return m, m.Valid()
}

// Coerce returns the matching method or Other.
func Coerce(s string) Method {
	if m, ok := Parse(s); ok {
		return m
	}
	return Other
}

func (m *Method) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = Other
	case string:
		*m = Coerce(v)
	case []byte:
		*m = Coerce(string(v))
	default:
		return fmt.Errorf("payment method: unsupported scan type %T", src)
	}
	return nil
}

func (m Method) Value() (driver.Value, error) {
	return string(m), nil
}
