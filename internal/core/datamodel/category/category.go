package category

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Category is the closed set of expense categories.
type Category string

const (
	Food          Category = "food"
	Transport     Category = "transport"
	Shopping      Category = "shopping"
	Entertainment Category = "entertainment"
	Utilities     Category = "utilities"
	Healthcare    Category = "healthcare"
	Education     Category = "education"
	Other         Category = "other"
)

var all = []Category{Food, Transport, Shopping, Entertainment, Utilities, Healthcare, Education, Other}

var labels = map[Category]string{
	Food:          "Food & Dining",
	Transport:     "Transportation",
	Shopping:      "Shopping",
	Entertainment: "Entertainment",
	Utilities:     "Utilities",
	Healthcare:    "Healthcare",
	Education:     "Education",
	Other:         "Other",
}

// All returns every category in display order.
func All() []Category {
	out := make([]Category, len(all))
	copy(out, all)
	return out
}

func Values() []string {
	out := make([]string, len(all))
	for i, c := range all {
		out[i] = string(c)
	}
	return out
}

func (c Category) Label() string {
	return labels[c]
}

func (c Category) Valid() bool {
	_, ok := labels[c]
	return ok
}

// Parse matches s case-insensitively against the enumeration.
func Parse(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

// Coerce returns the matching category or Other.
func Coerce(s string) Category {
	if c, ok := Parse(s); ok {
		return c
	}
	return Other
}

func (c *Category) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = Other
	case string:
		*c = Coerce(v)
	case []byte:
		*c = Coerce(string(v))
	default:
		return fmt.Errorf("category: unsupported scan type %T", src)
	}
	return nil
}

func (c Category) Value() (driver.Value, error) {
	return string(c), nil
}
