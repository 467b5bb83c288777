package category

import (
	categoryDatamodel "github.com/frahmantamala/receipt-ledger/internal/core/datamodel/category"
	"github.com/frahmantamala/receipt-ledger/internal/core/datamodel/payment"
)

// Option is one enumeration member paired with its display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func FromCategory(c categoryDatamodel.Category) Option {
	return Option{Value: string(c), Label: c.Label()}
}

func FromPaymentMethod(m payment.Method) Option {
	return Option{Value: string(m), Label: m.Label()}
}
