package category

import (
	"log/slog"

	categoryDatamodel "github.com/frahmantamala/receipt-ledger/internal/core/datamodel/category"
	"github.com/frahmantamala/receipt-ledger/internal/core/datamodel/payment"
)

// Service lists the fixed category and payment method enumerations.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	return &Service{logger: logger}
}

// GetCatalog returns every category and payment method in display order.
func (s *Service) GetCatalog() CatalogResponse {
	categories := categoryDatamodel.All()
	methods := payment.All()

	resp := CatalogResponse{
		Categories:     make([]Option, len(categories)),
		PaymentMethods: make([]Option, len(methods)),
	}
	for i, c := range categories {
		resp.Categories[i] = FromCategory(c)
	}
	for i, m := range methods {
		resp.PaymentMethods[i] = FromPaymentMethod(m)
	}

	s.logger.Debug("retrieved catalog",
		"categories", len(resp.Categories),
		"payment_methods", len(resp.PaymentMethods))
	return resp
}
