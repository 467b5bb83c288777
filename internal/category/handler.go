package category

import (
	"net/http"

	"github.com/frahmantamala/receipt-ledger/internal/transport"
)

type ServiceAPI interface {
	GetCatalog() CatalogResponse
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, h.Service.GetCatalog())
}
