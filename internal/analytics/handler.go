package analytics

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/receipt-ledger/internal/transport"
	"github.com/frahmantamala/receipt-ledger/pkg/logger"
)

type ServiceAPI interface {
	Analyze(ctx context.Context, period string) (*Report, error)
	Summary(ctx context.Context) (*Summary, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")

	report, err := h.Service.Analyze(r.Context(), period)
	if err != nil {
		h.Logger.Error("Analytics: service error", "error", err, "period", period)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Summary(r.Context())
	if err != nil {
		h.Logger.Error("Summary: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, summary)
}
