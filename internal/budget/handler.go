package budget

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/receipt-ledger/internal/transport"
	"github.com/frahmantamala/receipt-ledger/pkg/logger"
)

type ServiceAPI interface {
	CreateBudget(ctx context.Context, dto CreateBudgetDTO) (*Budget, error)
	GetBudget(ctx context.Context, id int64) (*Budget, error)
	ListBudgets(ctx context.Context, username string) ([]*Budget, error)
	UpdateBudget(ctx context.Context, id int64, dto UpdateBudgetDTO) (*Budget, error)
	DeleteBudget(ctx context.Context, id int64) error
	Status(ctx context.Context) ([]Status, error)
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

func (h *Handler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var dto CreateBudgetDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("CreateBudget: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	budget, err := h.Service.CreateBudget(r.Context(), dto)
	if err != nil {
		h.Logger.Error("CreateBudget: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, budget)
}

func (h *Handler) GetBudget(w http.ResponseWriter, r *http.Request) {
	budgetID, err := h.ParseID(r, "id")
	if err != nil {
		h.Logger.Error("GetBudget: invalid budget ID", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	budget, err := h.Service.GetBudget(r.Context(), budgetID)
	if err != nil {
		h.Logger.Error("GetBudget: service error", "error", err, "budget_id", budgetID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, budget)
}

func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.Service.ListBudgets(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		h.Logger.Error("ListBudgets: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, budgets)
}

func (h *Handler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	budgetID, err := h.ParseID(r, "id")
	if err != nil {
		h.Logger.Error("UpdateBudget: invalid budget ID", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateBudgetDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("UpdateBudget: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	budget, err := h.Service.UpdateBudget(r.Context(), budgetID, dto)
	if err != nil {
		h.Logger.Error("UpdateBudget: service error", "error", err, "budget_id", budgetID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, budget)
}

func (h *Handler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	budgetID, err := h.ParseID(r, "id")
	if err != nil {
		h.Logger.Error("DeleteBudget: invalid budget ID", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.DeleteBudget(r.Context(), budgetID); err != nil {
		h.Logger.Error("DeleteBudget: service error", "error", err, "budget_id", budgetID)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.Service.Status(r.Context())
	if err != nil {
		h.Logger.Error("Status: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, statuses)
}
