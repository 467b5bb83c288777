package expense

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	errs "github.com/frahmantamala/receipt-ledger/internal"
	"github.com/frahmantamala/receipt-ledger/internal/receipt"
	"github.com/frahmantamala/receipt-ledger/internal/transport"
	"github.com/frahmantamala/receipt-ledger/pkg/logger"
)

const (
	receiptFormField      = "receipt_image"
	defaultMaxUploadBytes = 10 << 20
	exportContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type ServiceAPI interface {
	CreateExpense(ctx context.Context, dto CreateExpenseDTO) (*Expense, error)
	GetExpense(ctx context.Context, id int64) (*Expense, error)
	ListExpenses(ctx context.Context, query ListExpensesQuery) (*ListExpensesResult, error)
	ExportExpenses(ctx context.Context, filter Filter) ([]*Expense, error)
	UpdateExpense(ctx context.Context, id int64, dto UpdateExpenseDTO) (*Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
	ScanReceipt(ctx context.Context, in ScanReceiptInput) (*ScanReceiptResult, error)
}

// UploadSpooler writes an incoming upload to a temporary file.
type UploadSpooler interface {
	Spool(r io.Reader, ext string) (string, error)
}

type Handler struct {
	*transport.BaseHandler
	Service        ServiceAPI
	uploads        UploadSpooler
	maxUploadBytes int64
}

func NewHandler(service ServiceAPI, uploads UploadSpooler, maxUploadBytes int64) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		BaseHandler:    transport.NewBaseHandler(lg),
		Service:        service,
		uploads:        uploads,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var dto CreateExpenseDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("CreateExpense: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	expense, err := h.Service.CreateExpense(r.Context(), dto)
	if err != nil {
		h.Logger.Error("CreateExpense: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateExpense: expense created successfully",
		"expense_id", expense.ID,
		"amount", expense.Amount.StringFixed(2),
		"category", expense.Category)

	h.WriteJSON(w, http.StatusCreated, expense)
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, err := h.ParseID(r, "id")
	if err != nil {
		h.Logger.Error("GetExpense: invalid expense ID", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	expense, err := h.Service.GetExpense(r.Context(), expenseID)
	if err != nil {
		h.Logger.Error("GetExpense: service error", "error", err, "expense_id", expenseID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, expense)
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r)
	if err != nil {
		h.Logger.Error("ListExpenses: invalid filter", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	limit, offset := h.Pagination(r)
	result, err := h.Service.ListExpenses(r.Context(), ListExpensesQuery{
		Filter: filter,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.Logger.Error("ListExpenses: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, err := h.ParseID(r, "id")
	if err != nil {
		h.Logger.Error("UpdateExpense: invalid expense ID", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateExpenseDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("UpdateExpense: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	expense, err := h.Service.UpdateExpense(r.Context(), expenseID, dto)
	if err != nil {
		h.Logger.Error("UpdateExpense: service error", "error", err, "expense_id", expenseID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, expense)
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, err := h.ParseID(r, "id")
	if err != nil {
		h.Logger.Error("DeleteExpense: invalid expense ID", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.DeleteExpense(r.Context(), expenseID); err != nil {
		h.Logger.Error("DeleteExpense: service error", "error", err, "expense_id", expenseID)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ScanReceipt accepts a multipart upload in the receipt_image field. The
// upload is checked to be an image before anything else happens.
func (h *Handler) ScanReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.Logger.Warn("ScanReceipt: invalid multipart form", "error", err)
		h.WriteError(w, http.StatusBadRequest, "receipt_image is required")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(receiptFormField)
	if err != nil {
		h.Logger.Warn("ScanReceipt: missing receipt image", "error", err)
		h.WriteError(w, http.StatusBadRequest, "receipt_image is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		h.Logger.Warn("ScanReceipt: failed to read upload", "error", err)
		h.WriteError(w, http.StatusBadRequest, "Failed to read uploaded image")
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		h.WriteError(w, http.StatusBadRequest, fmt.Sprintf("receipt_image must not exceed %d bytes", h.maxUploadBytes))
		return
	}

	if _, err := receipt.LoadImage(data); err != nil {
		h.Logger.Warn("ScanReceipt: upload is not an image", "error", err, "filename", header.Filename)
		h.WriteError(w, http.StatusBadRequest, "Invalid image file")
		return
	}

	ext := filepath.Ext(header.Filename)
	tempPath, err := h.uploads.Spool(bytes.NewReader(data), ext)
	if err != nil {
		h.Logger.Error("ScanReceipt: failed to spool upload", "error", err)
		h.WriteError(w, http.StatusBadRequest, "Failed to read uploaded image")
		return
	}

	result, err := h.Service.ScanReceipt(r.Context(), ScanReceiptInput{
		TempPath: tempPath,
		Ext:      ext,
		Username: errs.UsernameFromContext(r.Context()),
	})
	if err != nil {
		h.Logger.Error("ScanReceipt: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) ExportExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r)
	if err != nil {
		h.Logger.Error("ExportExpenses: invalid filter", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	expenses, err := h.Service.ExportExpenses(r.Context(), filter)
	if err != nil {
		h.Logger.Error("ExportExpenses: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, expenses); err != nil {
		h.Logger.Error("ExportExpenses: failed to build workbook", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("expenses-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", exportContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.Logger.Error("ExportExpenses: failed to write workbook", "error", err)
	}
}

// ParseFilter reads list filters from the query string. from and to are
// inclusive calendar dates in YYYY-MM-DD form.
func ParseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	filter := Filter{
		Username:      q.Get("username"),
		Category:      q.Get("category"),
		PaymentMethod: q.Get("payment_method"),
	}

	if from := q.Get("from"); from != "" {
		t, err := time.ParseInLocation("2006-01-02", from, time.Local)
		if err != nil {
			return Filter{}, errs.NewValidationFieldError("from", "from must be a date in YYYY-MM-DD format", errs.ErrCodeInvalidDate)
		}
		filter.From = &t
	}

	if to := q.Get("to"); to != "" {
		t, err := time.ParseInLocation("2006-01-02", to, time.Local)
		if err != nil {
			return Filter{}, errs.NewValidationFieldError("to", "to must be a date in YYYY-MM-DD format", errs.ErrCodeInvalidDate)
		}
		end := t.AddDate(0, 0, 1)
		filter.To = &end
	}

	return filter, nil
}
