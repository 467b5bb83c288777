package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	errs "github.com/frahmantamala/receipt-ledger/internal"
	"github.com/frahmantamala/receipt-ledger/pkg/logger"
	"github.com/go-chi/chi"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes a validation style error response
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.Logger.Warn("http error", "status", status, "message", message)

	errType := errs.ErrorTypeValidation
	code := errs.ErrCodeValidationFailed
	switch {
	case status == http.StatusNotFound:
		errType = errs.ErrorTypeNotFound
		code = "NOT_FOUND"
	case status >= http.StatusInternalServerError:
		errType = errs.ErrorTypeInternal
		code = errs.ErrCodeInternal
	}

	h.writeAppError(w, &errs.AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		StatusCode: status,
	})
}

// HandleServiceError maps service errors onto HTTP responses. Anything that
// is not an AppError is reported as a 500.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, err error) {
	var appErr *errs.AppError
	if !errors.As(err, &appErr) {
		h.Logger.Error("unhandled service error", "error", err)
		appErr = errs.NewInternalError("Internal server error", err)
	}
	h.writeAppError(w, appErr)
}

func (h *BaseHandler) writeAppError(w http.ResponseWriter, appErr *errs.AppError) {
	status, body := appErr.ToHTTPResponse()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	h.WriteJSON(w, status, body)
}

// DecodeJSON reads the request body into dst.
func (h *BaseHandler) DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

// ParseID reads a positive integer path parameter.
func (h *BaseHandler) ParseID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.NewValidationError("invalid "+name, errs.ErrCodeValidationFailed)
	}
	return id, nil
}

// Pagination reads limit and offset query parameters. Out of range values
// fall back to the defaults.
func (h *BaseHandler) Pagination(r *http.Request) (limit, offset int) {
	limit = DefaultPageLimit
	offset = 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= MaxPageLimit {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	return limit, offset
}
