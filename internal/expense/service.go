package expense

import (
	"context"
	"errors"
	"log/slog"
	"time"

	errs "github.com/frahmantamala/receipt-ledger/internal"
	"github.com/frahmantamala/receipt-ledger/internal/core/events"
	"github.com/frahmantamala/receipt-ledger/internal/receipt"
)

// Repository interface defines the data access methods for expenses
type Repository interface {
	Create(ctx context.Context, expense *Expense) error
	GetByID(ctx context.Context, id int64) (*Expense, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Expense, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	Update(ctx context.Context, expense *Expense) error
	Delete(ctx context.Context, id int64) error
	Totals(ctx context.Context, filter Filter) (Totals, error)
	TotalsBy(ctx context.Context, key GroupKey, filter Filter) ([]GroupTotal, error)
	TopMerchants(ctx context.Context, filter Filter, limit int) ([]GroupTotal, error)
}

// ReceiptExtractor turns image bytes into cleaned receipt fields.
type ReceiptExtractor interface {
	Extract(ctx context.Context, image []byte) receipt.Result
}

// MediaStore holds spooled uploads and saved receipt images.
type MediaStore interface {
	ReadFile(name string) ([]byte, error)
	Remove(name string) error
	SaveReceipt(data []byte, ext string) (string, error)
	DeleteReceipt(key string) error
}

// Service handles expense business logic
type Service struct {
	repo      Repository
	extractor ReceiptExtractor
	media     MediaStore
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new expense service
func NewService(repo Repository, extractor ReceiptExtractor, media MediaStore, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		extractor: extractor,
		media:     media,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for default expense dates.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) CreateExpense(ctx context.Context, dto CreateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("expense validation failed", "error", err)
		return nil, err
	}

	expense := dto.ToExpense(errs.UsernameFromContext(ctx), s.now())
	if err := s.repo.Create(ctx, expense); err != nil {
		s.logger.Error("failed to create expense", "error", err)
		return nil, errs.NewInternalError("Failed to create expense", err)
	}

	s.logger.Info("expense created successfully",
		"expense_id", expense.ID,
		"amount", expense.Amount.StringFixed(2),
		"category", expense.Category)

	s.publish(ctx, events.NewExpenseCreatedEvent(expense.ID, expense.LedgerRow()))
	return expense, nil
}

func (s *Service) GetExpense(ctx context.Context, id int64) (*Expense, error) {
	expense, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrExpenseNotFound) {
			return nil, errs.ErrExpenseNotFound
		}
		s.logger.Error("failed to get expense", "error", err, "expense_id", id)
		return nil, errs.NewInternalError("Failed to get expense", err)
	}
	return expense, nil
}

func (s *Service) ListExpenses(ctx context.Context, query ListExpensesQuery) (*ListExpensesResult, error) {
	expenses, err := s.repo.List(ctx, query.Filter, query.Limit, query.Offset)
	if err != nil {
		s.logger.Error("failed to list expenses", "error", err)
		return nil, errs.NewInternalError("Failed to list expenses", err)
	}

	total, err := s.repo.Count(ctx, query.Filter)
	if err != nil {
		s.logger.Error("failed to count expenses", "error", err)
		return nil, errs.NewInternalError("Failed to list expenses", err)
	}

	return &ListExpensesResult{
		Expenses: expenses,
		Total:    total,
		Limit:    query.Limit,
		Offset:   query.Offset,
	}, nil
}

// ExportExpenses returns every expense matching filter, newest first.
func (s *Service) ExportExpenses(ctx context.Context, filter Filter) ([]*Expense, error) {
	expenses, err := s.repo.List(ctx, filter, 0, 0)
	if err != nil {
		s.logger.Error("failed to load expenses for export", "error", err)
		return nil, errs.NewInternalError("Failed to export expenses", err)
	}
	return expenses, nil
}

func (s *Service) UpdateExpense(ctx context.Context, id int64, dto UpdateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("expense update validation failed", "error", err, "expense_id", id)
		return nil, err
	}

	expense, err := s.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}

	dto.Apply(expense)
	if err := s.repo.Update(ctx, expense); err != nil {
		if errors.Is(err, ErrExpenseNotFound) {
			return nil, errs.ErrExpenseNotFound
		}
		s.logger.Error("failed to update expense", "error", err, "expense_id", id)
		return nil, errs.NewInternalError("Failed to update expense", err)
	}

	s.logger.Info("expense updated successfully", "expense_id", id)
	s.publish(ctx, events.NewExpenseUpdatedEvent(expense.ID, expense.LedgerRow()))
	return expense, nil
}

func (s *Service) DeleteExpense(ctx context.Context, id int64) error {
	expense, err := s.GetExpense(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrExpenseNotFound) {
			return errs.ErrExpenseNotFound
		}
		s.logger.Error("failed to delete expense", "error", err, "expense_id", id)
		return errs.NewInternalError("Failed to delete expense", err)
	}

	if expense.ReceiptImage != nil {
		if err := s.media.DeleteReceipt(*expense.ReceiptImage); err != nil {
			s.logger.Warn("failed to delete receipt image", "error", err, "expense_id", id)
		}
	}

	s.logger.Info("expense deleted successfully", "expense_id", id)
	s.publish(ctx, events.NewExpenseDeletedEvent(id))
	return nil
}

// ScanReceipt extracts a spooled receipt image and records it as an expense.
// The spool file is removed on every return path.
func (s *Service) ScanReceipt(ctx context.Context, in ScanReceiptInput) (*ScanReceiptResult, error) {
	defer func() {
		if err := s.media.Remove(in.TempPath); err != nil {
			s.logger.Warn("failed to remove spooled upload", "error", err, "path", in.TempPath)
		}
	}()

	data, err := s.media.ReadFile(in.TempPath)
	if err != nil {
		s.logger.Error("failed to read spooled upload", "error", err)
		return nil, errs.NewValidationError("Failed to read uploaded image", errs.ErrCodeInvalidUpload).WithCause(err)
	}

	result := s.extractor.Extract(ctx, data)
	if !result.Success || result.Data == nil {
		message := result.Error
		if message == "" {
			message = "Failed to extract data from receipt"
		}
		s.logger.Error("receipt extraction failed", "error", message)
		return nil, errs.NewExternalError(message, errs.ErrCodeExtractionFailed)
	}

	expense := NewFromReceipt(*result.Data, in.Username, s.now())

	key, err := s.media.SaveReceipt(data, in.Ext)
	if err != nil {
		s.logger.Error("failed to save receipt image", "error", err)
		return nil, createFailed(err)
	}
	expense.ReceiptImage = &key

	if err := s.repo.Create(ctx, expense); err != nil {
		s.logger.Error("failed to create expense from receipt", "error", err)
		if derr := s.media.DeleteReceipt(key); derr != nil {
			s.logger.Warn("failed to delete receipt image", "error", derr, "key", key)
		}
		return nil, createFailed(err)
	}

	s.logger.Info("receipt scanned successfully",
		"expense_id", expense.ID,
		"merchant", deref(expense.MerchantName),
		"amount", expense.Amount.StringFixed(2))

	s.publish(ctx, events.NewExpenseCreatedEvent(expense.ID, expense.LedgerRow()))

	return &ScanReceiptResult{
		Message:       "Receipt scanned successfully",
		Expense:       expense,
		ExtractedData: result.Data,
		RawText:       result.RawText,
	}, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "error", err, "event_type", event.EventType())
	}
}

func createFailed(cause error) *errs.AppError {
	appErr := errs.NewInternalError("Failed to create expense: "+cause.Error(), cause)
	appErr.Code = errs.ErrCodeExpenseCreateFailed
	return appErr
}
