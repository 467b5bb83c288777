package budget

import (
	"context"
	"errors"
	"log/slog"
	"time"

	errs "github.com/frahmantamala/receipt-ledger/internal"
	"github.com/frahmantamala/receipt-ledger/internal/expense"
)

// Repository interface defines the data access methods for budgets
type Repository interface {
	Create(ctx context.Context, budget *Budget) error
	GetByID(ctx context.Context, id int64) (*Budget, error)
	List(ctx context.Context, username string) ([]*Budget, error)
	Update(ctx context.Context, budget *Budget) error
	Delete(ctx context.Context, id int64) error
}

// SpendReader sums expenses for a filter.
type SpendReader interface {
	Totals(ctx context.Context, filter expense.Filter) (expense.Totals, error)
}

type Service struct {
	repo   Repository
	spend  SpendReader
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, spend SpendReader, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		spend:  spend,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source status windows are measured from.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) CreateBudget(ctx context.Context, dto CreateBudgetDTO) (*Budget, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("budget validation failed", "error", err)
		return nil, err
	}

	budget := dto.ToBudget(errs.UsernameFromContext(ctx))
	if err := s.repo.Create(ctx, budget); err != nil {
		if errors.Is(err, ErrBudgetExists) {
			return nil, errs.ErrBudgetExists
		}
		s.logger.Error("failed to create budget", "error", err)
		return nil, errs.NewInternalError("Failed to create budget", err)
	}

	s.logger.Info("budget created successfully",
		"budget_id", budget.ID,
		"category", budget.Category,
		"period", budget.Period)
	return budget, nil
}

func (s *Service) GetBudget(ctx context.Context, id int64) (*Budget, error) {
	budget, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBudgetNotFound) {
			return nil, errs.ErrBudgetNotFound
		}
		s.logger.Error("failed to get budget", "error", err, "budget_id", id)
		return nil, errs.NewInternalError("Failed to get budget", err)
	}
	return budget, nil
}

// ListBudgets returns every budget, or only those owned by username when set.
func (s *Service) ListBudgets(ctx context.Context, username string) ([]*Budget, error) {
	budgets, err := s.repo.List(ctx, username)
	if err != nil {
		s.logger.Error("failed to list budgets", "error", err)
		return nil, errs.NewInternalError("Failed to list budgets", err)
	}
	return budgets, nil
}

func (s *Service) UpdateBudget(ctx context.Context, id int64, dto UpdateBudgetDTO) (*Budget, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("budget update validation failed", "error", err, "budget_id", id)
		return nil, err
	}

	budget, err := s.GetBudget(ctx, id)
	if err != nil {
		return nil, err
	}

	dto.Apply(budget)
	if err := s.repo.Update(ctx, budget); err != nil {
		switch {
		case errors.Is(err, ErrBudgetNotFound):
			return nil, errs.ErrBudgetNotFound
		case errors.Is(err, ErrBudgetExists):
			return nil, errs.ErrBudgetExists
		}
		s.logger.Error("failed to update budget", "error", err, "budget_id", id)
		return nil, errs.NewInternalError("Failed to update budget", err)
	}
	return budget, nil
}

func (s *Service) DeleteBudget(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrBudgetNotFound) {
			return errs.ErrBudgetNotFound
		}
		s.logger.Error("failed to delete budget", "error", err, "budget_id", id)
		return errs.NewInternalError("Failed to delete budget", err)
	}
	return nil
}

// Status reports spending in each budget's category over its rolling
// window. Spending is not restricted to the budget's owner.
func (s *Service) Status(ctx context.Context) ([]Status, error) {
	budgets, err := s.repo.List(ctx, "")
	if err != nil {
		s.logger.Error("failed to list budgets for status", "error", err)
		return nil, errs.NewInternalError("Failed to compute budget status", err)
	}

	now := s.now()
	statuses := make([]Status, 0, len(budgets))
	for _, b := range budgets {
		from := now.Add(-b.Period.Window())
		totals, err := s.spend.Totals(ctx, expense.Filter{Category: b.Category, From: &from})
		if err != nil {
			s.logger.Error("failed to sum budget spending", "error", err, "budget_id", b.ID)
			return nil, errs.NewInternalError("Failed to compute budget status", err)
		}
		statuses = append(statuses, NewStatus(b, totals.Amount))
	}
	return statuses, nil
}
