package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/receipt-ledger/internal/budget"
	budgetDatamodel "github.com/frahmantamala/receipt-ledger/internal/core/datamodel/budget"
	"gorm.io/gorm"
)

// BudgetRepository implements the budget.Repository interface using GORM.
// The connection must be opened with TranslateError so unique violations
// surface as gorm.ErrDuplicatedKey.
type BudgetRepository struct {
	db *gorm.DB
}

func NewBudgetRepository(db *gorm.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

func (r *BudgetRepository) Create(ctx context.Context, b *budget.Budget) error {
	model := budget.ToDataModel(b)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translate(err)
	}
	*b = *budget.FromDataModel(model)
	return nil
}

func (r *BudgetRepository) GetByID(ctx context.Context, id int64) (*budget.Budget, error) {
	var model budgetDatamodel.Budget
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, budget.ErrBudgetNotFound
		}
		return nil, err
	}
	return budget.FromDataModel(&model), nil
}

// List returns budgets ordered by id. An empty username returns all of them.
func (r *BudgetRepository) List(ctx context.Context, username string) ([]*budget.Budget, error) {
	var models []*budgetDatamodel.Budget
	query := r.db.WithContext(ctx).Order("id ASC")
	if username != "" {
		query = query.Where("username = ?", username)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return budget.FromDataModelSlice(models), nil
}

func (r *BudgetRepository) Update(ctx context.Context, b *budget.Budget) error {
	model := budget.ToDataModel(b)
	result := r.db.WithContext(ctx).Model(model).Select("username", "category", "amount", "period", "updated_at").Updates(model)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return budget.ErrBudgetNotFound
	}
	b.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *BudgetRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&budgetDatamodel.Budget{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return budget.ErrBudgetNotFound
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return budget.ErrBudgetExists
	}
	return err
}
