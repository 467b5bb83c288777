package postgres

import (
	"context"
	"errors"
	"fmt"

	expenseDatamodel "github.com/frahmantamala/receipt-ledger/internal/core/datamodel/expense"
	"github.com/frahmantamala/receipt-ledger/internal/expense"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpenseRepository implements the expense.Repository interface using GORM
type ExpenseRepository struct {
	db *gorm.DB
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

type groupRow struct {
	GroupKey    string
	TotalAmount decimal.Decimal
	EntryCount  int64
}

// Create saves a new expense to the database
func (r *ExpenseRepository) Create(ctx context.Context, exp *expense.Expense) error {
	model := expense.ToDataModel(exp)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	*exp = *expense.FromDataModel(model)
	return nil
}

// GetByID retrieves an expense by its ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*expense.Expense, error) {
	var model expenseDatamodel.Expense
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, expense.ErrExpenseNotFound
		}
		return nil, err
	}
	return expense.FromDataModel(&model), nil
}

// List returns expenses newest first. A limit of zero returns every match.
func (r *ExpenseRepository) List(ctx context.Context, filter expense.Filter, limit, offset int) ([]*expense.Expense, error) {
	var models []*expenseDatamodel.Expense
	query := r.filtered(ctx, filter).Order("date DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(models), nil
}

func (r *ExpenseRepository) Count(ctx context.Context, filter expense.Filter) (int64, error) {
	var count int64
	err := r.filtered(ctx, filter).Count(&count).Error
	return count, err
}

// Update rewrites every column of an existing expense except created_at. A
// row deleted in the meantime yields ErrExpenseNotFound.
func (r *ExpenseRepository) Update(ctx context.Context, exp *expense.Expense) error {
	model := expense.ToDataModel(exp)
	result := r.db.WithContext(ctx).Model(model).Select("*").Omit("id", "created_at").Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return expense.ErrExpenseNotFound
	}
	createdAt := exp.CreatedAt
	*exp = *expense.FromDataModel(model)
	exp.CreatedAt = createdAt
	return nil
}

func (r *ExpenseRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&expenseDatamodel.Expense{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return expense.ErrExpenseNotFound
	}
	return nil
}

// Totals sums amounts and counts rows matching filter.
func (r *ExpenseRepository) Totals(ctx context.Context, filter expense.Filter) (expense.Totals, error) {
	var row groupRow
	err := r.filtered(ctx, filter).
		Select("COALESCE(SUM(amount), 0) AS total_amount, COUNT(*) AS entry_count").
		Scan(&row).Error
	if err != nil {
		return expense.Totals{}, err
	}
	return expense.Totals{
		Amount: row.TotalAmount.Round(2),
		Count:  row.EntryCount,
	}, nil
}

// TotalsBy sums amounts per distinct value of key in a single grouped query.
func (r *ExpenseRepository) TotalsBy(ctx context.Context, key expense.GroupKey, filter expense.Filter) ([]expense.GroupTotal, error) {
	column, err := groupColumn(key)
	if err != nil {
		return nil, err
	}

	var rows []groupRow
	err = r.filtered(ctx, filter).
		Select(column + " AS group_key, COALESCE(SUM(amount), 0) AS total_amount, COUNT(*) AS entry_count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toGroupTotals(rows), nil
}

// TopMerchants returns the merchants with the largest summed amount.
// Expenses without a merchant name are ignored. Ties order by name.
func (r *ExpenseRepository) TopMerchants(ctx context.Context, filter expense.Filter, limit int) ([]expense.GroupTotal, error) {
	var rows []groupRow
	err := r.filtered(ctx, filter).
		Select("merchant_name AS group_key, COALESCE(SUM(amount), 0) AS total_amount, COUNT(*) AS entry_count").
		Where("merchant_name IS NOT NULL AND merchant_name <> ''").
		Group("merchant_name").
		Order("total_amount DESC").
		Order("merchant_name ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toGroupTotals(rows), nil
}

func (r *ExpenseRepository) filtered(ctx context.Context, filter expense.Filter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&expenseDatamodel.Expense{})
	if filter.Username != "" {
		query = query.Where("username = ?", filter.Username)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.PaymentMethod != "" {
		query = query.Where("payment_method = ?", filter.PaymentMethod)
	}
	if filter.From != nil {
		query = query.Where("date >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("date < ?", filter.To.UTC())
	}
	return query
}

func groupColumn(key expense.GroupKey) (string, error) {
	switch key {
	case expense.GroupByCategory:
		return "category", nil
	case expense.GroupByPaymentMethod:
		return "payment_method", nil
	default:
		return "", fmt.Errorf("unsupported group key %q", key)
	}
}

func toGroupTotals(rows []groupRow) []expense.GroupTotal {
	totals := make([]expense.GroupTotal, len(rows))
	for i, row := range rows {
		totals[i] = expense.GroupTotal{
			Key:    row.GroupKey,
			Amount: row.TotalAmount.Round(2),
			Count:  row.EntryCount,
		}
	}
	return totals
}
