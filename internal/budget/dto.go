package budget

import (
	"errors"
	"strings"

	errs "github.com/frahmantamala/receipt-ledger/internal"
	"github.com/frahmantamala/receipt-ledger/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

type CreateBudgetDTO struct {
	Username *string          `json:"username"`
	Category string           `json:"category"`
	Amount   *decimal.Decimal `json:"amount"`
	Period   string           `json:"period"`
}

func (dto CreateBudgetDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("category", strings.TrimSpace(dto.Category)).
		Required().
		MaxLength(50)

	validator.Field("amount", dto.Amount).
		Required().
		Money()

	validator.Field("period", dto.Period).
		OneOf(PeriodValues(), errs.ErrCodeInvalidPeriod)

	validator.Field("username", dto.Username).
		MaxLength(150)

	if err := validator.Validate(); err != nil {
		return err
	}
	return nil
}

// ToBudget applies defaults. username is used when the body carries none.
func (dto CreateBudgetDTO) ToBudget(username string) *Budget {
	b := &Budget{
		Username: dto.Username,
		Category: strings.TrimSpace(dto.Category),
		Amount:   *dto.Amount,
		Period:   DefaultPeriod,
	}
	if b.Username == nil && username != "" {
		b.Username = &username
	}
	if dto.Period != "" {
		b.Period = Period(dto.Period)
	}
	return b
}

// UpdateBudgetDTO is a partial update. Nil fields are left untouched.
type UpdateBudgetDTO struct {
	Username *string          `json:"username"`
	Category *string          `json:"category"`
	Amount   *decimal.Decimal `json:"amount"`
	Period   *string          `json:"period"`
}

func (dto UpdateBudgetDTO) Validate() error {
	validator := validation.NewValidator()

	if dto.Category != nil {
		validator.Field("category", strings.TrimSpace(*dto.Category)).
			Required().
			MaxLength(50)
	}

	validator.Field("amount", dto.Amount).
		Money()

	if dto.Period != nil {
		validator.Field("period", *dto.Period).
			Required().
			OneOf(PeriodValues(), errs.ErrCodeInvalidPeriod)
	}

	validator.Field("username", dto.Username).
		MaxLength(150)

	if err := validator.Validate(); err != nil {
		return err
	}
	return nil
}

func (dto UpdateBudgetDTO) Apply(b *Budget) {
	if dto.Username != nil {
		b.Username = dto.Username
	}
	if dto.Category != nil {
		b.Category = strings.TrimSpace(*dto.Category)
	}
	if dto.Amount != nil {
		b.Amount = *dto.Amount
	}
	if dto.Period != nil {
		b.Period = Period(*dto.Period)
	}
}

// Domain errors
var (
	ErrBudgetNotFound = errors.New("budget not found")
	ErrBudgetExists   = errors.New("budget already exists")
)
