package validation

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	errors "github.com/frahmantamala/receipt-ledger/internal"
	"github.com/shopspring/decimal"
)

// MaxMoney is the exclusive upper bound of a numeric(10,2) column.
var MaxMoney = decimal.New(1, 8)

// MaxExponent bounds the base-10 exponent Money accepts.
const MaxExponent = 32

type ValidatorFunc func(interface{}) *errors.AppError

type FieldValidator struct {
	FieldName  string
	Value      interface{}
	Validators []ValidatorFunc
}

type ValidationBuilder struct {
	fields []FieldValidator
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{
		fields: make([]FieldValidator, 0),
	}
}

func (v *ValidationBuilder) Field(name string, value interface{}) *FieldValidator {
	fv := FieldValidator{
		FieldName:  name,
		Value:      value,
		Validators: make([]ValidatorFunc, 0),
	}
	v.fields = append(v.fields, fv)
	return &v.fields[len(v.fields)-1]
}

// check registers a rule. fail returns the message when value breaks it.
func (fv *FieldValidator) check(code errors.ErrorCode, fail func(value interface{}) (string, bool)) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if message, failed := fail(value); failed {
			return errors.NewValidationFieldError(fv.FieldName, message, code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) Required() *FieldValidator {
	return fv.check(errors.ErrCodeValidationFailed, func(value interface{}) (string, bool) {
		var missing bool
		switch v := value.(type) {
		case nil:
			missing = true
		case string:
			missing = strings.TrimSpace(v) == ""
		case *string:
			missing = v == nil || strings.TrimSpace(*v) == ""
		case *decimal.Decimal:
			missing = v == nil
		}
		return fv.FieldName + " is required", missing
	})
}

func (fv *FieldValidator) MinLength(min int) *FieldValidator {
	return fv.check(errors.ErrCodeValidationFailed, func(value interface{}) (string, bool) {
		v, ok := stringValue(value)
		return fmt.Sprintf("%s must be at least %d characters", fv.FieldName, min), ok && utf8.RuneCountInString(v) < min
	})
}

func (fv *FieldValidator) MaxLength(max int) *FieldValidator {
	return fv.check(errors.ErrCodeValidationFailed, func(value interface{}) (string, bool) {
		v, ok := stringValue(value)
		return fmt.Sprintf("%s must not exceed %d characters", fv.FieldName, max), ok && utf8.RuneCountInString(v) > max
	})
}

// OneOf rejects strings outside allowed. Empty values pass; pair with Required when needed.
func (fv *FieldValidator) OneOf(allowed []string, code errors.ErrorCode) *FieldValidator {
	return fv.check(code, func(value interface{}) (string, bool) {
		v, ok := stringValue(value)
		return fmt.Sprintf("%s must be one of: %s", fv.FieldName, strings.Join(allowed, ", ")),
			ok && v != "" && !slices.Contains(allowed, v)
	})
}

// Money checks a decimal fits numeric(10,2): at most two places and |v| < 10^8.
// Exponents beyond MaxExponent are rejected before any rescaling.
func (fv *FieldValidator) Money() *FieldValidator {
	return fv.check(errors.ErrCodeInvalidAmount, func(value interface{}) (string, bool) {
		d, ok := decimalValue(value)
		switch {
		case !ok:
			return "", false
		case d.Exponent() > MaxExponent || d.Exponent() < -MaxExponent:
			return fv.FieldName + " is out of range", true
		case !d.Equal(d.Round(2)):
			return fv.FieldName + " must have at most 2 decimal places", true
		case d.Abs().GreaterThanOrEqual(MaxMoney):
			return fmt.Sprintf("%s must be less than %s", fv.FieldName, MaxMoney.String()), true
		}
		return "", false
	})
}

func (fv *FieldValidator) NotNegative() *FieldValidator {
	return fv.check(errors.ErrCodeInvalidAmount, func(value interface{}) (string, bool) {
		d, ok := decimalValue(value)
		return fv.FieldName + " cannot be negative", ok && d.IsNegative()
	})
}

func (fv *FieldValidator) Custom(validator func(interface{}) *errors.AppError) *FieldValidator {
	fv.Validators = append(fv.Validators, validator)
	return fv
}

func (v *ValidationBuilder) Validate() *errors.AppError {
	var validationErrors []errors.ValidationError

	for _, field := range v.fields {
		for _, validator := range field.Validators {
			if err := validator(field.Value); err != nil {
				if details, ok := err.Details.(errors.ValidationErrors); ok {
					validationErrors = append(validationErrors, details.Errors...)
					continue
				}
				validationErrors = append(validationErrors, errors.ValidationError{
					Field:   field.FieldName,
					Message: err.Message,
					Code:    string(err.Code),
				})
			}
		}
	}

	if len(validationErrors) > 0 {
		return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
			WithDetails(errors.ValidationErrors{Errors: validationErrors})
	}

	return nil
}

// ValidateCurrency checks an already upper-cased currency code.
func ValidateCurrency(currency string) *errors.AppError {
	validator := NewValidator()
	validator.Field("currency", currency).
		Required().
		MinLength(3).
		MaxLength(10)
	return validator.Validate()
}

func stringValue(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	}
	return "", false
}

func decimalValue(value interface{}) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, false
		}
		return *v, true
	}
	return decimal.Zero, false
}
