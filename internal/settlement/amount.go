package settlement

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// amountInput is the operator's raw amount field.
type amountInput struct {
	Amount string `validate:"required,numeric"`
}

// ParseAmount validates an operator-entered amount. Empty, non-numeric and
// non-positive values are rejected with ErrInvalidAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	in := amountInput{Amount: strings.TrimSpace(s)}
	if err := validatorInstance().Struct(in); err != nil {
		return decimal.Zero, ErrInvalidAmount
	}

	amount, err := decimal.NewFromString(in.Amount)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := CheckAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// CheckAmount rejects zero and negative amounts.
func CheckAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}
