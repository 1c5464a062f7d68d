package recur

import (
	"fmt"

	"github.com/xraph/recur/types"
)

// ValidateDeposit checks that deposit covers amountPerOccurrence * count and
// returns the required amount. The multiplication is overflow-checked.
func ValidateDeposit(deposit, amountPerOccurrence, count types.Amount) (types.Amount, error) {
	required, err := amountPerOccurrence.CheckedMul(count)
	if err != nil {
		return types.Zero, err
	}
	if deposit.LessThan(required) {
		return required, fmt.Errorf("%w: required %s, attached %s", ErrInsufficientDeposit, required, deposit)
	}
	return required, nil
}
