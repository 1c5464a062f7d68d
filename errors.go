package recur

import (
	"errors"
	"fmt"

	"github.com/xraph/recur/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrInvalidInput = errors.New("recur: invalid input")
	ErrUnauthorized = errors.New("recur: caller is not the trusted invoker")

	// Tenant errors
	ErrDuplicateTenant = errors.New("recur: tenant has already been added")
	ErrTenantNotFound  = errors.New("recur: tenant does not exist")

	// Schedule errors
	ErrInvalidRecipient            = errors.New("recur: recipient is not a valid account")
	ErrInsufficientDeposit         = errors.New("recur: attached deposit does not cover the schedule")
	ErrScheduleNotFound            = errors.New("recur: schedule not found")
	ErrNotScheduleOwner            = errors.New("recur: caller does not own the schedule")
	ErrIdentifierCollision         = errors.New("recur: identifier already in use")
	ErrInsufficientContractBalance = errors.New("recur: amount is larger than the custodial balance")

	// ErrArithmeticOverflow is returned when 128-bit amount math would overflow.
	ErrArithmeticOverflow = types.ErrArithmeticOverflow

	// Store errors
	ErrConcurrentUpdate = errors.New("recur: concurrent update")
	ErrStoreClosed      = errors.New("recur: store is closed")
	ErrMigrationFailed  = errors.New("recur: migration failed")

	// Host errors
	ErrHostNotConfigured = errors.New("recur: host collaborator not configured")
	ErrTransferFailed    = errors.New("recur: transfer request failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("recur: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound) ||
		errors.Is(err, ErrScheduleNotFound)
}

// IsAuthError returns true if the caller was not allowed to perform the operation.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotScheduleOwner)
}

// IsFundsError returns true if the error is about deposits or balances.
func IsFundsError(err error) bool {
	return errors.Is(err, ErrInsufficientDeposit) ||
		errors.Is(err, ErrInsufficientContractBalance) ||
		errors.Is(err, ErrArithmeticOverflow)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentUpdate) ||
		errors.Is(err, ErrIdentifierCollision) ||
		errors.Is(err, ErrTransferFailed)
}
