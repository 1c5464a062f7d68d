// Package host defines the collaborators recur relies on for account
// identity, balance custody, settlement and step numbering, together with
// in-process implementations suitable for a standalone daemon and tests.
package host

import (
	"context"
	"errors"

	"github.com/xraph/recur/transfer"
	"github.com/xraph/recur/types"
)

// ErrInsufficientFunds is returned by Custody when a debit exceeds the balance.
var ErrInsufficientFunds = errors.New("host: insufficient custodial funds")

// AccountValidator decides whether an account identifier is well formed.
type AccountValidator interface {
	IsValidAccount(account string) bool
}

// AccountValidatorFunc adapts a plain function to AccountValidator.
type AccountValidatorFunc func(account string) bool

// IsValidAccount implements AccountValidator.
func (f AccountValidatorFunc) IsValidAccount(account string) bool { return f(account) }

// BalanceReader reports the custodial balance available for transfers.
type BalanceReader interface {
	AvailableBalance(ctx context.Context) (types.Amount, error)
}

// TransferRequester issues an asynchronous value transfer. The returned
// handle confirms the request, not its settlement.
type TransferRequester interface {
	RequestTransfer(ctx context.Context, req transfer.Request) (*transfer.Handle, error)
}

// StepCounter returns the current monotonically non-decreasing host step
// (block height on a chain, a sequence number elsewhere).
type StepCounter interface {
	CurrentStep(ctx context.Context) (uint64, error)
}

// DepositReceiver accepts deposits attached to schedule creation. Hosts that
// receive deposits out of band do not implement it. ReceiveDeposit must move
// value the depositor already holds and fail when it cannot cover amount.
type DepositReceiver interface {
	ReceiveDeposit(ctx context.Context, from string, amount types.Amount) error
}

// Funder credits an account's funded balance. Only trusted paths such as
// daemon configuration or the trusted invoker may reach it.
type Funder interface {
	Fund(account string, amount types.Amount) error
}
