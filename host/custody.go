package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/recur/transfer"
	"github.com/xraph/recur/types"
)

// Custody is an in-memory custodial ledger. It holds escrowed deposits,
// debits requested transfers and exposes an explicit step, implementing
// BalanceReader, TransferRequester, StepCounter and DepositReceiver.
//
// Accounts hold funded balances credited only through Fund. A deposit moves
// value from the depositor's funded balance into escrow; it never creates
// value. When a settlement requester is configured, every debited transfer is
// forwarded to it; a forwarding failure re-credits escrow.
type Custody struct {
	mu         sync.Mutex
	balance    types.Amount
	funds      map[string]types.Amount
	step       uint64
	transfers  []transfer.Handle
	settlement TransferRequester
	logger     *slog.Logger
}

// CustodyOption configures a Custody.
type CustodyOption func(*Custody)

// WithInitialBalance seeds the custodial balance.
func WithInitialBalance(a types.Amount) CustodyOption {
	return func(c *Custody) { c.balance = a }
}

// WithFunds credits account's funded balance at construction.
func WithFunds(account string, amount types.Amount) CustodyOption {
	return func(c *Custody) {
		if sum, err := c.funds[account].CheckedAdd(amount); err == nil {
			c.funds[account] = sum
		}
	}
}

// WithSettlement forwards debited transfers to r.
func WithSettlement(r TransferRequester) CustodyOption {
	return func(c *Custody) { c.settlement = r }
}

// WithCustodyLogger sets the logger.
func WithCustodyLogger(l *slog.Logger) CustodyOption {
	return func(c *Custody) { c.logger = l }
}

// NewCustody creates an empty custody ledger at step 0.
func NewCustody(opts ...CustodyOption) *Custody {
	c := &Custody{
		funds:  make(map[string]types.Amount),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Credit adds a to the balance.
func (c *Custody) Credit(a types.Amount) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sum, err := c.balance.CheckedAdd(a)
	if err != nil {
		return fmt.Errorf("host: credit %s: %w", a, err)
	}
	c.balance = sum
	return nil
}

// Balance returns the current balance.
func (c *Custody) Balance() types.Amount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance
}

// AvailableBalance implements BalanceReader.
func (c *Custody) AvailableBalance(_ context.Context) (types.Amount, error) {
	return c.Balance(), nil
}

// Fund credits account's funded balance. It is the only way value enters
// an account and must only be reachable from trusted callers.
func (c *Custody) Fund(account string, amount types.Amount) error {
	if account == "" {
		return errors.New("host: fund: empty account")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sum, err := c.funds[account].CheckedAdd(amount)
	if err != nil {
		return fmt.Errorf("host: fund %s: %w", account, err)
	}
	c.funds[account] = sum
	return nil
}

// Funds returns account's funded balance that is not yet escrowed.
func (c *Custody) Funds(account string) types.Amount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.funds[account]
}

// ReceiveDeposit implements DepositReceiver. It moves amount from the
// depositor's funded balance into escrow, failing with ErrInsufficientFunds
// when the depositor cannot cover it.
func (c *Custody) ReceiveDeposit(_ context.Context, from string, amount types.Amount) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	available := c.funds[from]
	remaining, err := available.CheckedSub(amount)
	if err != nil {
		return fmt.Errorf("%w: %s has %s, deposit %s", ErrInsufficientFunds, from, available, amount)
	}
	escrow, err := c.balance.CheckedAdd(amount)
	if err != nil {
		return fmt.Errorf("host: deposit %s: %w", amount, err)
	}

	c.funds[from] = remaining
	c.balance = escrow
	c.logger.Debug("deposit received", "from", from, "amount", amount.String())
	return nil
}

// RequestTransfer implements TransferRequester.
func (c *Custody) RequestTransfer(ctx context.Context, req transfer.Request) (*transfer.Handle, error) {
	c.mu.Lock()
	remaining, err := c.balance.CheckedSub(req.Amount)
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, c.balance, req.Amount)
	}
	c.balance = remaining
	c.mu.Unlock()

	h := &transfer.Handle{
		ID:          req.ID,
		ScheduleID:  req.ScheduleID,
		Recipient:   req.Recipient,
		Amount:      req.Amount,
		Status:      transfer.StatusRequested,
		RequestedAt: time.Now().UTC(),
	}

	if c.settlement != nil {
		fwd, err := c.settlement.RequestTransfer(ctx, req)
		if err != nil {
			if cerr := c.Credit(req.Amount); cerr != nil {
				c.logger.Error("custody re-credit failed", "transfer_id", req.ID.String(), "error", cerr)
			}
			return nil, fmt.Errorf("host: forward transfer %s: %w", req.ID, err)
		}
		h.Status = transfer.StatusForwarded
		if fwd != nil {
			h.Reference = fwd.Reference
		}
	}

	c.mu.Lock()
	c.transfers = append(c.transfers, *h)
	c.mu.Unlock()

	c.logger.Debug("transfer requested",
		"transfer_id", req.ID.String(),
		"schedule_id", req.ScheduleID,
		"recipient", req.Recipient,
		"amount", req.Amount.String(),
	)
	return h, nil
}

// Transfers returns a copy of every transfer requested so far.
func (c *Custody) Transfers() []transfer.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]transfer.Handle, len(c.transfers))
	copy(out, c.transfers)
	return out
}

// CurrentStep implements StepCounter.
func (c *Custody) CurrentStep(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step, nil
}

// SetStep sets the current step.
func (c *Custody) SetStep(step uint64) {
	c.mu.Lock()
	c.step = step
	c.mu.Unlock()
}

// Advance moves the step forward by n and returns the new step.
func (c *Custody) Advance(n uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step += n
	return c.step
}
