package recur

import (
	"context"
	"fmt"

	"github.com/xraph/recur/schedule"
	"github.com/xraph/recur/transfer"
)

// TriggerTenantExecutable issues one occurrence of a schedule on behalf of
// the trusted invoker.
//
// The custodial balance must strictly exceed the occurrence amount. The
// remaining count is decremented before the transfer is requested; if the
// request fails the schedule is restored. The returned handle confirms the
// request, not its settlement.
func (e *Engine) TriggerTenantExecutable(ctx context.Context, caller, scheduleID string) (*transfer.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := Authorize(caller, e.trustedInvoker); err != nil {
		e.reject(ctx, scheduleID, caller, err)
		return nil, err
	}

	s, err := e.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	if e.balances == nil || e.transfers == nil {
		return nil, ErrHostNotConfigured
	}

	balance, err := e.balances.AvailableBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("recur: read balance: %w", err)
	}
	if !balance.GreaterThan(s.AmountPerOccurrence) {
		err := fmt.Errorf("%w: balance %s, amount %s", ErrInsufficientContractBalance, balance, s.AmountPerOccurrence)
		e.reject(ctx, scheduleID, caller, err)
		return nil, err
	}

	remains, err := e.store.DecrementSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	state, err := schedule.Next(schedule.StateActive, schedule.DecrementEvent(remains))
	if err != nil {
		e.restore(ctx, s)
		return nil, err
	}

	h, err := e.transfers.RequestTransfer(ctx, transfer.NewRequest(s.ID, s.RecipientAccount, s.AmountPerOccurrence))
	if err != nil {
		e.restore(ctx, s)
		return nil, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	after := s.Clone()
	after.RemainingCount, _ = s.RemainingCount.Dec() //nolint:errcheck // stored records have a count of at least one
	after.Touch()
	h.Remaining = after.RemainingCount

	e.logger.Info("schedule triggered",
		"schedule_id", scheduleID,
		"transfer_id", h.ID.String(),
		"recipient", s.RecipientAccount,
		"amount", s.AmountPerOccurrence.String(),
		"remaining", after.RemainingCount.String(),
		"state", state,
	)
	e.plugins.EmitScheduleTriggered(ctx, after, h)

	if state.IsTerminal() {
		e.logger.Info("schedule exhausted", "schedule_id", scheduleID)
		e.plugins.EmitScheduleExhausted(ctx, after)
	}

	return h, nil
}

// restore undoes a decrement whose occurrence was never issued.
func (e *Engine) restore(ctx context.Context, s *schedule.Schedule) {
	if err := e.store.RestoreSchedule(ctx, s); err != nil {
		e.logger.Error("schedule restore failed",
			"schedule_id", s.ID,
			"error", err,
		)
	}
}

func (e *Engine) reject(ctx context.Context, scheduleID, caller string, reason error) {
	e.logger.Warn("trigger rejected",
		"schedule_id", scheduleID,
		"caller", caller,
		"reason", reason,
	)
	e.plugins.EmitTriggerRejected(ctx, scheduleID, caller, reason)
}
