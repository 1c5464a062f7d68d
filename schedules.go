package recur

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/recur/host"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/schedule"
	"github.com/xraph/recur/types"
)

// ScheduleInput describes a schedule to create.
type ScheduleInput struct {
	// Count is the number of occurrences. Must be at least one.
	Count types.Amount
	// Amount is the per-occurrence amount in whole units; the engine scales
	// it to base units.
	Amount           types.Amount
	RecipientAccount string
	RecipientEmail   string
	// Deposit is the attached deposit in base units.
	Deposit types.Amount
}

// AddTenantExecutable creates a payment schedule owned by caller's tenant and
// returns its derived ID. The deposit must cover Amount * Count in base units.
func (e *Engine) AddTenantExecutable(ctx context.Context, caller string, in ScheduleInput) (string, error) {
	if caller == "" {
		return "", ValidationError{Field: "caller", Message: "must not be empty"}
	}
	if in.Count.IsZero() {
		return "", ValidationError{Field: "count", Message: "must be at least 1"}
	}

	amount, err := in.Amount.Scale(e.unitScale)
	if err != nil {
		return "", fmt.Errorf("recur: scale amount %s: %w", in.Amount, err)
	}
	required, err := ValidateDeposit(in.Deposit, amount, in.Count)
	if err != nil {
		return "", err
	}
	if err := e.validateRecipient(in.RecipientAccount); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.store.GetTenant(ctx, caller)
	if err != nil {
		return "", err
	}

	step, err := e.steps.CurrentStep(ctx)
	if err != nil {
		return "", fmt.Errorf("recur: read step: %w", err)
	}

	s := &schedule.Schedule{
		Entity:              types.NewEntity(),
		ID:                  id.Derive(caller, step),
		TenantID:            t.TenantID,
		OwnerAccount:        caller,
		AmountPerOccurrence: amount,
		RemainingCount:      in.Count,
		InitialCount:        in.Count,
		RecipientAccount:    in.RecipientAccount,
		RecipientEmail:      in.RecipientEmail,
	}
	if err := e.store.CreateSchedule(ctx, s); err != nil {
		return "", err
	}

	if e.deposits != nil {
		if err := e.deposits.ReceiveDeposit(ctx, caller, in.Deposit); err != nil {
			if derr := e.store.DeleteSchedule(ctx, s.ID); derr != nil {
				e.logger.Error("schedule rollback failed",
					"schedule_id", s.ID,
					"error", derr,
				)
			}
			if errors.Is(err, host.ErrInsufficientFunds) {
				return "", fmt.Errorf("%w: %w", ErrInsufficientDeposit, err)
			}
			return "", fmt.Errorf("recur: receive deposit: %w", err)
		}
	}

	e.logger.Info("schedule created",
		"schedule_id", s.ID,
		"tenant_id", s.TenantID,
		"recipient", s.RecipientAccount,
		"amount", amount.String(),
		"count", in.Count.String(),
		"required", required.String(),
	)
	e.plugins.EmitScheduleCreated(ctx, s, in.Deposit)

	return s.ID, nil
}

func (e *Engine) validateRecipient(account string) error {
	if !e.accounts.IsValidAccount(account) {
		return fmt.Errorf("%w: %q", ErrInvalidRecipient, account)
	}
	return nil
}

// CancelExecutableEarly deletes a schedule regardless of its remaining count.
// Unless open cancellation is enabled, only the owner account or the trusted
// invoker may cancel.
func (e *Engine) CancelExecutableEarly(ctx context.Context, caller, scheduleID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}

	if !e.mayCancel(caller, s) {
		e.logger.Warn("cancel rejected",
			"schedule_id", scheduleID,
			"caller", caller,
		)
		return ErrNotScheduleOwner
	}

	if err := e.store.DeleteSchedule(ctx, scheduleID); err != nil {
		return err
	}

	e.logger.Info("schedule canceled",
		"schedule_id", scheduleID,
		"caller", caller,
		"remaining", s.RemainingCount.String(),
		"state", schedule.StateCancelled,
	)
	e.plugins.EmitScheduleCanceled(ctx, s, caller)

	return nil
}

func (e *Engine) mayCancel(caller string, s *schedule.Schedule) bool {
	if e.openCancellation {
		return true
	}
	if caller != "" && caller == s.OwnerAccount {
		return true
	}
	return Authorize(caller, e.trustedInvoker) == nil
}

// GetSchedule returns a stored schedule.
func (e *Engine) GetSchedule(ctx context.Context, scheduleID string) (*schedule.Schedule, error) {
	return e.store.GetSchedule(ctx, scheduleID)
}

// ListSchedules returns the active schedules of a tenant.
func (e *Engine) ListSchedules(ctx context.Context, tenantID string, opts schedule.ListOpts) ([]*schedule.Schedule, error) {
	return e.store.ListSchedules(ctx, tenantID, opts)
}

// ListAccountSchedules resolves account to its tenant and lists its schedules.
func (e *Engine) ListAccountSchedules(ctx context.Context, account string, opts schedule.ListOpts) ([]*schedule.Schedule, error) {
	t, err := e.store.GetTenant(ctx, account)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("recur: lookup tenant: %w", err)
	}
	return e.store.ListSchedules(ctx, t.TenantID, opts)
}
