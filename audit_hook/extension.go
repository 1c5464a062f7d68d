// Package audithook bridges recur lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on a
// particular audit store. Callers inject a RecorderFunc adapter at wiring time.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/recur"
	"github.com/xraph/recur/plugin"
	"github.com/xraph/recur/schedule"
	"github.com/xraph/recur/tenant"
	"github.com/xraph/recur/transfer"
	"github.com/xraph/recur/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnTenantAdded       = (*Extension)(nil)
	_ plugin.OnScheduleCreated   = (*Extension)(nil)
	_ plugin.OnScheduleTriggered = (*Extension)(nil)
	_ plugin.OnScheduleExhausted = (*Extension)(nil)
	_ plugin.OnScheduleCanceled  = (*Extension)(nil)
	_ plugin.OnTriggerRejected   = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a single audit trail entry.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges recur lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Tenant hooks
// ──────────────────────────────────────────────────

// OnTenantAdded implements plugin.OnTenantAdded.
func (e *Extension) OnTenantAdded(ctx context.Context, t *tenant.Tenant) error {
	return e.record(ctx, ActionTenantAdded, SeverityInfo, OutcomeSuccess,
		ResourceTenant, t.TenantID, CategoryTenancy, nil,
		"account", t.AccountID,
	)
}

// ──────────────────────────────────────────────────
// Schedule hooks
// ──────────────────────────────────────────────────

// OnScheduleCreated implements plugin.OnScheduleCreated.
func (e *Extension) OnScheduleCreated(ctx context.Context, s *schedule.Schedule, deposit types.Amount) error {
	return e.record(ctx, ActionScheduleCreated, SeverityInfo, OutcomeSuccess,
		ResourceSchedule, s.ID, CategoryPayment, nil,
		"tenant_id", s.TenantID,
		"owner", s.OwnerAccount,
		"recipient", s.RecipientAccount,
		"amount", s.AmountPerOccurrence.String(),
		"count", s.InitialCount.String(),
		"deposit", deposit.String(),
	)
}

// OnScheduleTriggered implements plugin.OnScheduleTriggered.
func (e *Extension) OnScheduleTriggered(ctx context.Context, s *schedule.Schedule, h *transfer.Handle) error {
	return e.record(ctx, ActionScheduleTriggered, SeverityInfo, OutcomeSuccess,
		ResourceSchedule, s.ID, CategoryPayment, nil,
		"transfer_id", h.ID.String(),
		"recipient", h.Recipient,
		"amount", h.Amount.String(),
		"remaining", h.Remaining.String(),
	)
}

// OnScheduleExhausted implements plugin.OnScheduleExhausted.
func (e *Extension) OnScheduleExhausted(ctx context.Context, s *schedule.Schedule) error {
	return e.record(ctx, ActionScheduleExhausted, SeverityInfo, OutcomeSuccess,
		ResourceSchedule, s.ID, CategoryPayment, nil,
		"tenant_id", s.TenantID,
		"triggered", s.Triggered().String(),
	)
}

// OnScheduleCanceled implements plugin.OnScheduleCanceled.
func (e *Extension) OnScheduleCanceled(ctx context.Context, s *schedule.Schedule, caller string) error {
	return e.record(ctx, ActionScheduleCanceled, SeverityWarning, OutcomeSuccess,
		ResourceSchedule, s.ID, CategoryPayment, nil,
		"caller", caller,
		"remaining", s.RemainingCount.String(),
	)
}

// ──────────────────────────────────────────────────
// Access hooks
// ──────────────────────────────────────────────────

// OnTriggerRejected implements plugin.OnTriggerRejected.
func (e *Extension) OnTriggerRejected(ctx context.Context, scheduleID, caller string, reason error) error {
	severity := SeverityWarning
	if errors.Is(reason, recur.ErrUnauthorized) {
		severity = SeverityCritical
	}
	return e.record(ctx, ActionTriggerRejected, severity, OutcomeFailure,
		ResourceSchedule, scheduleID, CategoryAccess, reason,
		"caller", caller,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// Recorder failures are logged and never propagate to the engine.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
