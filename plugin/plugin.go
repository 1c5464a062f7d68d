// Package plugin provides an extensible plugin system for recur.
// Plugins hook into tenant and schedule lifecycle events to add auditing,
// metrics or notifications without touching the engine.
package plugin

import (
	"context"

	"github.com/xraph/recur/schedule"
	"github.com/xraph/recur/tenant"
	"github.com/xraph/recur/transfer"
	"github.com/xraph/recur/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Tenant hooks
// ──────────────────────────────────────────────────

// OnTenantAdded is called after a tenant is registered.
type OnTenantAdded interface {
	Plugin
	OnTenantAdded(ctx context.Context, t *tenant.Tenant) error
}

// ──────────────────────────────────────────────────
// Schedule hooks
// ──────────────────────────────────────────────────

// OnScheduleCreated is called after a schedule is stored.
type OnScheduleCreated interface {
	Plugin
	OnScheduleCreated(ctx context.Context, s *schedule.Schedule, deposit types.Amount) error
}

// OnScheduleTriggered is called after an occurrence has been issued. s
// reflects the schedule after the decrement.
type OnScheduleTriggered interface {
	Plugin
	OnScheduleTriggered(ctx context.Context, s *schedule.Schedule, h *transfer.Handle) error
}

// OnScheduleExhausted is called when the last occurrence has been issued and
// the schedule removed.
type OnScheduleExhausted interface {
	Plugin
	OnScheduleExhausted(ctx context.Context, s *schedule.Schedule) error
}

// OnScheduleCanceled is called after a schedule is cancelled early.
type OnScheduleCanceled interface {
	Plugin
	OnScheduleCanceled(ctx context.Context, s *schedule.Schedule, caller string) error
}

// OnTriggerRejected is called when a trigger is refused for authorization or
// balance reasons.
type OnTriggerRejected interface {
	Plugin
	OnTriggerRejected(ctx context.Context, scheduleID, caller string, reason error) error
}
