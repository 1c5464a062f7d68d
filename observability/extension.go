// Package observability provides a metrics extension for recur that records
// lifecycle event counts through a MetricFactory.
package observability

import (
	"context"
	"errors"
	"strconv"

	"github.com/xraph/recur"
	"github.com/xraph/recur/plugin"
	"github.com/xraph/recur/schedule"
	"github.com/xraph/recur/tenant"
	"github.com/xraph/recur/transfer"
	"github.com/xraph/recur/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin              = (*MetricsExtension)(nil)
	_ plugin.OnInit              = (*MetricsExtension)(nil)
	_ plugin.OnTenantAdded       = (*MetricsExtension)(nil)
	_ plugin.OnScheduleCreated   = (*MetricsExtension)(nil)
	_ plugin.OnScheduleTriggered = (*MetricsExtension)(nil)
	_ plugin.OnScheduleExhausted = (*MetricsExtension)(nil)
	_ plugin.OnScheduleCanceled  = (*MetricsExtension)(nil)
	_ plugin.OnTriggerRejected   = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a recur plugin to track schedule activity.
type MetricsExtension struct {
	factory MetricFactory

	// Tenant metrics
	TenantsAdded Counter

	// Schedule metrics
	SchedulesCreated   Counter
	SchedulesExhausted Counter
	SchedulesCanceled  Counter
	ScheduleCount      Histogram

	// Trigger metrics
	Triggers             Counter
	TriggersRejected     Counter
	TriggersUnauthorized Counter
	TriggersUnderfunded  Counter
	TransferAmount       Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		TenantsAdded: factory.Counter("recur.tenant.added"),

		SchedulesCreated:   factory.Counter("recur.schedule.created"),
		SchedulesExhausted: factory.Counter("recur.schedule.exhausted"),
		SchedulesCanceled:  factory.Counter("recur.schedule.canceled"),
		ScheduleCount:      factory.Histogram("recur.schedule.occurrences"),

		Triggers:             factory.Counter("recur.trigger.total"),
		TriggersRejected:     factory.Counter("recur.trigger.rejected"),
		TriggersUnauthorized: factory.Counter("recur.trigger.unauthorized"),
		TriggersUnderfunded:  factory.Counter("recur.trigger.underfunded"),
		TransferAmount:       factory.Histogram("recur.transfer.amount_units"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// OnTenantAdded implements plugin.OnTenantAdded.
func (m *MetricsExtension) OnTenantAdded(_ context.Context, _ *tenant.Tenant) error {
	m.TenantsAdded.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Schedule lifecycle hooks
// ──────────────────────────────────────────────────

// OnScheduleCreated implements plugin.OnScheduleCreated.
func (m *MetricsExtension) OnScheduleCreated(_ context.Context, s *schedule.Schedule, _ types.Amount) error {
	m.SchedulesCreated.Inc()
	if n, ok := s.InitialCount.Uint64(); ok {
		m.ScheduleCount.Observe(float64(n))
	}
	return nil
}

// OnScheduleTriggered implements plugin.OnScheduleTriggered.
func (m *MetricsExtension) OnScheduleTriggered(_ context.Context, _ *schedule.Schedule, h *transfer.Handle) error {
	m.Triggers.Inc()
	if units, err := strconv.ParseFloat(h.Amount.FormatUnits(types.UnitScale), 64); err == nil {
		m.TransferAmount.Observe(units)
	}
	return nil
}

// OnScheduleExhausted implements plugin.OnScheduleExhausted.
func (m *MetricsExtension) OnScheduleExhausted(_ context.Context, _ *schedule.Schedule) error {
	m.SchedulesExhausted.Inc()
	return nil
}

// OnScheduleCanceled implements plugin.OnScheduleCanceled.
func (m *MetricsExtension) OnScheduleCanceled(_ context.Context, _ *schedule.Schedule, _ string) error {
	m.SchedulesCanceled.Inc()
	return nil
}

// OnTriggerRejected implements plugin.OnTriggerRejected.
func (m *MetricsExtension) OnTriggerRejected(_ context.Context, _, _ string, reason error) error {
	m.TriggersRejected.Inc()
	switch {
	case errors.Is(reason, recur.ErrUnauthorized):
		m.TriggersUnauthorized.Inc()
	case errors.Is(reason, recur.ErrInsufficientContractBalance):
		m.TriggersUnderfunded.Inc()
	}
	return nil
}
