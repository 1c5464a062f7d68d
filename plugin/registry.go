package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/recur/schedule"
	"github.com/xraph/recur/tenant"
	"github.com/xraph/recur/transfer"
	"github.com/xraph/recur/types"
)

// DefaultHookTimeout bounds how long a single plugin hook may run.
const DefaultHookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are discovered once at registration time.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit              []OnInit
	onShutdown          []OnShutdown
	onTenantAdded       []OnTenantAdded
	onScheduleCreated   []OnScheduleCreated
	onScheduleTriggered []OnScheduleTriggered
	onScheduleExhausted []OnScheduleExhausted
	onScheduleCanceled  []OnScheduleCanceled
	onTriggerRejected   []OnTriggerRejected
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnTenantAdded); ok {
		r.onTenantAdded = append(r.onTenantAdded, v)
	}
	if v, ok := p.(OnScheduleCreated); ok {
		r.onScheduleCreated = append(r.onScheduleCreated, v)
	}
	if v, ok := p.(OnScheduleTriggered); ok {
		r.onScheduleTriggered = append(r.onScheduleTriggered, v)
	}
	if v, ok := p.(OnScheduleExhausted); ok {
		r.onScheduleExhausted = append(r.onScheduleExhausted, v)
	}
	if v, ok := p.(OnScheduleCanceled); ok {
		r.onScheduleCanceled = append(r.onScheduleCanceled, v)
	}
	if v, ok := p.(OnTriggerRejected); ok {
		r.onTriggerRejected = append(r.onTriggerRejected, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	typ  reflect.Type
	name string
}{
	{reflect.TypeFor[OnInit](), "OnInit"},
	{reflect.TypeFor[OnShutdown](), "OnShutdown"},
	{reflect.TypeFor[OnTenantAdded](), "OnTenantAdded"},
	{reflect.TypeFor[OnScheduleCreated](), "OnScheduleCreated"},
	{reflect.TypeFor[OnScheduleTriggered](), "OnScheduleTriggered"},
	{reflect.TypeFor[OnScheduleExhausted](), "OnScheduleExhausted"},
	{reflect.TypeFor[OnScheduleCanceled](), "OnScheduleCanceled"},
	{reflect.TypeFor[OnTriggerRejected](), "OnTriggerRejected"},
}

// implementedInterfaces lists the hook interfaces p implements.
func implementedInterfaces(p Plugin) []string {
	var names []string
	t := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if t.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// dispatch runs hook for every plugin in list, logging failures.
func dispatch[T Plugin](ctx context.Context, r *Registry, list []T, hook string, fn func(T) error) {
	for _, p := range list {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	dispatch(ctx, r, plugins, "OnInit", func(p OnInit) error {
		return p.OnInit(ctx, engine)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	dispatch(ctx, r, plugins, "OnShutdown", func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitTenantAdded emits a tenant added event.
func (r *Registry) EmitTenantAdded(ctx context.Context, t *tenant.Tenant) {
	r.mu.RLock()
	plugins := r.onTenantAdded
	r.mu.RUnlock()

	dispatch(ctx, r, plugins, "OnTenantAdded", func(p OnTenantAdded) error {
		return p.OnTenantAdded(ctx, t)
	})
}

// EmitScheduleCreated emits a schedule created event.
func (r *Registry) EmitScheduleCreated(ctx context.Context, s *schedule.Schedule, deposit types.Amount) {
	r.mu.RLock()
	plugins := r.onScheduleCreated
	r.mu.RUnlock()

	dispatch(ctx, r, plugins, "OnScheduleCreated", func(p OnScheduleCreated) error {
		return p.OnScheduleCreated(ctx, s, deposit)
	})
}

// EmitScheduleTriggered emits a schedule triggered event.
func (r *Registry) EmitScheduleTriggered(ctx context.Context, s *schedule.Schedule, h *transfer.Handle) {
	r.mu.RLock()
	plugins := r.onScheduleTriggered
	r.mu.RUnlock()

	dispatch(ctx, r, plugins, "OnScheduleTriggered", func(p OnScheduleTriggered) error {
		return p.OnScheduleTriggered(ctx, s, h)
	})
}

// EmitScheduleExhausted emits a schedule exhausted event.
func (r *Registry) EmitScheduleExhausted(ctx context.Context, s *schedule.Schedule) {
	r.mu.RLock()
	plugins := r.onScheduleExhausted
	r.mu.RUnlock()

	dispatch(ctx, r, plugins, "OnScheduleExhausted", func(p OnScheduleExhausted) error {
		return p.OnScheduleExhausted(ctx, s)
	})
}

// EmitScheduleCanceled emits a schedule canceled event.
func (r *Registry) EmitScheduleCanceled(ctx context.Context, s *schedule.Schedule, caller string) {
	r.mu.RLock()
	plugins := r.onScheduleCanceled
	r.mu.RUnlock()

	dispatch(ctx, r, plugins, "OnScheduleCanceled", func(p OnScheduleCanceled) error {
		return p.OnScheduleCanceled(ctx, s, caller)
	})
}

// EmitTriggerRejected emits a trigger rejected event.
func (r *Registry) EmitTriggerRejected(ctx context.Context, scheduleID, caller string, reason error) {
	r.mu.RLock()
	plugins := r.onTriggerRejected
	r.mu.RUnlock()

	dispatch(ctx, r, plugins, "OnTriggerRejected", func(p OnTriggerRejected) error {
		return p.OnTriggerRejected(ctx, scheduleID, caller, reason)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins never block the engine for longer than the registry timeout.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
