// Package invoker drives schedules on a timetable as the engine's trusted
// invoker. Each registered schedule gets a cron entry that triggers one
// occurrence per tick; entries for schedules that no longer exist are dropped.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/xraph/recur"
	"github.com/xraph/recur/transfer"
)

// Triggerer triggers one occurrence of a schedule. *recur.Engine implements it.
type Triggerer interface {
	TriggerTenantExecutable(ctx context.Context, caller, scheduleID string) (*transfer.Handle, error)
}

var _ Triggerer = (*recur.Engine)(nil)

// Invoker triggers registered schedules on cron timetables.
type Invoker struct {
	engine  Triggerer
	account string
	cron    *cron.Cron
	limiter *rate.Limiter
	logger  *slog.Logger

	mu   sync.Mutex
	ctx  context.Context
	jobs map[string]cron.EntryID
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Invoker) { i.logger = l }
}

// WithRateLimit caps triggers at r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(i *Invoker) { i.limiter = rate.NewLimiter(r, burst) }
}

// WithCronOptions passes options to the underlying cron scheduler.
func WithCronOptions(opts ...cron.Option) Option {
	return func(i *Invoker) {
		i.cron = cron.New(append([]cron.Option{cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))}, opts...)...)
	}
}

// New creates an Invoker that triggers on engine as account, which must be
// the engine's trusted invoker.
func New(engine Triggerer, account string, opts ...Option) *Invoker {
	i := &Invoker{
		engine:  engine,
		account: account,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		limiter: rate.NewLimiter(rate.Inf, 0),
		logger:  slog.Default(),
		ctx:     context.Background(),
		jobs:    make(map[string]cron.EntryID),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Add registers scheduleID to be triggered on the cron spec
// (e.g. "0 9 1 * *" or "@every 1h"). Re-adding a schedule replaces its spec.
func (i *Invoker) Add(scheduleID, spec string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	entryID, err := i.cron.AddFunc(spec, func() {
		_, _ = i.RunOnce(i.baseContext(), scheduleID) //nolint:errcheck // logged by RunOnce
	})
	if err != nil {
		return fmt.Errorf("invoker: schedule %s: %w", scheduleID, err)
	}

	if prev, ok := i.jobs[scheduleID]; ok {
		i.cron.Remove(prev)
	}
	i.jobs[scheduleID] = entryID

	i.logger.Info("invoker job added", "schedule_id", scheduleID, "spec", spec)
	return nil
}

// Remove unregisters scheduleID. Removing an unknown schedule is a no-op.
func (i *Invoker) Remove(scheduleID string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if entryID, ok := i.jobs[scheduleID]; ok {
		i.cron.Remove(entryID)
		delete(i.jobs, scheduleID)
		i.logger.Info("invoker job removed", "schedule_id", scheduleID)
	}
}

// Jobs returns the registered schedule IDs in sorted order.
func (i *Invoker) Jobs() []string {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]string, 0, len(i.jobs))
	for scheduleID := range i.jobs {
		out = append(out, scheduleID)
	}
	sort.Strings(out)
	return out
}

// RunOnce triggers a single occurrence of scheduleID, waiting for the rate
// limiter first. A schedule that no longer exists is unregistered.
func (i *Invoker) RunOnce(ctx context.Context, scheduleID string) (*transfer.Handle, error) {
	if err := i.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("invoker: rate limit: %w", err)
	}

	h, err := i.engine.TriggerTenantExecutable(ctx, i.account, scheduleID)
	switch {
	case errors.Is(err, recur.ErrScheduleNotFound):
		i.logger.Info("schedule gone, dropping job", "schedule_id", scheduleID)
		i.Remove(scheduleID)
		return nil, err
	case err != nil:
		i.logger.Warn("scheduled trigger failed",
			"schedule_id", scheduleID,
			"retryable", recur.IsRetryable(err),
			"error", err,
		)
		return nil, err
	}

	i.logger.Debug("scheduled trigger issued",
		"schedule_id", scheduleID,
		"transfer_id", h.ID.String(),
		"remaining", h.Remaining.String(),
	)
	return h, nil
}

// Start begins running cron entries. Jobs use ctx for their triggers.
func (i *Invoker) Start(ctx context.Context) {
	i.mu.Lock()
	i.ctx = ctx
	i.mu.Unlock()

	i.cron.Start()
	i.logger.Info("invoker started", "account", i.account, "jobs", len(i.Jobs()))
}

// Stop halts the scheduler and waits for running triggers or ctx expiry.
func (i *Invoker) Stop(ctx context.Context) error {
	done := i.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *Invoker) baseContext() context.Context {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.ctx
}
