package recur

import (
	"context"
	"log/slog"
	"sync"

	"github.com/xraph/recur/host"
	"github.com/xraph/recur/plugin"
	"github.com/xraph/recur/store"
	"github.com/xraph/recur/types"
)

// Engine is the recurring-payment authorization engine.
//
// All mutating operations are serialized behind a single mutex so that each
// one is an atomic step with respect to the others. Reads go straight to the
// store.
type Engine struct {
	mu      sync.Mutex
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	trustedInvoker   string
	unitScale        types.Amount
	openCancellation bool

	accounts  host.AccountValidator
	balances  host.BalanceReader
	transfers host.TransferRequester
	steps     host.StepCounter
	deposits  host.DepositReceiver
}

// New creates a new Engine over s.
//
// Without host options the engine validates named accounts, numbers steps
// with a strictly increasing sequence and has no custody: triggers fail with
// ErrHostNotConfigured until a BalanceReader and TransferRequester are set.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:     s,
		plugins:   plugin.NewRegistry(),
		logger:    slog.Default(),
		unitScale: types.UnitScale,
		accounts:  host.NamedAccounts{},
		steps:     host.NewSequence(0),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithTrustedInvoker sets the single account allowed to trigger schedules.
// It cannot be changed after construction.
func WithTrustedInvoker(account string) Option {
	return func(e *Engine) {
		e.trustedInvoker = account
	}
}

// WithUnitScale sets the number of base units per whole unit used to scale
// AmountPerOccurrence. A zero scale is ignored.
func WithUnitScale(scale types.Amount) Option {
	return func(e *Engine) {
		if !scale.IsZero() {
			e.unitScale = scale
		}
	}
}

// WithOpenCancellation lets any caller cancel any schedule. By default only
// the schedule owner and the trusted invoker may cancel.
func WithOpenCancellation() Option {
	return func(e *Engine) {
		e.openCancellation = true
	}
}

// WithAccountValidator sets the recipient account validator.
func WithAccountValidator(v host.AccountValidator) Option {
	return func(e *Engine) { e.accounts = v }
}

// WithBalanceReader sets the custodial balance source.
func WithBalanceReader(b host.BalanceReader) Option {
	return func(e *Engine) { e.balances = b }
}

// WithTransferRequester sets the settlement requester.
func WithTransferRequester(t host.TransferRequester) Option {
	return func(e *Engine) { e.transfers = t }
}

// WithStepCounter sets the step source for identifier derivation.
func WithStepCounter(s host.StepCounter) Option {
	return func(e *Engine) { e.steps = s }
}

// WithDepositReceiver sets where schedule deposits are credited.
func WithDepositReceiver(d host.DepositReceiver) Option {
	return func(e *Engine) { e.deposits = d }
}

// WithHost wires every collaborator interface h implements.
func WithHost(h any) Option {
	return func(e *Engine) {
		if v, ok := h.(host.AccountValidator); ok {
			e.accounts = v
		}
		if v, ok := h.(host.BalanceReader); ok {
			e.balances = v
		}
		if v, ok := h.(host.TransferRequester); ok {
			e.transfers = v
		}
		if v, ok := h.(host.StepCounter); ok {
			e.steps = v
		}
		if v, ok := h.(host.DepositReceiver); ok {
			e.deposits = v
		}
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("recur started",
		"trusted_invoker", e.trustedInvoker,
		"unit_scale", e.unitScale.String(),
		"open_cancellation", e.openCancellation,
		"plugins", e.plugins.Count(),
	)

	if e.trustedInvoker == "" {
		e.logger.Warn("no trusted invoker configured, every trigger will be rejected")
	}

	return nil
}

// Stop shuts down plugins and closes the store.
func (e *Engine) Stop() error {
	e.plugins.EmitShutdown(context.Background())
	return e.store.Close()
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// TrustedInvoker returns the account allowed to trigger schedules.
func (e *Engine) TrustedInvoker() string { return e.trustedInvoker }

// UnitScale returns the base units per whole unit.
func (e *Engine) UnitScale() types.Amount { return e.unitScale }
