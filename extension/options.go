package extension

import (
	"github.com/xraph/recur"
	"github.com/xraph/recur/host"
	"github.com/xraph/recur/plugin"
	"github.com/xraph/recur/store"
)

// Option configures the recur Forge extension.
type Option func(*Extension)

// WithStore sets the store for the recur engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithCustody sets the custody ledger. By default the extension creates an
// in-process host.Custody.
func WithCustody(c *host.Custody) Option {
	return func(e *Extension) {
		e.custody = c
	}
}

// WithEngineOption passes a recur.Option through to the underlying engine.
// Pass-through options are applied after config-derived ones.
func WithEngineOption(opt recur.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a recur plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, recur.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithTrustedInvoker sets the account allowed to trigger schedules.
func WithTrustedInvoker(account string) Option {
	return func(e *Extension) { e.config.TrustedInvoker = account }
}

// WithUnitScale sets the base units per whole unit, as a decimal string.
func WithUnitScale(scale string) Option {
	return func(e *Extension) { e.config.UnitScale = scale }
}

// WithOpenCancellation lets any caller cancel any schedule.
func WithOpenCancellation() Option {
	return func(e *Extension) { e.config.OpenCancellation = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
