// Package extension provides the Forge extension adapter for recur.
//
// It implements the forge.Extension interface to integrate the recur engine
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.recur" or "recur" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/recur"
	"github.com/xraph/recur/host"
	"github.com/xraph/recur/store"
	"github.com/xraph/recur/store/memory"
	"github.com/xraph/recur/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "recur"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Recurring-payment authorization engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts recur as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *recur.Engine
	store      store.Store
	custody    *host.Custody
	engineOpts []recur.Option
}

// New creates a new recur Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine.
// This is nil until Register is called.
func (e *Extension) Engine() *recur.Engine { return e.engine }

// Custody returns the custody ledger backing the engine.
// This is nil until Register is called.
func (e *Extension) Custody() *host.Custody { return e.custody }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildEngineOpts()
	if err != nil {
		return err
	}

	e.engine = recur.New(e.store, opts...)

	if err := vessel.Provide(fapp.Container(), func() (*host.Custody, error) {
		return e.custody, nil
	}); err != nil {
		return err
	}
	return vessel.Provide(fapp.Container(), func() (*recur.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("recur: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("recur: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs recur.Option values from the resolved config.
func (e *Extension) buildEngineOpts() ([]recur.Option, error) {
	if e.custody == nil {
		var custodyOpts []host.CustodyOption
		if e.config.InitialBalance != "" {
			balance, err := types.ParseAmount(e.config.InitialBalance)
			if err != nil {
				return nil, fmt.Errorf("recur: initial_balance: %w", err)
			}
			custodyOpts = append(custodyOpts, host.WithInitialBalance(balance))
		}
		for account, value := range e.config.Funds {
			amount, err := types.ParseAmount(value)
			if err != nil {
				return nil, fmt.Errorf("recur: funds[%s]: %w", account, err)
			}
			custodyOpts = append(custodyOpts, host.WithFunds(account, amount))
		}
		e.custody = host.NewCustody(custodyOpts...)
	}

	opts := make([]recur.Option, 0, len(e.engineOpts)+4)
	opts = append(opts,
		recur.WithHost(e.custody),
		recur.WithTrustedInvoker(e.config.TrustedInvoker),
	)

	if e.config.UnitScale != "" {
		scale, err := types.ParseAmount(e.config.UnitScale)
		if err != nil {
			return nil, fmt.Errorf("recur: unit_scale: %w", err)
		}
		opts = append(opts, recur.WithUnitScale(scale))
	}

	if e.config.OpenCancellation {
		opts = append(opts, recur.WithOpenCancellation())
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("recur: configuration is required but not found in config files; " +
				"ensure 'extensions.recur' or 'recur' key exists in your config")
		}

		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("recur: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("trusted_invoker", e.config.TrustedInvoker),
		forge.F("unit_scale", e.config.UnitScale),
		forge.F("open_cancellation", e.config.OpenCancellation),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.recur", "recur"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("recur: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("recur: failed to bind config",
			forge.F("key", key),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.UnitScale == "" {
		cfg.UnitScale = defaults.UnitScale
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.OpenCancellation {
		yamlConfig.OpenCancellation = true
	}

	if yamlConfig.TrustedInvoker == "" {
		yamlConfig.TrustedInvoker = programmaticConfig.TrustedInvoker
	}
	if yamlConfig.UnitScale == "" {
		yamlConfig.UnitScale = programmaticConfig.UnitScale
	}
	if yamlConfig.InitialBalance == "" {
		yamlConfig.InitialBalance = programmaticConfig.InitialBalance
	}
	if len(yamlConfig.Funds) == 0 {
		yamlConfig.Funds = programmaticConfig.Funds
	}

	return mergeWithDefaults(yamlConfig)
}
