package extension

// Config holds the recur extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.recur" or "recur" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// TrustedInvoker is the only account allowed to trigger schedules.
	// When empty every trigger is rejected.
	TrustedInvoker string `json:"trusted_invoker" mapstructure:"trusted_invoker" yaml:"trusted_invoker"`

	// UnitScale is the decimal number of base units per whole unit
	// (default: 10^24).
	UnitScale string `json:"unit_scale" mapstructure:"unit_scale" yaml:"unit_scale"`

	// OpenCancellation lets any caller cancel any schedule.
	OpenCancellation bool `json:"open_cancellation" mapstructure:"open_cancellation" yaml:"open_cancellation"`

	// InitialBalance seeds the in-process custody, in base units.
	InitialBalance string `json:"initial_balance" mapstructure:"initial_balance" yaml:"initial_balance"`

	// Funds seeds funded account balances in the in-process custody, in
	// base units. Deposits draw on these.
	Funds map[string]string `json:"funds" mapstructure:"funds" yaml:"funds"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		UnitScale: "1000000000000000000000000",
	}
}
