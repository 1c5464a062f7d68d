package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xraph/recur/types"
)

// EnvJWTSecret overrides auth.jwt_secret when set.
const EnvJWTSecret = "RECUR_JWT_SECRET"

// Config is the recurd configuration file.
type Config struct {
	Server struct {
		Addr            string        `yaml:"addr"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`

	Engine struct {
		TrustedInvoker   string `yaml:"trusted_invoker"`
		UnitScale        string `yaml:"unit_scale"`
		OpenCancellation bool   `yaml:"open_cancellation"`
		InitialBalance   string `yaml:"initial_balance"`
		// Funds seeds funded account balances, in base units.
		Funds map[string]string `yaml:"funds"`
	} `yaml:"engine"`

	Store struct {
		Driver string `yaml:"driver"`
		Redis  struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"store"`

	Settlement struct {
		AMQPURL  string `yaml:"amqp_url"`
		Queue    string `yaml:"queue"`
		Exchange string `yaml:"exchange"`
	} `yaml:"settlement"`

	Invoker struct {
		Enabled       bool         `yaml:"enabled"`
		RatePerSecond float64      `yaml:"rate_per_second"`
		Burst         int          `yaml:"burst"`
		Jobs          []InvokerJob `yaml:"jobs"`
	} `yaml:"invoker"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
}

// InvokerJob binds a schedule to a cron spec.
type InvokerJob struct {
	ScheduleID string `yaml:"schedule_id"`
	Spec       string `yaml:"spec"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Server.ShutdownTimeout = 10 * time.Second
	cfg.Store.Driver = "memory"
	cfg.Settlement.Queue = "recur.transfers"
	cfg.Invoker.Burst = 1
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	return cfg
}

// LoadConfig reads path over the defaults. An empty path uses defaults only.
// Environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if secret := os.Getenv(EnvJWTSecret); secret != "" {
		cfg.Auth.JWTSecret = secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration errors.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("auth.jwt_secret is required (or set %s)", EnvJWTSecret))
	}
	switch c.Store.Driver {
	case "memory":
	case "redis":
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not supported", c.Store.Driver))
	}
	for _, account := range slices.Sorted(maps.Keys(c.Engine.Funds)) {
		if _, err := types.ParseAmount(c.Engine.Funds[account]); err != nil {
			errs = append(errs, fmt.Errorf("engine.funds[%s]: %w", account, err))
		}
	}
	if c.Invoker.Enabled && c.Engine.TrustedInvoker == "" {
		errs = append(errs, errors.New("invoker.enabled requires engine.trusted_invoker"))
	}
	for i, job := range c.Invoker.Jobs {
		if job.ScheduleID == "" || job.Spec == "" {
			errs = append(errs, fmt.Errorf("invoker.jobs[%d] needs schedule_id and spec", i))
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// NewLogger builds the process logger from the log section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level) //nolint:errcheck // checked by Validate
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(c.Log.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
