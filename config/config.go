package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shajith240/SHARPFLOW-sub002/errors"
	"github.com/shajith240/SHARPFLOW-sub002/pkg/ratelimit"
	"github.com/shajith240/SHARPFLOW-sub002/pkg/retry"
)

const (
	// maxConfigSize bounds config reads; anything larger is a mistake
	maxConfigSize = 1 << 20

	defaultEnvPrefix = "SHARPFLOW"
)

// Duration wraps time.Duration with YAML string parsing ("30s", "5m")
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete notifier configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Hub       HubConfig       `yaml:"hub"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig defines the HTTP listener
type ServerConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	WSPath string `yaml:"ws_path"`
}

// AuthConfig holds the handshake credential settings. The secret normally
// arrives as ${SHARPFLOW_AUTH_SECRET} in the file or via env override.
type AuthConfig struct {
	Secret string `yaml:"secret"`
}

// HubConfig tunes the fan-out hub
type HubConfig struct {
	Heartbeat Duration `yaml:"heartbeat"`
}

// RateLimitConfig defines default admission windows for external credential
// scopes. Zero means the window is untracked.
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	MaxPerDay    int `yaml:"max_per_day"`
}

// ToLimiter converts to the limiter package's config
func (c RateLimitConfig) ToLimiter() ratelimit.Config {
	return ratelimit.Config{
		MaxPerSecond: c.MaxPerSecond,
		MaxPerMinute: c.MaxPerMinute,
		MaxPerDay:    c.MaxPerDay,
	}
}

// RetryConfig defines default retry policy for external calls
type RetryConfig struct {
	MaxRetries int      `yaml:"max_retries"`
	BaseDelay  Duration `yaml:"base_delay"`
	MaxDelay   Duration `yaml:"max_delay"`
	Multiplier float64  `yaml:"multiplier"`
	Jitter     bool     `yaml:"jitter"`
}

// ToExecutor converts to the retry package's config
func (c RetryConfig) ToExecutor() retry.Config {
	return retry.Config{
		MaxRetries: c.MaxRetries,
		BaseDelay:  c.BaseDelay.Std(),
		MaxDelay:   c.MaxDelay.Std(),
		Multiplier: c.Multiplier,
		Jitter:     c.Jitter,
	}
}

// LoggingConfig controls structured log output
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Loader resolves configuration from defaults, file and environment
type Loader struct {
	envPrefix string
}

// NewLoader creates a loader with the standard env prefix
func NewLoader() *Loader {
	return &Loader{envPrefix: defaultEnvPrefix}
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:   "0.0.0.0",
			Port:   8080,
			WSPath: "/ws",
		},
		Hub: HubConfig{
			Heartbeat: Duration(30 * time.Second),
		},
		RateLimit: RateLimitConfig{
			MaxPerSecond: 5,
			MaxPerMinute: 100,
			MaxPerDay:    2000,
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  Duration(time.Second),
			MaxDelay:   Duration(30 * time.Second),
			Multiplier: 2.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load resolves configuration without a file: defaults plus env overrides
func (l *Loader) Load() (*Config, error) {
	cfg := Defaults()
	l.applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML config file over the defaults, expands ${VAR}
// references, applies env overrides and validates.
func (l *Loader) LoadFile(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "Loader", "LoadFile", "stat config file")
	}
	if info.Size() > maxConfigSize {
		return nil, errors.WrapValidation(errors.ErrInvalidConfig,
			"Loader", "LoadFile", fmt.Sprintf("config file exceeds %d bytes", maxConfigSize))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Loader", "LoadFile", "read config file")
	}

	expanded := os.Expand(string(raw), func(key string) string {
		return os.Getenv(key)
	})

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, errors.WrapValidation(err, "Loader", "LoadFile", "parse yaml")
	}

	l.applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets individual settings be set from the environment
// without a config file edit.
func (l *Loader) applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(l.envPrefix + "_AUTH_SECRET"); val != "" {
		cfg.Auth.Secret = val
	}
	if val := os.Getenv(l.envPrefix + "_SERVER_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = port
		}
	}
	if val := os.Getenv(l.envPrefix + "_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv(l.envPrefix + "_LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
	if val := os.Getenv(l.envPrefix + "_HEARTBEAT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Hub.Heartbeat = Duration(d)
		}
	}
}

// Validate checks the configuration for values the process cannot run with
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.WrapValidation(errors.ErrInvalidConfig,
			"Config", "Validate", fmt.Sprintf("invalid server port %d", c.Server.Port))
	}
	if c.Server.WSPath == "" || c.Server.WSPath[0] != '/' {
		return errors.WrapValidation(errors.ErrInvalidConfig,
			"Config", "Validate", fmt.Sprintf("ws path %q must start with /", c.Server.WSPath))
	}
	if c.Auth.Secret == "" {
		return errors.WrapValidation(errors.ErrInvalidConfig,
			"Config", "Validate", "auth secret is required")
	}
	if c.Hub.Heartbeat.Std() <= 0 {
		return errors.WrapValidation(errors.ErrInvalidConfig,
			"Config", "Validate", "hub heartbeat must be positive")
	}
	if c.RateLimit.MaxPerSecond < 0 || c.RateLimit.MaxPerMinute < 0 || c.RateLimit.MaxPerDay < 0 {
		return errors.WrapValidation(errors.ErrInvalidConfig,
			"Config", "Validate", "rate limit maxima must not be negative")
	}
	if c.Retry.MaxRetries < 0 {
		return errors.WrapValidation(errors.ErrInvalidConfig,
			"Config", "Validate", "max retries must not be negative")
	}
	if c.Retry.Multiplier < 1 {
		return errors.WrapValidation(errors.ErrInvalidConfig,
			"Config", "Validate", "retry multiplier must be at least 1")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapValidation(errors.ErrInvalidConfig,
			"Config", "Validate", fmt.Sprintf("unknown log level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return errors.WrapValidation(errors.ErrInvalidConfig,
			"Config", "Validate", fmt.Sprintf("unknown log format %q", c.Logging.Format))
	}

	return nil
}
