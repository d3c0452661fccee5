// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pulseproto/pulsegate/domain/quota"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Logging   LoggingConfig    `yaml:"logging"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Audit     AuditConfig      `yaml:"audit"`
	Security  SecurityConfig   `yaml:"security"`
	Tiers     map[string]int   `yaml:"tiers"`
	Keys      []KeyConfig      `yaml:"keys"`
	Providers []ProviderConfig `yaml:"providers"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // default /metrics
}

// AuditConfig configures the in-memory audit trail.
type AuditConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

// SecurityConfig configures the injection filter.
type SecurityConfig struct {
	CustomPatterns []PatternConfig `yaml:"custom_patterns"`
}

// PatternConfig is one operator-supplied injection signature.
type PatternConfig struct {
	Pattern  string `yaml:"pattern"`
	Category string `yaml:"category"`
}

// KeyConfig registers one API key at startup.
type KeyConfig struct {
	Key  string `yaml:"key"`
	Tier string `yaml:"tier"`
}

// ProviderConfig configures one HTTP provider backend.
type ProviderConfig struct {
	Name    string        `yaml:"name"`
	Kind    string        `yaml:"kind"` // "http"; the echo provider is always built in
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns a runnable zero-file configuration: default tiers, a demo
// key, and the echo provider only.
func Default() *Config {
	cfg := &Config{
		Tiers: quota.DefaultTiers(),
		Keys:  []KeyConfig{{Key: "demo-key", Tier: "free"}},
	}
	setDefaults(cfg)
	return cfg
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables referenced in the file body.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
//	PULSEGATE_SERVER_HOST         - listen host (default 0.0.0.0)
//	PULSEGATE_SERVER_PORT         - listen port (default 8080)
//	PULSEGATE_LOG_LEVEL           - debug, info, warn, error (default info)
//	PULSEGATE_LOG_FORMAT          - json or console (default json)
//	PULSEGATE_METRICS_ENABLED     - enable /metrics (default true)
//	PULSEGATE_AUDIT_MAX_ENTRIES   - audit trail capacity (default 10000)
//	PULSEGATE_DEMO_KEY            - register this key on the free tier
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries the file first, then environment variables, then
// built-in defaults. The gateway holds no external state, so running with
// zero configuration is always possible.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	if HasEnvConfig() {
		return LoadFromEnv()
	}
	return Default(), nil
}

// HasEnvConfig returns true if any PULSEGATE_* variable is set.
func HasEnvConfig() bool {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "PULSEGATE_") {
			return true
		}
	}
	return false
}

// applyEnvOverrides applies PULSEGATE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PULSEGATE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PULSEGATE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PULSEGATE_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("PULSEGATE_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := os.Getenv("PULSEGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PULSEGATE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("PULSEGATE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("PULSEGATE_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	if v := os.Getenv("PULSEGATE_AUDIT_MAX_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Audit.MaxEntries = n
		}
	}

	if v := os.Getenv("PULSEGATE_DEMO_KEY"); v != "" {
		cfg.Keys = append(cfg.Keys, KeyConfig{Key: v, Tier: "free"})
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Audit.MaxEntries == 0 {
		cfg.Audit.MaxEntries = 10_000
	}

	// Built-in tiers apply unless overridden; a partial tiers block extends
	// rather than replaces the defaults.
	defaults := quota.DefaultTiers()
	if cfg.Tiers == nil {
		cfg.Tiers = defaults
	} else {
		for name, limit := range defaults {
			if _, ok := cfg.Tiers[name]; !ok {
				cfg.Tiers[name] = limit
			}
		}
	}
}

// Validate checks the configuration for internal consistency. Custom
// security patterns are compiled eagerly so a bad regex fails at startup,
// not on the first matching request.
func Validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", cfg.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error; got %q", cfg.Logging.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if cfg.Audit.MaxEntries <= 0 {
		return fmt.Errorf("audit.max_entries must be positive, got %d", cfg.Audit.MaxEntries)
	}

	for name, limit := range cfg.Tiers {
		if limit <= 0 {
			return fmt.Errorf("tiers.%s must be positive, got %d", name, limit)
		}
	}

	for i, k := range cfg.Keys {
		if k.Key == "" {
			return fmt.Errorf("keys[%d].key is required", i)
		}
		if _, ok := cfg.Tiers[k.Tier]; !ok {
			return fmt.Errorf("keys[%d]: unknown tier %q", i, k.Tier)
		}
	}

	for i, p := range cfg.Security.CustomPatterns {
		if p.Pattern == "" {
			return fmt.Errorf("security.custom_patterns[%d].pattern is required", i)
		}
		if p.Category == "" {
			return fmt.Errorf("security.custom_patterns[%d].category is required", i)
		}
		if _, err := regexp.Compile("(?i)" + p.Pattern); err != nil {
			return fmt.Errorf("security.custom_patterns[%d]: %w", i, err)
		}
	}

	seen := map[string]bool{}
	for i, p := range cfg.Providers {
		if p.Name == "" {
			return fmt.Errorf("providers[%d].name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("providers[%d]: duplicate name %q", i, p.Name)
		}
		seen[p.Name] = true
		if p.Kind != "" && p.Kind != "http" {
			return fmt.Errorf("providers[%d].kind must be 'http', got %q", i, p.Kind)
		}
		if p.BaseURL == "" {
			return fmt.Errorf("providers[%d].base_url is required", i)
		}
	}

	return nil
}
