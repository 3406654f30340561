// Package config handles kfix configuration stored in ~/.kfix/config.yaml.
//
// The ANTHROPIC_API_KEY environment variable takes precedence over the
// config file. The config directory is created with 0700 and the file is
// written with 0600 since it holds an API credential.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultModel is the model used when none is configured.
	DefaultModel = "claude-sonnet-4-5-20250929"

	// DefaultCacheTTL is the kubectl result cache lifetime.
	DefaultCacheTTL = 5 * time.Minute
)

// Config holds all kfix configuration.
type Config struct {
	APIKey          string `yaml:"api_key,omitempty"`
	Model           string `yaml:"model,omitempty"`
	CacheTTLSeconds int    `yaml:"cache_ttl,omitempty"`
}

// Dir returns the kfix configuration directory (~/.kfix).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".kfix"), nil
}

// Path returns the configuration file path (~/.kfix/config.yaml).
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the configuration file. A missing file is not an error and
// yields an empty config.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the configuration with restrictive permissions.
func (c *Config) Save() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ResolveAPIKey returns the API key, with the environment taking
// precedence over the config file.
func (c *Config) ResolveAPIKey() string {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key
	}
	return c.APIKey
}

// ResolveModel returns the configured model or the default.
func (c *Config) ResolveModel() string {
	if c.Model != "" {
		return c.Model
	}
	return DefaultModel
}

// ResolveCacheTTL returns the kubectl cache TTL or the default.
func (c *Config) ResolveCacheTTL() time.Duration {
	if c.CacheTTLSeconds > 0 {
		return time.Duration(c.CacheTTLSeconds) * time.Second
	}
	return DefaultCacheTTL
}

// Set updates one configuration key and persists the file.
func Set(key, value string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	switch key {
	case "api-key":
		cfg.APIKey = value
	case "model":
		cfg.Model = value
	case "cache-ttl":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("cache-ttl must be a non-negative number of seconds, got %q", value)
		}
		cfg.CacheTTLSeconds = n
	default:
		return fmt.Errorf("unknown config key %q (valid: api-key, model, cache-ttl)", key)
	}

	return cfg.Save()
}
