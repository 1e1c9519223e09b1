package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Sandbox   SandboxConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// SandboxConfig holds script sandbox settings.
type SandboxConfig struct {
	Timeout       time.Duration `envconfig:"SANDBOX_TIMEOUT" default:"5s"`
	PoolSize      int           `envconfig:"SANDBOX_POOL_SIZE" default:"4"`
	CallStackSize int           `envconfig:"SANDBOX_CALL_STACK_SIZE" default:"120"`
	RegistrySize  int           `envconfig:"SANDBOX_REGISTRY_SIZE" default:"4096"`
	ProfilePath   string        `envconfig:"SANDBOX_PROFILES" default:""`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig caps sandbox invocations per second; zero disables it.
type RateLimitConfig struct {
	RunsPerSecond int `envconfig:"SANDBOX_RATE_LIMIT_RPS" default:"0"`
	Burst         int `envconfig:"SANDBOX_RATE_LIMIT_BURST" default:"0"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Sandbox: SandboxConfig{
			Timeout:       5 * time.Second,
			PoolSize:      4,
			CallStackSize: 120,
			RegistrySize:  4096,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}
