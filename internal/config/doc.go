// Package config provides 12-factor configuration management for the
// modcrab sandbox subsystem.
//
// Configuration is loaded from environment variables with sensible defaults.
//
// Configuration Sections:
//   - Sandbox: execution limits, pool sizing, profile file path
//   - Logging: log level and output format
//   - RateLimit: sandbox invocation rate limiting
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("sandbox timeout: %s\n", cfg.Sandbox.Timeout)
//
// Environment Variables:
//   - SANDBOX_TIMEOUT, SANDBOX_POOL_SIZE, SANDBOX_CALL_STACK_SIZE,
//     SANDBOX_REGISTRY_SIZE, SANDBOX_PROFILES
//   - LOG_LEVEL, LOG_DEV
//   - SANDBOX_RATE_LIMIT_RPS, SANDBOX_RATE_LIMIT_BURST
package config
