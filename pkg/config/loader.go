package config

import (
	"fmt"
	"net"
	"os"
	"time"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path when it is non-empty and returns the defaults otherwise
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadConfig(path)
}

// Validate re-checks a configuration after flag overrides have been applied
func (c *Config) Validate() error {
	return validateConfig(c)
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("invalid log_format: %s (must be json or text)", cfg.LogFormat)
	}

	if err := validateHTTP(&cfg.HTTP); err != nil {
		return fmt.Errorf("http validation failed: %w", err)
	}

	if cfg.GRPC.Enabled {
		if err := validateAddr(cfg.GRPC.Addr); err != nil {
			return fmt.Errorf("grpc validation failed: %w", err)
		}
	}

	if err := validateNarration(&cfg.Narration); err != nil {
		return fmt.Errorf("narration validation failed: %w", err)
	}

	if err := validateNotifications(&cfg.Notifications); err != nil {
		return fmt.Errorf("notifications validation failed: %w", err)
	}

	if cfg.Metrics.Enabled && (cfg.Metrics.Path == "" || cfg.Metrics.Path[0] != '/') {
		return fmt.Errorf("metrics path must start with '/', got %q", cfg.Metrics.Path)
	}

	return nil
}

func validateAddr(addr string) error {
	if addr == "" {
		return fmt.Errorf("addr cannot be empty")
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid addr %q: %w", addr, err)
	}
	return nil
}

func validateDuration(field, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s format: %w", field, err)
	}
	if d < 0 {
		return fmt.Errorf("%s cannot be negative", field)
	}
	return nil
}

func validateHTTP(h *HTTPConfig) error {
	if err := validateAddr(h.Addr); err != nil {
		return err
	}
	for field, value := range map[string]string{
		"read_header_timeout": h.ReadHeaderTimeout,
		"write_timeout":       h.WriteTimeout,
		"idle_timeout":        h.IdleTimeout,
		"shutdown_timeout":    h.ShutdownTimeout,
	} {
		if err := validateDuration(field, value); err != nil {
			return err
		}
	}
	return nil
}

func validateNarration(n *NarrationConfig) error {
	if err := validateDuration("pause", n.Pause); err != nil {
		return err
	}
	if err := validateDuration("max_pause", n.MaxPause); err != nil {
		return err
	}
	if !n.AllowsPause(n.GetPause()) {
		return fmt.Errorf("pause %s exceeds max_pause %s", n.GetPause(), n.GetMaxPause())
	}
	return nil
}

func validateNotifications(n *NotificationConfig) error {
	if n.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}
	if n.Backoff != "constant" && n.Backoff != "exponential" {
		return fmt.Errorf("backoff must be 'constant' or 'exponential', got %s", n.Backoff)
	}
	if n.BaseMs < 0 || n.MaxMs < 0 {
		return fmt.Errorf("base_ms and max_ms cannot be negative")
	}
	return validateDuration("timeout", n.Timeout)
}
