package config

import "time"

// Config represents the wirelesslab daemon and CLI configuration
type Config struct {
	LogLevel      string             `yaml:"log_level"`
	LogFormat     string             `yaml:"log_format"` // json or text
	HTTP          HTTPConfig         `yaml:"http"`
	GRPC          GRPCConfig         `yaml:"grpc"`
	Sampler       SamplerConfig      `yaml:"sampler"`
	Narration     NarrationConfig    `yaml:"narration"`
	Notifications NotificationConfig `yaml:"notifications"`
	Metrics       MetricsConfig      `yaml:"metrics"`
}

// HTTPConfig configures the HTTP listener. Timeouts are Go duration strings.
type HTTPConfig struct {
	Addr              string `yaml:"addr"`
	ReadHeaderTimeout string `yaml:"read_header_timeout"`
	WriteTimeout      string `yaml:"write_timeout"` // 0s disables; narration streams outlive short timeouts
	IdleTimeout       string `yaml:"idle_timeout"`
	ShutdownTimeout   string `yaml:"shutdown_timeout"`
}

type GRPCConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// SamplerConfig configures the random source behind the metric sampler
type SamplerConfig struct {
	Seed int64 `yaml:"seed"` // 0 seeds from the clock
}

// NarrationConfig configures procedure playback pacing
type NarrationConfig struct {
	Pause    string `yaml:"pause"`     // pause between narrated lines, e.g. "1s"
	MaxPause string `yaml:"max_pause"` // upper bound for client-requested pauses
}

// NotificationConfig configures playback completion callbacks
type NotificationConfig struct {
	MaxRetries int    `yaml:"max_retries"`
	Backoff    string `yaml:"backoff"` // constant or exponential
	BaseMs     int    `yaml:"base_ms"`
	MaxMs      int    `yaml:"max_ms"`
	Timeout    string `yaml:"timeout"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: "5s",
			WriteTimeout:      "0s",
			IdleTimeout:       "120s",
			ShutdownTimeout:   "10s",
		},
		GRPC: GRPCConfig{
			Enabled: true,
			Addr:    ":50051",
		},
		Narration: NarrationConfig{
			Pause:    "1s",
			MaxPause: "10s",
		},
		Notifications: NotificationConfig{
			MaxRetries: 3,
			Backoff:    "exponential",
			BaseMs:     1000,
			MaxMs:      30000,
			Timeout:    "10s",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// mustDuration parses a duration that validateConfig has already accepted.
func mustDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// GetPause returns the default pause between narrated lines
func (n NarrationConfig) GetPause() time.Duration {
	return mustDuration(n.Pause, time.Second)
}

// GetMaxPause returns the largest pause a client may request. Zero means unbounded.
func (n NarrationConfig) GetMaxPause() time.Duration {
	return mustDuration(n.MaxPause, 10*time.Second)
}

// AllowsPause reports whether d is within [0, max_pause]. A zero max_pause
// accepts any non-negative pause.
func (n NarrationConfig) AllowsPause(d time.Duration) bool {
	max := n.GetMaxPause()
	return d >= 0 && (max == 0 || d <= max)
}

func (h HTTPConfig) GetReadHeaderTimeout() time.Duration {
	return mustDuration(h.ReadHeaderTimeout, 5*time.Second)
}

func (h HTTPConfig) GetWriteTimeout() time.Duration {
	return mustDuration(h.WriteTimeout, 0)
}

func (h HTTPConfig) GetIdleTimeout() time.Duration {
	return mustDuration(h.IdleTimeout, 120*time.Second)
}

func (h HTTPConfig) GetShutdownTimeout() time.Duration {
	return mustDuration(h.ShutdownTimeout, 10*time.Second)
}

func (n NotificationConfig) GetTimeout() time.Duration {
	return mustDuration(n.Timeout, 10*time.Second)
}
