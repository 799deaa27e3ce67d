package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	ErrUnknownNetworkType    = errors.New("unknown network type")
	ErrUnknownEnvironment    = errors.New("unknown environment")
	ErrUnknownTrafficProfile = errors.New("unknown traffic profile")
	ErrInvalidConfiguration  = errors.New("invalid configuration")
)

// NetworkType is the radio access generation being sampled
type NetworkType string

const (
	Network4G NetworkType = "4G LTE"
	Network5G NetworkType = "5G NR"
)

// Environment is the deployment environment of the cell
type Environment string

const (
	EnvironmentUrban    Environment = "Urban"
	EnvironmentSuburban Environment = "Suburban"
	EnvironmentRural    Environment = "Rural"
)

// TrafficProfile is the dominant traffic type on the cell
type TrafficProfile string

const (
	TrafficVoIP  TrafficProfile = "VoIP"
	TrafficVideo TrafficProfile = "Video"
	TrafficWeb   TrafficProfile = "Web"
	TrafficIoT   TrafficProfile = "IoT"
)

const (
	MinDevices     = 1
	MaxDevices     = 200
	DefaultDevices = 50
)

// AllNetworkTypes returns the network types in selector order
func AllNetworkTypes() []NetworkType {
	return []NetworkType{Network4G, Network5G}
}

// AllEnvironments returns the environments in selector order
func AllEnvironments() []Environment {
	return []Environment{EnvironmentUrban, EnvironmentSuburban, EnvironmentRural}
}

// AllTrafficProfiles returns the traffic profiles in selector order
func AllTrafficProfiles() []TrafficProfile {
	return []TrafficProfile{TrafficVoIP, TrafficVideo, TrafficWeb, TrafficIoT}
}

// ParseNetworkType accepts the canonical label or a short alias (4g, lte, 5g, nr).
func ParseNetworkType(s string) (NetworkType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "4g lte", "4g", "lte":
		return Network4G, nil
	case "5g nr", "5g", "nr":
		return Network5G, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownNetworkType, s)
}

func ParseEnvironment(s string) (Environment, error) {
	for _, env := range AllEnvironments() {
		if strings.EqualFold(strings.TrimSpace(s), string(env)) {
			return env, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, s)
}

func ParseTrafficProfile(s string) (TrafficProfile, error) {
	for _, tp := range AllTrafficProfiles() {
		if strings.EqualFold(strings.TrimSpace(s), string(tp)) {
			return tp, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTrafficProfile, s)
}

// Valid reports whether n is one of the declared network types
func (n NetworkType) Valid() bool {
	return n == Network4G || n == Network5G
}

func (e Environment) Valid() bool {
	return slices.Contains(AllEnvironments(), e)
}

func (t TrafficProfile) Valid() bool {
	return slices.Contains(AllTrafficProfiles(), t)
}

// Configuration is one user selection of the sampler inputs.
// It is a value type; callers pass copies.
type Configuration struct {
	NetworkType NetworkType    `json:"network_type" yaml:"network_type" validate:"network_type"`
	Devices     int            `json:"devices" yaml:"devices" validate:"min=1,max=200"`
	Environment Environment    `json:"environment" yaml:"environment" validate:"environment"`
	Traffic     TrafficProfile `json:"traffic" yaml:"traffic" validate:"traffic_profile"`
}

// DefaultConfiguration mirrors the initial selector state: 4G LTE, 50 devices, Urban, VoIP
func DefaultConfiguration() Configuration {
	return Configuration{
		NetworkType: Network4G,
		Devices:     DefaultDevices,
		Environment: EnvironmentUrban,
		Traffic:     TrafficVoIP,
	}
}

// NewConfiguration parses the four raw selections and validates the result.
func NewConfiguration(network string, devices int, environment, traffic string) (Configuration, error) {
	net, err := ParseNetworkType(network)
	if err != nil {
		return Configuration{}, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	env, err := ParseEnvironment(environment)
	if err != nil {
		return Configuration{}, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	tp, err := ParseTrafficProfile(traffic)
	if err != nil {
		return Configuration{}, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	cfg := Configuration{NetworkType: net, Devices: devices, Environment: env, Traffic: tp}
	if err := cfg.Validate(); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}

// MetricResult holds the three derived numbers of one sampling
type MetricResult struct {
	ThroughputMbps float64 `json:"throughput_mbps"`
	LatencyMs      float64 `json:"latency_ms"`
	CoverageKm     float64 `json:"coverage_km"`
}

// Simulation is a configuration together with the result computed for it
type Simulation struct {
	Config    Configuration `json:"config"`
	Result    MetricResult  `json:"result"`
	Timestamp time.Time     `json:"timestamp"`
}
