// Package sampler computes the throughput, latency and coverage figures shown
// by the metric sampler. Values are drawn from fixed per-generation ranges and
// scaled by static coefficients; nothing is carried between calls.
package sampler

import (
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/wireless-lab/pkg/models"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/utils"
)

// ReferenceDevices is the load above which throughput and latency degrade
const ReferenceDevices = 50.0

// Source draws uniform samples. *utils.RandSource and utils.FixedSource implement it.
type Source interface {
	UniformFloat64(min, max float64) float64
}

// Range is a half-open sampling interval [Min, Max)
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Modifier scales the sampled base throughput and latency for a traffic profile
type Modifier struct {
	Throughput float64 `json:"throughput"`
	Latency    float64 `json:"latency"`
}

type generationProfile struct {
	throughput Range
	latency    Range
	coverage   float64
}

var generations = map[models.NetworkType]generationProfile{
	models.Network4G: {
		throughput: Range{Min: 30, Max: 70},
		latency:    Range{Min: 20, Max: 60},
		coverage:   1.0,
	},
	models.Network5G: {
		throughput: Range{Min: 150, Max: 1000},
		latency:    Range{Min: 1, Max: 20},
		coverage:   0.8,
	},
}

var trafficModifiers = map[models.TrafficProfile]Modifier{
	models.TrafficVoIP:  {Throughput: 1.1, Latency: 0.9},
	models.TrafficVideo: {Throughput: 0.85, Latency: 1.2},
	models.TrafficWeb:   {Throughput: 1.0, Latency: 1.0},
	models.TrafficIoT:   {Throughput: 1.2, Latency: 0.8},
}

// base cell radius in km
var coverageRadius = map[models.Environment]float64{
	models.EnvironmentUrban:    1,
	models.EnvironmentSuburban: 2.5,
	models.EnvironmentRural:    5,
}

func generation(net models.NetworkType) generationProfile {
	p, ok := generations[net]
	if !ok {
		panic(fmt.Sprintf("sampler: unknown network type %q", net))
	}
	return p
}

// BaseRanges returns the throughput (Mbps) and latency (ms) sampling intervals of a generation.
func BaseRanges(net models.NetworkType) (throughput, latency Range) {
	p := generation(net)
	return p.throughput, p.latency
}

// TrafficModifier returns the multiplier pair applied for a traffic profile.
func TrafficModifier(tp models.TrafficProfile) Modifier {
	m, ok := trafficModifiers[tp]
	if !ok {
		panic(fmt.Sprintf("sampler: unknown traffic profile %q", tp))
	}
	return m
}

// ScaleFactor is max(1, devices/50).
func ScaleFactor(devices int) float64 {
	return utils.AtLeast(float64(devices)/ReferenceDevices, 1.0)
}

// Coverage returns the estimated cell radius in km. It does not sample.
func Coverage(env models.Environment, net models.NetworkType) float64 {
	radius, ok := coverageRadius[env]
	if !ok {
		panic(fmt.Sprintf("sampler: unknown environment %q", env))
	}
	return utils.Round2(radius * generation(net).coverage)
}

// Sampler draws metric results from a Source
type Sampler struct {
	src Source
}

// New returns a Sampler over src. A nil src uses the process-wide random source.
func New(src Source) *Sampler {
	if src == nil {
		src = utils.Default()
	}
	return &Sampler{src: src}
}

// simulate returns unrounded figures. Throughput is drawn before latency.
func (s *Sampler) simulate(devices int, net models.NetworkType, traffic models.TrafficProfile) (throughput, latency float64) {
	p := generation(net)
	mod := TrafficModifier(traffic)

	baseThroughput := s.src.UniformFloat64(p.throughput.Min, p.throughput.Max)
	baseLatency := s.src.UniformFloat64(p.latency.Min, p.latency.Max)

	scale := ScaleFactor(devices)
	return baseThroughput * mod.Throughput / scale, baseLatency * mod.Latency * scale
}

// SimulateMetrics returns throughput in Mbps and latency in ms, rounded to 2 decimals.
// The environment only affects coverage and is accepted for call-site symmetry.
func (s *Sampler) SimulateMetrics(devices int, net models.NetworkType, traffic models.TrafficProfile, _ models.Environment) (throughput, latency float64) {
	t, l := s.simulate(devices, net, traffic)
	return utils.Round2(t), utils.Round2(l)
}

// Simulate computes all three figures for a configuration.
func (s *Sampler) Simulate(cfg models.Configuration) models.MetricResult {
	throughput, latency := s.SimulateMetrics(cfg.Devices, cfg.NetworkType, cfg.Traffic, cfg.Environment)
	return models.MetricResult{
		ThroughputMbps: throughput,
		LatencyMs:      latency,
		CoverageKm:     Coverage(cfg.Environment, cfg.NetworkType),
	}
}

// Run simulates cfg and stamps the result with at.
func (s *Sampler) Run(cfg models.Configuration, at time.Time) models.Simulation {
	return models.Simulation{
		Config:    cfg,
		Result:    s.Simulate(cfg),
		Timestamp: at,
	}
}
