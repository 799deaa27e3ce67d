package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GoSim-25-26J-441/wireless-lab/pkg/models"
)

const namespace = "wirelesslab"

// Registry holds the metrics exported by the daemon. Each Registry owns its
// prometheus.Registry so tests can create isolated instances.
type Registry struct {
	SimulationsTotal  *prometheus.CounterVec
	SampledThroughput *prometheus.HistogramVec
	SampledLatency    *prometheus.HistogramVec
	ReportsTotal      prometheus.Counter

	NarrationsTotal   *prometheus.CounterVec
	NarrationLines    *prometheus.CounterVec
	PlaybacksActive   prometheus.Gauge
	QoSLookupsTotal   *prometheus.CounterVec
	NotificationsSent *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewRegistry creates and registers every metric
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	r := &Registry{registry: reg}

	r.SimulationsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "simulations_total",
		Help:      "Metric samplings computed, by network type and traffic profile",
	}, []string{"network", "traffic"})

	r.SampledThroughput = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sampled_throughput_mbps",
		Help:      "Distribution of sampled throughput values",
		Buckets:   []float64{5, 10, 25, 50, 75, 100, 250, 500, 750, 1000, 1500},
	}, []string{"network"})

	r.SampledLatency = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sampled_latency_ms",
		Help:      "Distribution of sampled latency values",
		Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200, 400},
	}, []string{"network"})

	r.ReportsTotal = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_downloaded_total",
		Help:      "Plain-text reports served for download",
	})

	r.NarrationsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "narrations_total",
		Help:      "Procedure narrations finished, by procedure and outcome",
	}, []string{"procedure", "outcome"})

	r.NarrationLines = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "narration_lines_total",
		Help:      "Narrated lines emitted, by procedure",
	}, []string{"procedure"})

	r.PlaybacksActive = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "playbacks_active",
		Help:      "Server-side playbacks currently playing",
	})

	r.QoSLookupsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "qos_lookups_total",
		Help:      "QoS mapper lookups, by resulting class",
	}, []string{"class"})

	r.NotificationsSent = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "playback_notifications_total",
		Help:      "Playback completion callbacks, by result",
	}, []string{"result"})

	r.HTTPRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by route and status code",
	}, []string{"route", "code"})

	r.HTTPRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return r
}

// Gatherer exposes the underlying registry, used by tests and the /metrics handler
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveSimulation records one sampling
func (r *Registry) ObserveSimulation(sim models.Simulation) {
	net := string(sim.Config.NetworkType)
	r.SimulationsTotal.WithLabelValues(net, string(sim.Config.Traffic)).Inc()
	r.SampledThroughput.WithLabelValues(net).Observe(sim.Result.ThroughputMbps)
	r.SampledLatency.WithLabelValues(net).Observe(sim.Result.LatencyMs)
}

// ObserveNarration records a finished narration; outcome is "done" or "cancelled"
func (r *Registry) ObserveNarration(procedure, outcome string, lines int) {
	r.NarrationsTotal.WithLabelValues(procedure, outcome).Inc()
	r.NarrationLines.WithLabelValues(procedure).Add(float64(lines))
}

// ObserveHTTP records one served request
func (r *Registry) ObserveHTTP(route string, code int, elapsed time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	r.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
