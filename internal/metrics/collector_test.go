package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/GoSim-25-26J-441/wireless-lab/pkg/models"
)

func TestObserveSimulation(t *testing.T) {
	r := NewRegistry()
	sim := models.Simulation{
		Config: models.DefaultConfiguration(),
		Result: models.MetricResult{ThroughputMbps: 48.2, LatencyMs: 31.5, CoverageKm: 1},
	}

	r.ObserveSimulation(sim)
	r.ObserveSimulation(sim)

	if got := testutil.ToFloat64(r.SimulationsTotal.WithLabelValues("4G LTE", "VoIP")); got != 2 {
		t.Errorf("expected 2 simulations, got %v", got)
	}
	if n := testutil.CollectAndCount(r.SampledThroughput); n != 1 {
		t.Errorf("expected one throughput series, got %d", n)
	}
}

func TestObserveNarration(t *testing.T) {
	r := NewRegistry()
	r.ObserveNarration("pdp-context", "done", 11)
	r.ObserveNarration("pdp-context", "cancelled", 3)

	if got := testutil.ToFloat64(r.NarrationsTotal.WithLabelValues("pdp-context", "done")); got != 1 {
		t.Errorf("expected 1 done narration, got %v", got)
	}
	if got := testutil.ToFloat64(r.NarrationLines.WithLabelValues("pdp-context")); got != 14 {
		t.Errorf("expected 14 lines, got %v", got)
	}
}

func TestObserveHTTP(t *testing.T) {
	r := NewRegistry()
	r.ObserveHTTP("/v1/qos", http.StatusOK, 3*time.Millisecond)
	r.ObserveHTTP("/v1/qos", http.StatusBadRequest, time.Millisecond)

	if got := testutil.ToFloat64(r.HTTPRequestsTotal.WithLabelValues("/v1/qos", "400")); got != 1 {
		t.Errorf("expected one 400, got %v", got)
	}
}

func TestRegistriesAreIsolated(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	a.ReportsTotal.Inc()
	if got := testutil.ToFloat64(b.ReportsTotal); got != 0 {
		t.Errorf("expected isolated registries, got %v", got)
	}
}

func TestHandlerExposition(t *testing.T) {
	r := NewRegistry()
	r.ReportsTotal.Inc()
	r.QoSLookupsTotal.WithLabelValues("Conversational").Inc()

	rr := httptest.NewRecorder()
	r.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"wirelesslab_reports_downloaded_total 1",
		`wirelesslab_qos_lookups_total{class="Conversational"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected exposition to contain %q", want)
		}
	}
}
