//go:build integration
// +build integration

package integration_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/wireless-lab/internal/labd"
	"github.com/GoSim-25-26J-441/wireless-lab/internal/report"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/config"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/models"
)

func TestIntegration_ConfigAndServicesSmoke(t *testing.T) {
	cfgPath := filepath.Join("..", "..", "config", "wirelesslab.yaml")

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("LoadConfig(%s) failed: %v", cfgPath, err)
	}
	if cfg.Narration.GetPause() != time.Second {
		t.Fatalf("expected 1s pause from %s, got %v", cfgPath, cfg.Narration.GetPause())
	}

	svc := labd.NewServices(cfg)
	defer svc.Close()

	for _, nt := range models.AllNetworkTypes() {
		for _, env := range models.AllEnvironments() {
			for _, tp := range models.AllTrafficProfiles() {
				c := models.Configuration{NetworkType: nt, Devices: models.MaxDevices, Environment: env, Traffic: tp}
				sim := svc.Simulate(c)
				if sim.Result.ThroughputMbps <= 0 || sim.Result.LatencyMs <= 0 || sim.Result.CoverageKm <= 0 {
					t.Fatalf("non-positive metrics for %+v: %+v", c, sim.Result)
				}
				text := report.Report(sim)
				if !strings.Contains(text, "Network Type     : "+string(nt)) {
					t.Fatalf("report missing network type for %+v", c)
				}
			}
		}
	}
}
