// Package report renders sampler results as the downloadable plain-text report
// and the on-screen topology summary.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/wireless-lab/pkg/models"
)

const (
	Filename    = "network_report.txt"
	ContentType = "text/plain"

	TimestampLayout = "2006-01-02 15:04:05"
)

// FormatNumber renders v in its shortest form, keeping one decimal for
// integral values (5 renders as "5.0").
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Report renders the downloadable report. It begins with a blank line.
func Report(sim models.Simulation) string {
	var b strings.Builder
	b.WriteString("\n===== NextGen Wireless Network Report =====\n")
	fmt.Fprintf(&b, "Timestamp: %s\n", sim.Timestamp.Format(TimestampLayout))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Network Type     : %s\n", sim.Config.NetworkType)
	fmt.Fprintf(&b, "Traffic Profile  : %s\n", sim.Config.Traffic)
	fmt.Fprintf(&b, "Environment      : %s\n", sim.Config.Environment)
	fmt.Fprintf(&b, "Devices Connected: %d\n", sim.Config.Devices)
	b.WriteString("\n--- Simulation Results ---\n")
	fmt.Fprintf(&b, "Throughput        : %s Mbps\n", FormatNumber(sim.Result.ThroughputMbps))
	fmt.Fprintf(&b, "Latency           : %s ms\n", FormatNumber(sim.Result.LatencyMs))
	fmt.Fprintf(&b, "Coverage Estimate : %s km\n", FormatNumber(sim.Result.CoverageKm))
	b.WriteString("\nThank you for using NextGen Simulator!\n")
	return b.String()
}

// TopologySummary renders the "Network Topology Summary" block
func TopologySummary(sim models.Simulation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Network Type: %s\n", sim.Config.NetworkType)
	fmt.Fprintf(&b, "Traffic Type: %s\n", sim.Config.Traffic)
	fmt.Fprintf(&b, "Devices: %d\n", sim.Config.Devices)
	fmt.Fprintf(&b, "Environment: %s\n", sim.Config.Environment)
	fmt.Fprintf(&b, "Throughput: %s Mbps\n", FormatNumber(sim.Result.ThroughputMbps))
	fmt.Fprintf(&b, "Latency: %s ms\n", FormatNumber(sim.Result.LatencyMs))
	fmt.Fprintf(&b, "Coverage Radius: %s km\n", FormatNumber(sim.Result.CoverageKm))
	return b.String()
}

// ContentDisposition returns the header value that makes browsers save the report
func ContentDisposition() string {
	return fmt.Sprintf("attachment; filename=%q", Filename)
}
