package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/wireless-lab/internal/report"
	"github.com/GoSim-25-26J-441/wireless-lab/internal/sampler"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/logger"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/models"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/utils"
)

// simulateOptions are the sampler selections shared by simulate and report
type simulateOptions struct {
	network     string
	devices     int
	environment string
	traffic     string
	seed        int64
}

func (o *simulateOptions) bind(cmd *cobra.Command) {
	def := models.DefaultConfiguration()
	f := cmd.Flags()
	f.StringVar(&o.network, "network", string(def.NetworkType), `network type: "4G LTE" or "5G NR"`)
	f.IntVar(&o.devices, "devices", def.Devices, fmt.Sprintf("connected devices (%d-%d)", models.MinDevices, models.MaxDevices))
	f.StringVar(&o.environment, "environment", string(def.Environment), "Urban, Suburban or Rural")
	f.StringVar(&o.traffic, "traffic", string(def.Traffic), "VoIP, Video, Web or IoT")
	f.Int64Var(&o.seed, "seed", 0, "random seed; 0 uses sampler.seed from the config")
}

// run samples the selected configuration. The --seed flag wins over the config seed.
func (o *simulateOptions) run(root *rootOptions) (models.Simulation, error) {
	cfg, err := models.NewConfiguration(o.network, o.devices, o.environment, o.traffic)
	if err != nil {
		return models.Simulation{}, err
	}

	seed := o.seed
	if seed == 0 {
		seed = root.cfg.Sampler.Seed
	}
	var src sampler.Source
	if seed != 0 {
		src = utils.NewRandSource(seed)
	}

	sim := sampler.New(src).Run(cfg, time.Now())
	logger.Debug("simulation computed",
		"network", cfg.NetworkType,
		"devices", cfg.Devices,
		"traffic", cfg.Traffic,
		"seed", seed)
	return sim, nil
}

func newSimulateCmd(root *rootOptions) *cobra.Command {
	opts := &simulateOptions{}
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Sample throughput, latency and coverage for one configuration",
		Example: `  wirelesslab simulate --network "5G NR" --devices 120 --environment Rural --traffic Video
  wirelesslab simulate --json --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := opts.run(root)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sim)
			}

			results := lipgloss.JoinVertical(lipgloss.Left,
				titleStyle.Render("Simulation Results"),
				metricLine("Throughput", 10, report.FormatNumber(sim.Result.ThroughputMbps), "Mbps"),
				metricLine("Latency", 10, report.FormatNumber(sim.Result.LatencyMs), "ms"),
				metricLine("Coverage", 10, report.FormatNumber(sim.Result.CoverageKm), "km"),
			)
			summary := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
				titleStyle.Render("Network Topology Summary"),
				report.TopologySummary(sim),
			))
			_, err = fmt.Fprintf(out, "%s\n\n%s\n", results, summary)
			return err
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the simulation as JSON")
	return cmd
}

func newReportCmd(root *rootOptions) *cobra.Command {
	opts := &simulateOptions{}
	var outPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Simulate one configuration and write the text report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := opts.run(root)
			if err != nil {
				return err
			}
			text := report.Report(sim)

			if outPath == "-" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), text)
				return err
			}
			if err := os.WriteFile(outPath, []byte(text), 0o644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			logger.Info("report written", "path", outPath, "network", sim.Config.NetworkType)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Report saved to "+outPath))
			return err
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVarP(&outPath, "out", "o", report.Filename, `output file, "-" for stdout`)
	return cmd
}
