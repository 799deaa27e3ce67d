package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/wireless-lab/pkg/config"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/logger"
)

// rootOptions holds the persistent flags and the configuration they resolve to
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "wirelesslab",
		Short: "NextGen wireless network simulator",
		Long: `Sample throughput, latency and coverage for 4G/5G cells, download the
network report and play mobile signaling procedures step by step.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (json, text)")

	cmd.AddCommand(
		newServeCmd(opts),
		newSimulateCmd(opts),
		newReportCmd(opts),
		newProceduresCmd(opts),
		newNarrateCmd(opts),
		newQoSCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

// load reads the config file, applies flag overrides and installs the logger.
// Logs go to stderr so command output stays pipeable.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.SetDefault(logger.NewWithFormat(cfg.LogFormat, cfg.LogLevel, cmd.ErrOrStderr()))
	o.cfg = cfg
	return nil
}

func newConfigCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := root.cfg.Dump()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
