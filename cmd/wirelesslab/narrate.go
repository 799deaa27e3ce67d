package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/GoSim-25-26J-441/wireless-lab/internal/labd"
	"github.com/GoSim-25-26J-441/wireless-lab/internal/narrator"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/logger"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/utils"
)

func newProceduresCmd(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "procedures",
		Short: "List the narrated procedures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			procs := narrator.DefaultCatalog().List()
			rows := make([][]string, 0, len(procs))
			for _, p := range procs {
				lines := strconv.Itoa(len(p.Lines))
				if p.Kind == narrator.KindLookup {
					lines = "-"
				}
				rows = append(rows, []string{p.ID, p.Name, string(p.Kind), lines})
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), table([]string{"ID", "NAME", "KIND", "LINES"}, rows))
			return err
		},
	}
}

func newNarrateCmd(root *rootOptions) *cobra.Command {
	var (
		pause  time.Duration
		app    string
		remote string
	)

	cmd := &cobra.Command{
		Use:   "narrate <procedure>",
		Short: "Play a signaling procedure line by line",
		Example: `  wirelesslab narrate pdp-context --pause 500ms
  wirelesslab narrate qos-mapper --app "Online Gaming"
  wirelesslab narrate security --remote localhost:50051`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("pause") {
				pause = root.cfg.Narration.GetPause()
			}
			if !root.cfg.Narration.AllowsPause(pause) {
				if maxPause := root.cfg.Narration.GetMaxPause(); maxPause > 0 {
					return fmt.Errorf("pause must be between 0s and %s", maxPause)
				}
				return fmt.Errorf("pause cannot be negative")
			}

			out := cmd.OutOrStdout()
			emit := func(index, total int, line string) error {
				counter := fmt.Sprintf("[%d/%d]", index+1, total)
				_, err := fmt.Fprintf(out, "%s %s\n", stepStyle.Render(counter), line)
				return err
			}

			var err error
			if remote != "" {
				err = narrateRemote(cmd.Context(), remote, args[0], app, pause, emit)
			} else {
				err = narrateLocal(cmd.Context(), args[0], app, pause, emit)
			}
			if isCancellation(err) {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("narration stopped"))
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&pause, "pause", time.Second, "pause between lines")
	cmd.Flags().StringVar(&app, "app", "", "application type for the QoS mapper")
	cmd.Flags().StringVar(&remote, "remote", "", "play through a daemon's gRPC address instead of locally")
	return cmd
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || status.Code(err) == codes.Canceled
}

func narrateLocal(ctx context.Context, id, app string, pause time.Duration, emit func(index, total int, line string) error) error {
	proc, steps, err := narrator.DefaultCatalog().Sequence(id, app, pause)
	if err != nil {
		return err
	}
	logger.Debug("narration started", "procedure", proc.ID, "pause", pause)
	return narrator.Play(ctx, steps, utils.RealClock{}, func(s narrator.Step) error {
		return emit(s.Index, s.Total, s.Line)
	})
}

func narrateRemote(ctx context.Context, addr, id, app string, pause time.Duration, emit func(index, total int, line string) error) error {
	// the total is only known locally; the daemon validates the procedure
	total := 0
	if proc, err := narrator.DefaultCatalog().Get(id); err == nil {
		total = max(len(proc.Lines), 1)
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	logger.Debug("remote narration started", "addr", addr, "procedure", id)
	return labd.NewClient(conn).Narrate(ctx, id, app, pause.Milliseconds(), func(index int, line string) error {
		return emit(index, total, line)
	})
}

func newQoSCmd(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "qos [application]",
		Short: "Show the QoS class of an application type, or the whole table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				q, err := narrator.LookupQoS(args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, q.Line())
				return err
			}
			return writeQoSTable(out)
		},
	}
}

func writeQoSTable(out io.Writer) error {
	classes := narrator.QoSTable()
	rows := make([][]string, 0, len(classes))
	for _, q := range classes {
		gbr := "No"
		if q.Guaranteed {
			gbr = "Yes"
		}
		rows = append(rows, []string{q.Application, q.Class, q.DelayBound, gbr})
	}
	_, err := fmt.Fprint(out, table([]string{"APPLICATION", "QOS CLASS", "DELAY", "GUARANTEED BITRATE"}, rows))
	return err
}
