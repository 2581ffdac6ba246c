package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/meshblock/conflator/internal/config"
	"github.com/meshblock/conflator/internal/logging"
	"github.com/meshblock/conflator/internal/synth"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	closer io.Closer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	a := &app{logger: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:          "conflator",
		Short:        "Conflate NGD and EGP meshblock partitions",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.closer != nil {
				a.closer.Close()
			}
		},
	}

	f := cmd.PersistentFlags()
	f.String(config.KeyLogLevel, "info", "log level (trace, debug, info, warn, error, off)")
	f.String(config.KeyLogFormat, "auto", "log format (auto, json, console)")
	f.String(config.KeyLogOutput, "stderr", "log destination (stderr, stdout, discard or a file path)")

	cmd.AddCommand(runCmd(a))
	cmd.AddCommand(validateCmd(a))
	cmd.AddCommand(serveCmd(a))
	cmd.AddCommand(synthCmd(a))
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	logger, closer, err := logging.New(cfg.Logging())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.closer = closer
	a.logger, _ = logging.WithRunID(logger.With().Str("command", cmd.Name()).Logger())
	return nil
}

func runFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64(config.KeyThreshold, 0.8, "containment threshold in [0,1]")
	f.IntP(config.KeyWorkers, "w", 0, "overlay workers (0 means one per CPU)")
}

func runCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [project-dir] [source]",
		Short: "Conflate one source of a project and write the report",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConflate(cmd.Context(), args[0], optionalArg(args, 1))
		},
	}
	runFlags(cmd)
	f := cmd.Flags()
	f.StringP(config.KeyFormat, "f", "table", "output format (table, json, yaml, csv, geojson)")
	f.StringP(config.KeyOutput, "o", "-", "output file, - for stdout")
	f.String(config.KeyMetricsFile, "", "write Prometheus metrics to this textfile")
	return cmd
}

func validateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [project-dir] [source]",
		Short: "Validate a project and its partitions without conflating",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runValidate(args[0], optionalArg(args, 1))
		},
	}
}

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [project-dir] [source]",
		Short: "Conflate a source once and serve the results over HTTP",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd.Context(), args[0], optionalArg(args, 1))
		},
	}
	runFlags(cmd)
	cmd.Flags().String(config.KeyAddr, ":8080", "listen address")
	return cmd
}

func synthCmd(a *app) *cobra.Command {
	o := synth.DefaultOptions
	cmd := &cobra.Command{
		Use:   "synth [out-dir]",
		Short: "Write a synthetic NGD/EGP project for trials",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.runSynth(args[0], o)
		},
	}
	f := cmd.Flags()
	f.Int64Var(&o.Seed, "seed", o.Seed, "random seed")
	f.IntVar(&o.NGDBlocks, "ngd-blocks", o.NGDBlocks, "number of NGD blocks")
	f.IntVar(&o.EGPBlocks, "egp-blocks", o.EGPBlocks, "number of EGP blocks")
	f.Float64Var(&o.Width, "width", o.Width, "extent width")
	f.Float64Var(&o.Height, "height", o.Height, "extent height")
	f.BoolVar(&o.GridEGP, "grid-egp", false, "make the EGP layer a regular grid")
	return cmd
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
