// Package cli exposes the export job as a command line program.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sfo_flights/internal/config"
	"sfo_flights/internal/daemon"
)

type options struct {
	configPath string
	verbose    bool
	logOut     io.Writer
}

// NewRootCmd creates the root command. Without a sub-command it runs one
// fetch and upload cycle and returns its error.
func NewRootCmd() *cobra.Command {
	opts := &options{logOut: os.Stdout}

	rootCmd := &cobra.Command{
		Use:   "sfo-flights",
		Short: "Export SFO flight arrivals to object storage as CSV",
		Long: `sfo-flights fetches United flight arrivals at San Francisco International
Airport from the open-data API and writes them as a CSV object to S3.
Each invocation runs one export and exits non-zero if the fetch or the upload failed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(opts)
			if err != nil {
				return err
			}
			return runOnce(cmd.Context(), cfg)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newScheduleCmd(opts))

	return rootCmd
}

func newScheduleCmd(opts *options) *cobra.Command {
	var every time.Duration

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the export repeatedly until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(opts)
			if err != nil {
				return err
			}
			if every > 0 {
				cfg.Schedule.Interval = every
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().DurationVar(&every, "every", 0, "interval between runs (overrides schedule.interval)")

	return cmd
}

// setup loads configuration and installs the default logger
func setup(opts *options) (*config.Config, error) {
	if opts.configPath != "" {
		os.Setenv(config.ConfigPathEnv, opts.configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.SetDefault(newLogger(opts.logOut, cfg.Log, opts.verbose))
	return cfg, nil
}

func runOnce(ctx context.Context, cfg *config.Config) error {
	d, err := daemon.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			slog.Error("Error closing storage", "error", err)
		}
	}()

	return d.RunOnce(ctx)
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := daemon.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			slog.Error("Error closing storage", "error", err)
		}
	}()

	slog.Info("Starting scheduled exports", "interval", cfg.Schedule.Interval)
	d.Serve(ctx)
	slog.Info("Shutdown complete")

	return nil
}
