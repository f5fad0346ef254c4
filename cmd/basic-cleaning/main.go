// Command basic-cleaning downloads a raw listings artifact, drops rows whose
// price is outside [min_price, max_price], normalizes last_review and
// publishes the result as a new artifact.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pricing-pipeline/internal/artifact/stores"
	"pricing-pipeline/internal/cleaning"
	"pricing-pipeline/internal/config"
	"pricing-pipeline/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	var (
		cfg        cleaning.Config
		configFile string
	)

	cmd := &cobra.Command{
		Use:           "basic-cleaning",
		Short:         "A very basic data cleaning",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), logOut, configFile, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.InputArtifact, "input_artifact", "", "Fully-qualified name for the input artifact")
	flags.StringVar(&cfg.OutputArtifact, "output_artifact", "", "Name for the output artifact")
	flags.StringVar(&cfg.OutputType, "output_type", "", "Type for the output artifact")
	flags.StringVar(&cfg.OutputDescription, "output_description", "", "Description for the output artifact")
	flags.Float64Var(&cfg.MinPrice, "min_price", 0, "Minimum price for cleaning outliers")
	flags.Float64Var(&cfg.MaxPrice, "max_price", 0, "Maximum price for cleaning outliers")
	flags.StringVar(&configFile, "config", "", "Path to a config file (default: config.yaml in . or ./config)")

	for _, name := range []string{
		"input_artifact", "output_artifact", "output_type",
		"output_description", "min_price", "max_price",
	} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func run(ctx context.Context, logOut io.Writer, configFile string, jobCfg cleaning.Config) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	logger := logging.New(logOut, cfg.Log.Level, cfg.Log.Format).With("job_type", cleaning.JobType)
	if cfg.ConfigFile != "" {
		logger.Debug("Configuration loaded", "config_file", cfg.ConfigFile)
	}

	store, closeStore, err := stores.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open artifact store: %w", err)
	}
	defer closeStore()

	job, err := cleaning.NewJob(store, logger)
	if err != nil {
		return err
	}
	_, err = job.Run(ctx, jobCfg)
	return err
}
