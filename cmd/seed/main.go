// Command seed uploads local files as the raw artifact a pipeline starts from.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pricing-pipeline/internal/artifact"
	"pricing-pipeline/internal/artifact/stores"
	"pricing-pipeline/internal/config"
	"pricing-pipeline/internal/logging"
)

type options struct {
	configFile  string
	name        string
	typ         string
	description string
}

func main() {
	if err := newRootCmd(os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "seed FILE...",
		Short:        "Publish local files as a raw artifact",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return seed(cmd.Context(), logOut, opts, args)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "Path to a config file")
	flags.StringVar(&opts.name, "name", "", "Artifact name (default: base name of the first file)")
	flags.StringVar(&opts.typ, "type", "raw_data", "Artifact type")
	flags.StringVar(&opts.description, "description", "Raw data", "Artifact description")
	return cmd
}

func seed(ctx context.Context, logOut io.Writer, opts options, files []string) error {
	cfg, err := config.LoadConfig(opts.configFile)
	if err != nil {
		return err
	}
	logger := logging.New(logOut, cfg.Log.Level, cfg.Log.Format)

	store, closeStore, err := stores.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open artifact store: %w", err)
	}
	defer closeStore()

	name := opts.name
	if name == "" {
		name = filepath.Base(files[0])
	}
	a := artifact.New(name, opts.typ, opts.description)
	for _, f := range files {
		a.AddFile(f)
	}

	v, err := store.Publish(ctx, a)
	if err != nil {
		return err
	}
	if err := store.Wait(ctx, v); err != nil {
		return err
	}
	logger.Info("Seeded artifact", "artifact", v.Ref(), "digest", v.Digest, "files", len(v.Files))
	return nil
}
