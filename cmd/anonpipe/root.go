package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/anonpipe/cmd/anonpipe/opts"
	"github.com/walteh/anonpipe/pkg/config"
	"github.com/walteh/anonpipe/pkg/log"
	"github.com/walteh/anonpipe/pkg/protect"
	"github.com/walteh/anonpipe/pkg/sink"
	"github.com/walteh/anonpipe/pkg/source"
)

var (
	// Flags
	configFile string
	debug      bool
)

// newRootOpts creates a new rootOpts with initialized dependencies
func newRootOpts(ctx context.Context) (*opts.RootOpts, error) {
	// Create console logger. Flags are parsed by now, so the debug flag can
	// take effect on the global level as well.
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	console := log.New(os.Stdout, level)

	// Load config
	cfg, err := config.Load(ctx, configFile)
	if err != nil {
		return nil, errors.Errorf("loading config: %w", err)
	}

	// Create source provider
	provider, err := source.Get(ctx, cfg.Source.Provider)
	if err != nil {
		return nil, errors.Errorf("creating source provider: %w", err)
	}

	// Create destination store
	store, err := sink.NewDirStore(cfg.Destination.Path)
	if err != nil {
		return nil, errors.Errorf("creating destination store: %w", err)
	}

	// Create protector builder
	builder, err := protect.NewFF1Builder(protect.Credentials{
		PolicyURL:      cfg.Protection.PolicyURL,
		Identity:       cfg.Protection.Identity,
		SharedSecret:   cfg.Protection.SharedSecret,
		TrustStorePath: cfg.Protection.TrustStorePath,
		CachePath:      cfg.Protection.CachePath,
	})
	if err != nil {
		return nil, errors.Errorf("creating protector builder: %w", err)
	}

	return &opts.RootOpts{
		Config:   cfg,
		Provider: provider,
		Store:    store,
		Builder:  builder,
		Console:  console,
	}, nil
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", ".anonpipe.yaml", "config file path")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}

// setupLogging installs the default context logger. It runs before flag
// parsing; the debug flag raises the level later in newRootOpts.
func setupLogging() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log
}
