package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/walteh/anonpipe/cmd/anonpipe/commands"
	"github.com/walteh/anonpipe/cmd/anonpipe/opts"
)

func main() {
	// Setup logging
	setupLogging()
	ctx := log.Logger.WithContext(context.Background())

	rootOpts := &opts.RootOpts{}

	// Create root command
	rootCmd := &cobra.Command{
		Use:   "anonpipe",
		Short: "A tool for anonymizing CSV files on their way to an object store",
		Long: `anonpipe lists delimited files from a source filesystem, applies
format-preserving encryption to the configured fields, and streams the
transformed rows to a destination store. Compressed (.gz, .zst) and
PGP-encrypted (.pgp, .gpg) inputs are decoded on the fly.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Flags are parsed by now, so dependencies can be built.
			loaded, err := newRootOpts(cmd.Context())
			if err != nil {
				return err
			}
			*rootOpts = *loaded
			return nil
		},
	}

	// Add shared flags
	addRootFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(
		commands.NewRunCmd(rootOpts),
		commands.NewCheckCmd(rootOpts),
		commands.NewLsCmd(rootOpts),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
