package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/anonpipe/cmd/anonpipe/opts"
	"github.com/walteh/anonpipe/pkg/job"
)

// NewLsCmd creates a new ls command
func NewLsCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List the files the job would process, smallest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctx = zerolog.Ctx(ctx).With().Str("command", "ls").Logger().WithContext(ctx)

			runner := job.NewRunner(opts.Config, opts.Provider, opts.Store, opts.Builder)
			files, err := runner.List(ctx)
			if err != nil {
				return errors.Errorf("listing files: %w", err)
			}

			for _, desc := range files {
				fmt.Fprintf(cmd.OutOrStdout(), "%12d  %s\n", desc.FileSizeBytes, desc.RelativePath)
			}
			opts.Console.Infof("%d files matched", len(files))
			return nil
		},
	}

	return cmd
}
