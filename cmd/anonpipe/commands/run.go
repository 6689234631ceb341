package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/anonpipe/cmd/anonpipe/opts"
	"github.com/walteh/anonpipe/pkg/job"
	"github.com/walteh/anonpipe/pkg/log"
)

// NewRunCmd creates a new run command
func NewRunCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Anonymize and upload every file the config matches",
		Long: `Run executes one job end to end. It will:
1. Parse the field spec and build a protector per format
2. List the source files, smallest first
3. Stream each file through the transform pipeline
4. Commit each output object only after its last row`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctx = zerolog.Ctx(ctx).With().Str("command", "run").Logger().WithContext(ctx)
			ctx = log.NewContext(ctx, opts.Console)

			runner := job.NewRunner(opts.Config, opts.Provider, opts.Store, opts.Builder)
			summary, err := runner.Run(ctx)
			if err != nil {
				return errors.Errorf("running job: %w", err)
			}

			opts.Console.Success(fmt.Sprintf("%d files uploaded (%d bytes)", summary.Succeeded, summary.BytesWritten))
			return nil
		},
	}

	return cmd
}
