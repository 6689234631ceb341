package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/anonpipe/cmd/anonpipe/opts"
	"github.com/walteh/anonpipe/pkg/job"
)

// NewCheckCmd creates a new check command
func NewCheckCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the config and build every protector without transferring anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctx = zerolog.Ctx(ctx).With().Str("command", "check").Logger().WithContext(ctx)

			runner := job.NewRunner(opts.Config, opts.Provider, opts.Store, opts.Builder)
			fields, _, err := runner.Prepare(ctx)
			if err != nil {
				return errors.Errorf("checking job: %w", err)
			}

			anonymized := 0
			for _, f := range fields {
				if f.Anonymize {
					anonymized++
				}
			}

			opts.Console.Success(fmt.Sprintf("config ok: %d fields, %d anonymized", len(fields), anonymized))
			return nil
		},
	}

	return cmd
}
