package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/focal/internal/engine"
	"github.com/roach88/focal/internal/state"
)

// NewDemoteCommand creates the demote command.
func NewDemoteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demote",
		Short: "Step back from the current task",
		Long: `Step back from the task in focus without parking it far: the
replacement is picked first (wake beats ready), then the old focus
lands at the ready head. With nothing else runnable there is no
replacement to promote, so nothing happens.

Example:
  focal demote`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemote(rootOpts, cmd)
		},
	}

	return cmd
}

func runDemote(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := OpenSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	s.Wake()
	prev := s.State()
	next := s.Mutate(func(e *engine.Engine) *state.State {
		return e.DemoteToReadyHead()
	})
	if err := s.Commit(ctx); err != nil {
		return err
	}
	if next == prev {
		return reportNothing(opts, cmd, "Nothing to step back to.")
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(statusView(next))
	}

	renderStatus(cmd.OutOrStdout(), next)
	return nil
}
