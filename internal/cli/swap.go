package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/focal/internal/engine"
	"github.com/roach88/focal/internal/state"
)

// NewSwapCommand creates the swap command.
func NewSwapCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Exchange focus with the wake head",
		Long: `Exchange the focus slot with the head of the wake queue, in place:
the woken task takes focus and the old focus takes its queue position.

Example:
  focal swap`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSwap(rootOpts, cmd)
		},
	}

	return cmd
}

func runSwap(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := OpenSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	s.Wake()
	prev := s.State()
	next := s.Mutate(func(e *engine.Engine) *state.State {
		return e.SwapWithWakeHead()
	})
	if err := s.Commit(ctx); err != nil {
		return err
	}
	if next == prev {
		return reportNothing(opts, cmd, "Nothing to swap with.")
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(statusView(next))
	}

	renderStatus(cmd.OutOrStdout(), next)
	return nil
}
