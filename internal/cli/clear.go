package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/focal/internal/engine"
	"github.com/roach88/focal/internal/state"
)

// NewClearHistoryCommand creates the clear-history command.
func NewClearHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear-history",
		Short: "Purge completed tasks",
		Long: `Tombstone every completed task and drop its record. The purge is
permanent on every replica; a cleared task cannot be restored.

Example:
  focal clear-history`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClearHistory(rootOpts, cmd)
		},
	}

	return cmd
}

func runClearHistory(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := OpenSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	s.Wake()
	prev := s.State()
	next := s.Mutate(func(e *engine.Engine) *state.State {
		return e.ClearHistory()
	})
	if err := s.Commit(ctx); err != nil {
		return err
	}
	if next == prev {
		return reportNothing(opts, cmd, "No completed tasks to clear.")
	}

	purged := len(prev.CompletedIDs) - len(next.CompletedIDs)
	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(map[string]any{"purged": purged, "status": statusView(next)})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d completed task(s).\n", purged)
	renderStatus(cmd.OutOrStdout(), next)
	return nil
}
