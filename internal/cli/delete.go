package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/focal/internal/engine"
	"github.com/roach88/focal/internal/state"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the current task permanently",
		Long: `Delete the task in focus. The record is removed, the id becomes a
tombstone on every replica, and the focus slot refills.

There is deliberately no delete-by-id: deletion requires looking at the
task first. Focus it, then delete it.

Example:
  focal delete`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, cmd)
		},
	}

	return cmd
}

func runDelete(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := OpenSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	s.Wake()
	st := s.State()
	if st.CurrentID == "" {
		if err := s.Commit(ctx); err != nil {
			return err
		}
		return reportNothing(opts, cmd, "Nothing in focus to delete.")
	}
	deleted := st.Task(st.CurrentID).Title

	next := s.Mutate(func(e *engine.Engine) *state.State {
		return e.DeleteCurrent()
	})
	if err := s.Commit(ctx); err != nil {
		return err
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(statusView(next))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", deleted)
	renderStatus(cmd.OutOrStdout(), next)
	return nil
}
