package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/focal/internal/engine"
	"github.com/roach88/focal/internal/state"
)

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Bring a completed task back",
		Long: `Bring a completed task back to the ready tail. Only completed tasks
restore; deleted ids are tombstones and never return.

Example:
  focal restore 0192f3ac`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runRestore(opts *RootOptions, arg string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := OpenSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	s.Wake()
	st := s.State()

	id, err := resolveTaskID(st, arg)
	if err != nil {
		return err
	}
	if !st.Task(id).Completed() {
		return NewExitError(ExitCommandError, fmt.Sprintf("task %s is not completed", shortID(id)))
	}

	next := s.Mutate(func(e *engine.Engine) *state.State {
		return e.Restore(id)
	})
	if err := s.Commit(ctx); err != nil {
		return err
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(statusView(next))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", next.Task(id).Title)
	renderStatus(cmd.OutOrStdout(), next)
	return nil
}
