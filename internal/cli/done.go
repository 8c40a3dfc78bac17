package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/focal/internal/engine"
	"github.com/roach88/focal/internal/state"
)

// DoneOptions holds flags for the done command.
type DoneOptions struct {
	*RootOptions
}

// NewDoneCommand creates the done command.
func NewDoneCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DoneOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "done [id]",
		Short: "Complete the current task (or the given one)",
		Long: `Mark a task completed and refill the focus slot.

Without an argument the task in focus completes. With an id (any
unambiguous prefix) that task completes wherever it lives, snoozed
included.

Example:
  focal done
  focal done 0192f3ac`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			return runDone(opts, arg, cmd)
		},
	}

	return cmd
}

func runDone(opts *DoneOptions, arg string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := OpenSession(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	s.Wake()
	st := s.State()

	var id string
	if arg != "" {
		id, err = resolveTaskID(st, arg)
		if err != nil {
			return err
		}
		if t := st.Task(id); t.Completed() {
			return NewExitError(ExitCommandError, fmt.Sprintf("task %s is already completed", shortID(id)))
		}
	} else {
		if st.CurrentID == "" {
			if err := s.Commit(ctx); err != nil {
				return err
			}
			return reportNothing(opts.RootOptions, cmd, "Nothing in focus to complete.")
		}
		id = st.CurrentID
	}

	done := st.Task(id).Title
	next := s.Mutate(func(e *engine.Engine) *state.State {
		return e.Complete(id)
	})
	if err := s.Commit(ctx); err != nil {
		return err
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(statusView(next))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Done: %s\n", done)
	renderStatus(cmd.OutOrStdout(), next)
	return nil
}

// reportNothing answers a benign no-op: exit 0, with a message in text mode
// and an unchanged status view in JSON mode.
func reportNothing(opts *RootOptions, cmd *cobra.Command, msg string) error {
	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(map[string]any{"changed": false, "message": msg})
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}
