package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/focal/internal/engine"
	"github.com/roach88/focal/internal/state"
)

// FocusOptions holds flags for the focus command.
type FocusOptions struct {
	*RootOptions
	FromQueue bool
}

// NewFocusCommand creates the focus command.
func NewFocusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FocusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "focus <id> [--from-queue]",
		Short: "Make a task current immediately",
		Long: `Pull a queued or snoozed task into focus right now.

The displaced task goes to the wake HEAD by default: it was in
progress, and it resumes as soon as the new focus ends. With
--from-queue it goes to the wake TAIL instead, reading as "the old
focus can wait".

Example:
  focal focus 0192f3ac
  focal focus 0192f3ac --from-queue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFocus(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.FromQueue, "from-queue", false, "send the displaced task to the wake tail")

	return cmd
}

func runFocus(opts *FocusOptions, arg string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := OpenSession(ctx, opts.RootOptions)
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
	if id == st.CurrentID {
		if err := s.Commit(ctx); err != nil {
			return err
		}
		return reportNothing(opts.RootOptions, cmd, "Already in focus.")
	}
	if st.Task(id).Completed() {
		return NewExitError(ExitCommandError, fmt.Sprintf("task %s is completed; restore it first", shortID(id)))
	}

	next := s.Mutate(func(e *engine.Engine) *state.State {
		if opts.FromQueue {
			return e.FocusFromQueue(id)
		}
		return e.Focus(id)
	})
	if err := s.Commit(ctx); err != nil {
		return err
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(statusView(next))
	}

	renderStatus(cmd.OutOrStdout(), next)
	return nil
}
