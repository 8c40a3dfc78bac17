package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/focal/internal/engine"
	"github.com/roach88/focal/internal/state"
)

// DeferOptions holds flags for the defer command.
type DeferOptions struct {
	*RootOptions
	Duration time.Duration
}

// NewDeferCommand creates the defer command.
func NewDeferCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeferOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "defer [-d duration]",
		Short: "Put the current task to sleep",
		Long: `Step away from the task in focus.

With -d the task sleeps until now+duration and wakes on its own; the
focus slot refills from the queues. Without -d this is a quick defer:
the task rotates to the ready tail if anything else is runnable, or
sleeps for 60 seconds if it is the only task there is.

Example:
  focal defer -d 25m
  focal defer -d 2h30m
  focal defer`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var d *time.Duration
			if cmd.Flags().Changed("duration") {
				if opts.Duration <= 0 {
					return NewExitError(ExitCommandError, "duration must be positive")
				}
				d = &opts.Duration
			}
			return runDefer(opts.RootOptions, d, cmd)
		},
	}

	cmd.Flags().DurationVarP(&opts.Duration, "duration", "d", 0, "how long to sleep (omit to rotate behind the queues)")

	return cmd
}

// NewSkipCommand creates the skip command, a named quick defer.
func NewSkipCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skip",
		Short: "Rotate past the current task",
		Long: `Quick defer: "not now" without picking a time.

The task in focus rotates to the ready tail and the slot refills; if it
is the only runnable task it sleeps for 60 seconds instead, so skipping
a singleton does not hand the same task straight back.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDefer(rootOpts, nil, cmd)
		},
	}

	return cmd
}

func runDefer(opts *RootOptions, d *time.Duration, cmd *cobra.Command) error {
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
		return reportNothing(opts, cmd, "Nothing in focus to defer.")
	}

	deferred := st.Task(st.CurrentID)
	title := deferred.Title
	id := deferred.ID

	next := s.Mutate(func(e *engine.Engine) *state.State {
		return e.Snooze(d)
	})
	if err := s.Commit(ctx); err != nil {
		return err
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(statusView(next))
	}

	out := cmd.OutOrStdout()
	if t := next.Task(id); t != nil && t.Snoozed() {
		fmt.Fprintf(out, "Deferred %s until %s\n", title, formatWhen(*t.SnoozeUntil))
	} else {
		fmt.Fprintf(out, "Deferred %s behind the queue\n", title)
	}
	renderStatus(out, next)
	return nil
}
