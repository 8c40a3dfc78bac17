package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/focal/internal/engine"
	"github.com/roach88/focal/internal/state"
)

// MoveOptions holds flags for the move command.
type MoveOptions struct {
	*RootOptions
	To string
}

// ValidDestinations defines the allowed --to values.
var ValidDestinations = []string{"wake", "ready", "ready-head"}

// NewMoveCommand creates the move command.
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MoveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "move <id> --to <destination>",
		Short: "Transfer a task between queues",
		Long: `Send a queued or snoozed task to the wake tail, the ready tail, or the
ready head. A snoozed task loses its deadline on the way. The task in
focus does not move; demote or swap handle that.

Destinations:
  wake        wake tail (wake beats ready when the focus slot refills)
  ready       ready tail
  ready-head  next pick once the wake queue drains

Example:
  focal move 0192f3ac --to wake
  focal move 0192 --to ready-head`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidDestinations, opts.To) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid destination %q: must be one of %v", opts.To, ValidDestinations))
			}
			return runMove(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.To, "to", "", "destination queue (wake|ready|ready-head)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runMove(opts *MoveOptions, arg string, cmd *cobra.Command) error {
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
		return NewExitError(ExitCommandError, fmt.Sprintf("task %s is in focus; use demote or swap", shortID(id)))
	}
	if st.Task(id).Completed() {
		return NewExitError(ExitCommandError, fmt.Sprintf("task %s is completed; restore it first", shortID(id)))
	}

	prev := s.State()
	next := s.Mutate(func(e *engine.Engine) *state.State {
		switch opts.To {
		case "wake":
			return e.MoveToWake(id)
		case "ready":
			return e.MoveToReady(id)
		default:
			return e.MoveToReadyHead(id)
		}
	})
	if err := s.Commit(ctx); err != nil {
		return err
	}
	if next == prev {
		return reportNothing(opts.RootOptions, cmd, "Already there.")
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(statusView(next))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s\n", next.Task(id).Title, opts.To)
	renderStatus(cmd.OutOrStdout(), next)
	return nil
}
