package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NextOptions holds flags for the next command.
type NextOptions struct {
	*RootOptions
}

// NewNextCommand creates the next command.
func NewNextCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NextOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "next",
		Aliases: []string{"status"},
		Short:   "Show the task in focus",
		Long: `Show the task in focus and the queue depths.

Due snoozes are woken first, so what prints is what you would actually
work on. The woken state is persisted.

Example:
  focal next
  focal status --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNext(opts, cmd)
		},
	}

	return cmd
}

func runNext(opts *NextOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := OpenSession(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	woken := s.Wake()
	st := s.State()
	if err := s.Commit(ctx); err != nil {
		return err
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(statusView(st))
	}

	out := cmd.OutOrStdout()
	if woken > 0 {
		fmt.Fprintf(out, "Woke %d task(s).\n", woken)
	}
	renderStatus(out, st)
	if len(st.SnoozedIDs) > 0 {
		head := st.Task(st.SnoozedIDs[0])
		if head != nil && head.SnoozeUntil != nil {
			fmt.Fprintf(out, "Next wake: %s at %s\n", head.Title, formatWhen(*head.SnoozeUntil))
		}
	}
	return nil
}
