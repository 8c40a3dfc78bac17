package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// TickView is the JSON shape of a tick result.
type TickView struct {
	Woken  int         `json:"woken"`
	Status *StatusView `json:"status"`
}

// NewTickCommand creates the tick command.
func NewTickCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Wake every due snooze",
		Long: `Wake every snoozed task whose deadline has passed, in deadline order,
onto the wake tail. Every command does this on load; tick exists for
scripts that want the wake pass and nothing else.

Example:
  focal tick`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTick(rootOpts, cmd)
		},
	}

	return cmd
}

func runTick(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := OpenSession(ctx, opts)
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
		return formatter.Success(&TickView{Woken: woken, Status: statusView(st)})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Woke %d task(s).\n", woken)
	renderStatus(cmd.OutOrStdout(), st)
	return nil
}
