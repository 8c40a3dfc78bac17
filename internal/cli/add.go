package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/focal/internal/engine"
	"github.com/roach88/focal/internal/state"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task and focus it",
		Long: `Create a task and move it straight into focus.

New work interrupts: the task that held focus steps aside to the ready
tail and waits its turn. Multiple arguments are joined into one title.

Example:
  focal add "write the quarterly report"
  focal add reply to legal`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, strings.Join(args, " "), cmd)
		},
	}

	return cmd
}

func runAdd(opts *AddOptions, title string, cmd *cobra.Command) error {
	if strings.TrimSpace(title) == "" {
		return NewExitError(ExitCommandError, "title is empty")
	}

	ctx := cmd.Context()
	s, err := OpenSession(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	s.Wake()
	next := s.Mutate(func(e *engine.Engine) *state.State {
		return e.Add(title)
	})
	if err := s.Commit(ctx); err != nil {
		return err
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(statusView(next))
	}

	created := next.Task(next.CurrentID)
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s  %s\n", shortID(created.ID), created.Title)
	renderStatus(cmd.OutOrStdout(), next)
	return nil
}
