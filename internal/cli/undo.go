package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/focal/internal/state"
)

// UndoView is the JSON shape of an undo or redo result.
type UndoView struct {
	Applied bool        `json:"applied"`
	Status  *StatusView `json:"status,omitempty"`
}

// NewUndoCommand creates the undo command.
func NewUndoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Step back one change",
		Long: `Restore the document as it was before the most recent change. Up to 50
levels are kept, and they survive across invocations.

History never crosses a replica boundary: an import or an adopted
remote document clears it, so undo cannot silently throw away another
replica's work.

Example:
  focal undo`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryStep(rootOpts, cmd, "undo")
		},
	}

	return cmd
}

// NewRedoCommand creates the redo command.
func NewRedoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redo",
		Short: "Step forward over the newest undone change",
		Long: `Re-apply the most recently undone change. Any fresh edit forks history
and drops the redo branch.

Example:
  focal redo`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryStep(rootOpts, cmd, "redo")
		},
	}

	return cmd
}

func runHistoryStep(opts *RootOptions, cmd *cobra.Command, direction string) error {
	ctx := cmd.Context()
	s, err := OpenSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	step := s.Undo
	if direction == "redo" {
		step = s.Redo
	}

	var (
		doc     *state.State
		applied bool
	)
	doc, applied, err = step(ctx)
	if err != nil {
		return err
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if !applied {
		if opts.Format == "json" {
			return formatter.Success(&UndoView{Applied: false})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Nothing to %s.\n", direction)
		return nil
	}

	if opts.Format == "json" {
		return formatter.Success(&UndoView{Applied: true, Status: statusView(doc)})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", stepHeadline(direction))
	renderStatus(cmd.OutOrStdout(), doc)
	return nil
}

func stepHeadline(direction string) string {
	if direction == "redo" {
		return "Redid the last undone change."
	}
	return "Undid the last change."
}
