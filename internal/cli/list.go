package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/focal/internal/state"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Lane string
}

// ValidLanes defines the allowed --lane values.
var ValidLanes = []string{"all", "current", "woken", "ready", "snoozed", "completed", "deleted"}

// LanesView is the JSON shape of the full document lane listing.
type LanesView struct {
	Current   *TaskView   `json:"current,omitempty"`
	Woken     []*TaskView `json:"woken"`
	Ready     []*TaskView `json:"ready"`
	Snoozed   []*TaskView `json:"snoozed"`
	Completed []*TaskView `json:"completed"`
	Deleted   []string    `json:"deleted"`
	Rev       int64       `json:"rev"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list [--lane <lane>]",
		Short: "List tasks by lane",
		Long: `List every lane of the document, or one of them.

Lanes print in pick order: focus, then the wake queue, then the ready
queue, then sleeping tasks by deadline, then completed history. Deleted
ids are tombstones; their records are gone.

Example:
  focal list
  focal list --lane snoozed`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidLanes, opts.Lane) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid lane %q: must be one of %v", opts.Lane, ValidLanes))
			}
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Lane, "lane", "all", "lane to list (all|current|woken|ready|snoozed|completed|deleted)")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := OpenSession(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	s.Wake()
	st := s.State()
	if err := s.Commit(ctx); err != nil {
		return err
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(lanesView(st, opts.Lane))
	}

	out := cmd.OutOrStdout()
	want := func(lane string) bool { return opts.Lane == "all" || opts.Lane == lane }

	if want("current") {
		fmt.Fprintln(out, "Focus")
		if st.CurrentID == "" {
			fmt.Fprintln(out, "  (empty)")
		} else {
			renderTaskLine(out, st, st.CurrentID)
		}
	}
	renderLane := func(lane, header string, ids []string) {
		if !want(lane) {
			return
		}
		fmt.Fprintln(out, header)
		if len(ids) == 0 {
			fmt.Fprintln(out, "  (empty)")
			return
		}
		for _, id := range ids {
			renderTaskLine(out, st, id)
		}
	}
	renderLane("woken", "Woken", st.WokenQueue)
	renderLane("ready", "Ready", st.ReadyQueue)
	renderLane("snoozed", "Snoozed", st.SnoozedIDs)
	renderLane("completed", "Completed", st.CompletedIDs)
	if want("deleted") {
		fmt.Fprintln(out, "Deleted")
		if len(st.DeletedIDs) == 0 {
			fmt.Fprintln(out, "  (empty)")
		}
		for _, id := range st.DeletedIDs {
			fmt.Fprintf(out, "  %s\n", shortID(id))
		}
	}
	return nil
}

func lanesView(st *state.State, lane string) *LanesView {
	views := func(ids []string) []*TaskView {
		out := make([]*TaskView, 0, len(ids))
		for _, id := range ids {
			if v := taskView(st, id); v != nil {
				out = append(out, v)
			}
		}
		return out
	}

	v := &LanesView{
		Woken:     []*TaskView{},
		Ready:     []*TaskView{},
		Snoozed:   []*TaskView{},
		Completed: []*TaskView{},
		Deleted:   []string{},
		Rev:       st.Rev,
	}
	want := func(l string) bool { return lane == "all" || lane == l }
	if want("current") {
		v.Current = taskView(st, st.CurrentID)
	}
	if want("woken") {
		v.Woken = views(st.WokenQueue)
	}
	if want("ready") {
		v.Ready = views(st.ReadyQueue)
	}
	if want("snoozed") {
		v.Snoozed = views(st.SnoozedIDs)
	}
	if want("completed") {
		v.Completed = views(st.CompletedIDs)
	}
	if want("deleted") {
		v.Deleted = append(v.Deleted, st.DeletedIDs...)
	}
	return v
}
