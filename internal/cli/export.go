package cli

import (
	"bytes"
	"fmt"
	"time"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/roach88/focal/internal/snapshot"
)

// ExportView is the JSON confirmation when exporting to a file.
type ExportView struct {
	Path  string `json:"path"`
	Tasks int    `json:"tasks"`
	Rev   int64  `json:"rev"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write the document as a snapshot envelope",
		Long: `Write the stored document, exactly as persisted, wrapped in the
focal-export envelope. Without a file argument the envelope goes to
stdout; --format does not apply to it, the envelope is already JSON.

The output round-trips through focal import on any replica.

Example:
  focal export backup.json
  focal export > backup.json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runExport(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runExport(opts *RootOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := OpenSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	// The export is the persisted document verbatim: no wake pass, no
	// mutation. Backups must not edit what they back up.
	st := s.State()
	raw, err := snapshot.Export(st, time.Now().UnixMilli())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to export document", err)
	}

	if path == "" {
		out := cmd.OutOrStdout()
		if _, err := out.Write(raw); err != nil {
			return WrapExitError(ExitCommandError, "failed to write export", err)
		}
		fmt.Fprintln(out)
		return nil
	}

	if err := atomic.WriteFile(path, bytes.NewReader(raw)); err != nil {
		return WrapExitError(ExitCommandError, "failed to write export", err)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(&ExportView{Path: path, Tasks: len(st.Tasks), Rev: st.Rev})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d task(s) to %s\n", len(st.Tasks), path)
	return nil
}
