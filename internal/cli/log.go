package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Limit int
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the write audit trail",
		Long: `Show the persisted write log, newest first: one entry per document
write, carrying its revision, logical timestamp, writing replica, and
content digest. The log is append-only and never pruned by undo.

Example:
  focal log
  focal log -n 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "entries to show (0 for all)")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := OpenSession(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.Store().Writes(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read write log", err)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(records)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No writes recorded.")
		return nil
	}
	fmt.Fprintf(out, "%-5s %-5s %-20s %-10s %s\n", "seq", "rev", "written", "client", "digest")
	for _, r := range records {
		fmt.Fprintf(out, "%-5d %-5d %-20s %-10s %s\n",
			r.Seq,
			r.Rev,
			time.UnixMilli(r.WrittenAt).Local().Format("2006-01-02 15:04:05"),
			shortID(r.ClientID),
			shortDigest(r.Digest),
		)
	}
	return nil
}

// shortDigest abbreviates a content digest for display.
func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
