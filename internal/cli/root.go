package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RootOptions holds global flags for all commands, after config-file and
// environment resolution.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	DataDir      string // directory for the database and shared snapshot
	Database     string // sqlite database path (default <data-dir>/focal.db)
	Channel      string // shared snapshot file other replicas watch
	Remote       string // focal server URL, e.g. ws://127.0.0.1:7341
	Account      string // account key on the focal server
	Client       string // replica identity stamped onto writes
	TickInterval time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the focal CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "focal",
		Short: "focal - one task in focus",
		Long: `A single-focus task scheduler. One task holds focus at a time; everything
else waits in the wake or ready queue, sleeps on a deadline, or rests in
the completed history.

State lives in a local SQLite database. Replicas stay in sync through a
shared snapshot file (focal watch) or a focal server (focal serve).`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolve(cmd.Flags()); err != nil {
				return err
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "data directory (default ~/.local/share/focal)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default <data-dir>/focal.db)")
	cmd.PersistentFlags().StringVar(&opts.Channel, "channel", "", "shared snapshot file for replica sync")
	cmd.PersistentFlags().StringVar(&opts.Remote, "remote", "", "focal server URL (ws:// or http://)")
	cmd.PersistentFlags().StringVar(&opts.Account, "account", "default", "account key on the focal server")
	cmd.PersistentFlags().StringVar(&opts.Client, "client", "", "replica id stamped onto writes (default: sticky per database)")
	cmd.PersistentFlags().DurationVar(&opts.TickInterval, "tick-interval", 0, "wake-check cadence for watch mode (default 1s)")

	// Add subcommands
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewDoneCommand(opts))
	cmd.AddCommand(NewDeferCommand(opts))
	cmd.AddCommand(NewSkipCommand(opts))
	cmd.AddCommand(NewNextCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewMoveCommand(opts))
	cmd.AddCommand(NewFocusCommand(opts))
	cmd.AddCommand(NewSwapCommand(opts))
	cmd.AddCommand(NewDemoteCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewClearHistoryCommand(opts))
	cmd.AddCommand(NewUndoCommand(opts))
	cmd.AddCommand(NewRedoCommand(opts))
	cmd.AddCommand(NewTickCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// resolve fills options the command line left unset from the config file and
// FOCAL_* environment, then derives the default paths. flags is the running
// command's flag set, so Changed covers inherited and local flags alike.
func (o *RootOptions) resolve(flags *pflag.FlagSet) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	if !flags.Changed("data-dir") && cfg.DataDir != "" {
		o.DataDir = cfg.DataDir
	}
	if !flags.Changed("db") && cfg.Database != "" {
		o.Database = cfg.Database
	}
	if !flags.Changed("channel") && cfg.Channel != "" {
		o.Channel = cfg.Channel
	}
	if !flags.Changed("remote") && cfg.Remote != "" {
		o.Remote = cfg.Remote
	}
	if !flags.Changed("account") && cfg.Account != "" {
		o.Account = cfg.Account
	}
	if !flags.Changed("client") && cfg.Client != "" {
		o.Client = cfg.Client
	}
	if !flags.Changed("tick-interval") && cfg.TickInterval > 0 {
		o.TickInterval = cfg.TickInterval
	}

	if o.DataDir == "" {
		o.DataDir = DefaultDataDir()
	}
	if o.Database == "" {
		o.Database = filepath.Join(o.DataDir, "focal.db")
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
