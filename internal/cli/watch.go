package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/roach88/focal/internal/engine"
	"github.com/roach88/focal/internal/remote"
	"github.com/roach88/focal/internal/replica"
	"github.com/roach88/focal/internal/state"
	"github.com/roach88/focal/internal/store"
	"github.com/roach88/focal/internal/syncer"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	LogFile string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the replica loop",
		Long: `Keep the replica live: wake due snoozes on a ticker, persist every
change through a debounced writer, and mirror the document over a
channel.

The channel is the shared snapshot file by default (--channel, or
<data-dir>/shared.json); with --remote it is a focal server instead.
Snapshots arriving from other replicas are adopted, folded, or answered
with the local document, depending on which side is newer and whether
local edits are unsaved.

Example:
  focal watch
  focal watch --remote ws://127.0.0.1:7341 --account alice
  focal watch --tick-interval 200ms --log-file /var/log/focal.log`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.LogFile, "log-file", "", "write logs to this file (rotated) instead of stderr")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	logger := setupRunLogger(opts.Verbose, opts.LogFile)
	slog.SetDefault(logger)

	// Hooks run under the engine lock, so they only stash and signal; the
	// loop below does the disk and channel work.
	var latest atomic.Pointer[state.State]
	changed := make(chan struct{}, 1)
	adopted := make(chan struct{}, 1)

	ctx := cmd.Context()
	s, err := OpenSession(ctx, opts.RootOptions,
		engine.WithLogger(logger),
		engine.WithChangeHook(func(st *state.State) {
			latest.Store(st)
			signalOne(changed)
		}),
		engine.WithAdoptHook(func(st *state.State, origin string) {
			signalOne(adopted)
		}),
	)
	if err != nil {
		return err
	}
	defer s.Close()

	eng := s.Engine()
	deb := store.NewDebouncer(s.Store(), store.DefaultDebounce, logger)
	defer deb.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := openChannel(runCtx, opts, logger)
	if err != nil {
		return err
	}
	defer ch.Close()

	syn := syncer.New(eng, ch, logger)

	// Wake whatever came due while no replica was running, then exchange
	// documents with the channel before settling into the loop.
	if _, woken := eng.TickNow(); woken > 0 {
		logger.Info("woke overdue snoozes on start", "woken", woken)
	}
	if fc, ok := ch.(*replica.FileChannel); ok {
		if st, digest, found, err := fc.Current(); err != nil {
			logger.Warn("shared file unreadable on start", "error", err)
		} else if found {
			syn.Observe(runCtx, replica.Snapshot{Digest: digest, State: st})
		} else {
			syn.Upload(runCtx)
		}
	} else {
		syn.Upload(runCtx)
	}

	ticker := engine.NewTicker(eng, opts.TickInterval)
	if err := ticker.Start(runCtx); err != nil {
		return WrapExitError(ExitCommandError, "failed to start ticker", err)
	}
	defer ticker.Stop()

	syncErr := make(chan error, 1)
	go func() { syncErr <- syn.Run(runCtx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("replica loop started", "db", opts.Database, "remote", opts.Remote != "")
	fmt.Fprintln(cmd.OutOrStdout(), "Watching. Press Ctrl-C to stop.")

	for {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()

		case <-runCtx.Done():
			return nil

		case <-changed:
			if st := latest.Load(); st != nil {
				deb.Write(st)
			}
			syn.Upload(runCtx)

		case <-adopted:
			// Persisted undo history must not cross the adoption boundary,
			// same rule the in-memory journal enforces.
			if err := s.Store().ResetHistory(runCtx); err != nil && runCtx.Err() == nil {
				logger.Error("reset history after adoption", "error", err)
			}

		case err := <-syncErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return WrapExitError(ExitFailure, "sync loop failed", err)
			}
			cancel()
		}
	}
}

// openChannel builds the replica channel watch mode mirrors through: a
// focal server when --remote is set, the shared snapshot file otherwise.
func openChannel(ctx context.Context, opts *WatchOptions, logger *slog.Logger) (replica.Channel, error) {
	if opts.Remote != "" {
		cl, err := remote.Dial(ctx, opts.Remote, opts.Account, logger)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to reach focal server", err)
		}
		return cl, nil
	}

	path := opts.Channel
	if path == "" {
		path = filepath.Join(opts.DataDir, "shared.json")
	}
	fc, err := replica.NewFileChannel(path, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open shared channel", err)
	}
	if err := fc.Start(); err != nil {
		fc.Close()
		return nil, WrapExitError(ExitCommandError, "failed to watch shared channel", err)
	}
	return fc, nil
}

// signalOne is a non-blocking send on a capacity-1 signal channel. A signal
// already pending covers this one; the drain always reads the latest state.
func signalOne(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// setupRunLogger builds the logger long-running commands use: level from
// --verbose, writing to stderr, or through a rotating file when --log-file
// is set.
func setupRunLogger(verbose bool, logFile string) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	var w io.Writer = os.Stderr
	if logFile != "" {
		w = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
