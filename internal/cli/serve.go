package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/focal/internal/remote"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr    string
	LogFile string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a focal sync server",
		Long: `Serve documents to watching replicas over WebSocket.

The server keeps one document per account, entirely in memory. Replicas
connect with focal watch --remote and the server relays each accepted
upload to every other watcher of the same account; stale uploads are
answered with the current document instead of being stored.

Example:
  focal serve
  focal serve --addr 0.0.0.0:7341 --log-file /var/log/focal-server.log`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "127.0.0.1:7341", "address to listen on")
	cmd.Flags().StringVar(&opts.LogFile, "log-file", "", "write logs to this file (rotated) instead of stderr")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	logger := setupRunLogger(opts.Verbose, opts.LogFile)
	slog.SetDefault(logger)

	srv := remote.NewServer(&remote.Config{
		Addr:   opts.Addr,
		Logger: logger,
	})
	if err := srv.Start(); err != nil {
		return WrapExitError(ExitCommandError, "failed to start server", err)
	}

	logger.Info("server started", "addr", srv.Addr())
	fmt.Fprintf(cmd.OutOrStdout(), "focal server listening on %s\n", srv.Addr())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig)
	case <-cmd.Context().Done():
	}

	if err := srv.Stop(); err != nil {
		return WrapExitError(ExitFailure, "failed to stop server cleanly", err)
	}
	return nil
}
