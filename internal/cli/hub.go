package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/emporium/internal/broadcast"
)

// HubOptions holds flags for the hub command.
type HubOptions struct {
	*RootOptions
	Socket string
}

// NewHubCommand creates the hub command.
func NewHubCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HubOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "hub",
		Short: "Run the cross-page broadcast hub",
		Long: `Run the local broadcast hub that relays image changes between storefront
and admin processes. Every "emporium image" command connects to it.

The hub listens on a Unix socket and stops on SIGINT or SIGTERM.`,
		Example: `  emporium hub
  emporium hub --socket /tmp/emporium.sock --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHub(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Socket, "socket", "", "socket path (default from config)")
	return cmd
}

func (o *RootOptions) socketPath(flag string) string {
	if flag != "" {
		return flag
	}
	return o.Config.SocketPath
}

func runHub(opts *HubOptions, cmd *cobra.Command) error {
	logger := opts.Logger()
	path := opts.socketPath(opts.Socket)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return WrapExitError(ExitCommandError, "failed to create socket directory", err)
	}

	ctx, cancel := signalContext(cmdContext(cmd))
	defer cancel()

	hub := broadcast.NewHub(path, logger)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		select {
		case <-hub.Ready():
			fmt.Fprintf(cmd.OutOrStdout(), "Hub listening on %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
		case <-ctx.Done():
		}
	}()

	err := hub.Serve(ctx)
	cancel()
	<-printed
	if err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitCommandError, "hub failed", err)
	}
	logger.Info("hub stopped gracefully")
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
