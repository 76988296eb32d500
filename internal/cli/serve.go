package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/grocery/internal/server"
	"github.com/mesh-intelligence/grocery/pkg/sqlite"
	"github.com/mesh-intelligence/grocery/pkg/types"
)

func (a *app) newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the item API",
		Long:  "Serve the item API under " + server.BasePath + " until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				a.settings.Listen = listen
			}
			return a.runServe(cmd)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default: "+defaultListen+")")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command) error {
	s := a.settings
	backend := sqlite.NewBackend()
	if err := backend.Attach(types.Config{Backend: s.Backend, DataDir: s.DataDir}); err != nil {
		return exitError(exitSysError, "attach store: %s", err)
	}
	defer backend.Detach()

	srv, err := server.New(backend, a.logger)
	if err != nil {
		return exitError(exitSysError, "create server: %s", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on %s\n", server.BasePath, s.Listen)
	if err := srv.ListenAndServe(ctx, s.Listen); err != nil {
		return exitError(exitSysError, "serve: %s", err)
	}
	return nil
}
