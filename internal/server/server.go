package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mesh-intelligence/grocery/internal/logging"
	"github.com/mesh-intelligence/grocery/pkg/types"
)

// BasePath is the mount point of the item routes.
const BasePath = "/api/items"

const shutdownTimeout = 5 * time.Second

// Server serves the item API for a single store.
type Server struct {
	store  types.ItemStore
	logger *slog.Logger
}

// New returns a Server backed by store. A nil logger discards output.
func New(store types.ItemStore, logger *slog.Logger) (*Server, error) {
	if store == nil {
		return nil, errors.New("server requires an item store")
	}
	return &Server{
		store:  store,
		logger: logging.NewComponentLogger(logger, "server"),
	}, nil
}

// Handler returns the routed handler wrapped in the standard middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET "+BasePath, s.handleList)
	mux.HandleFunc("POST "+BasePath, s.handleCreate)
	mux.HandleFunc("GET "+BasePath+"/{id}", s.handleGet)
	mux.HandleFunc("PUT "+BasePath+"/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE "+BasePath+"/{id}", s.handleDelete)

	var h http.Handler = mux
	h = withCollectionSlash(h)
	h = withRecover(h, s.logger)
	h = withRequestLog(h, s.logger)
	h = withCORS(h)
	return h
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully, letting in-flight requests finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is canceled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	s.logger.Info("server listening",
		logging.String("addr", listener.Addr().String()),
		logging.String(logging.FieldEventType, "server_start"))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("graceful shutdown failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "server_shutdown_failed"),
			logging.String(logging.FieldImpact, "in-flight requests may have been dropped"))
		return err
	}
	s.logger.Info("server stopped", logging.String(logging.FieldEventType, "server_stop"))
	return nil
}
