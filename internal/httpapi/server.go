package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Server wraps the internal mux in a graceful-shutdown-aware http.Server,
// grounded on the goroutine-plus-signal-channel shutdown shape in
// _examples/Livepeer-FrameWorks-monorepo/pkg/server/server.go — adapted to
// stdlib net/http (no gin in this module) and to take its stop signal from
// a caller-owned context rather than registering its own signal.Notify, so
// the worker process (cmd/leadwatch-worker) can drain the HTTP server and
// the scheduler's in-flight tick on the same SIGINT/SIGTERM (spec.md §6,
// process lifecycle).
type Server struct {
	http   *http.Server
	logger *slog.Logger
}

func NewServer(addr string, mux *http.ServeMux, logger *slog.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// Serve runs the server until ctx is canceled, then shuts it down with a
// bounded grace period for in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("httpapi: listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("httpapi: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpapi: forced shutdown: %w", err)
	}
	return nil
}
