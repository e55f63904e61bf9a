// Command leadwatch-worker runs the standalone collect-and-classify
// pipeline (spec.md §6, process lifecycle): it ticks at
// WORKER_INTERVAL_MINUTES and serves the internal HTTP API until it
// receives SIGINT/SIGTERM, at which point it drains the in-flight tick and
// the HTTP server before exiting 0.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/leadwatch/leadwatch/internal/bootstrap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "leadwatch-worker:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			app.Logger.Error("leadwatch-worker: close failed", "error", err)
		}
	}()

	app.Logger.Info("leadwatch-worker: starting", "http_addr", app.Config.HTTPAddr, "interval", app.Config.TickInterval)

	var wg sync.WaitGroup
	wg.Add(2)

	var httpErr error
	go func() {
		defer wg.Done()
		httpErr = app.HTTPServer.Serve(ctx)
	}()

	go func() {
		defer wg.Done()
		app.Scheduler.Run(ctx)
	}()

	wg.Wait()
	if httpErr != nil {
		return fmt.Errorf("http server: %w", httpErr)
	}

	app.Logger.Info("leadwatch-worker: drained, exiting")
	return nil
}
