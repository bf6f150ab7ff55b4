package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/drivesync/internal/server"
	"github.com/desertthunder/drivesync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP trigger surface alongside the interval scheduler until
// interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if r.ledger == nil {
		return fmt.Errorf("%w: ledger not initialized, run 'drivesync setup' first", shared.ErrServiceUnavailable)
	}

	port := int(cmd.Int("port"))
	if port == 0 {
		port = r.config.Server.Port
	}

	interval := time.Duration(cmd.Int("interval")) * time.Minute
	if interval == 0 {
		interval = time.Duration(r.config.Sync.IntervalMinutes) * time.Minute
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(r.logger))
	router.Handler(server.NewSyncHandler(r.engine, r.ledger, r.config.Sync.BatchSize, r.logger))

	if !cmd.Bool("no-schedule") {
		scheduler := server.NewScheduler(r.engine, interval, r.config.Sync.BatchSize, r.logger)
		go scheduler.Start(ctx)
	}

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, port)
	return server.Serve(ctx, addr, router, r.logger)
}
