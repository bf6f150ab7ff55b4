package server

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/drivesync/internal/shared"
	"github.com/desertthunder/drivesync/internal/tasks"
)

// Scheduler fires sync runs on a fixed interval, mirroring the cron trigger
// of the hosted deployment.
//
// Runs never overlap with themselves: the next tick waits until the current
// run returns. A manual HTTP-triggered run may still overlap a scheduled
// one; that race costs duplicate transfer work at worst.
type Scheduler struct {
	engine    tasks.Engine
	interval  time.Duration
	batchSize int
	logger    *log.Logger
}

// NewScheduler creates a Scheduler firing every interval with the given per-run cap.
func NewScheduler(engine tasks.Engine, interval time.Duration, batchSize int, logger *log.Logger) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Scheduler{
		engine:    engine,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Start runs the scheduling loop until ctx is cancelled.
//
// Run-level failures are logged and the loop keeps going; a flaky catalog
// or ledger should not kill the scheduler.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started", "interval", s.interval, "batch_size", s.batchSize)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			summary, err := s.engine.Run(ctx, nil, s.batchSize)
			if err != nil {
				s.logger.Error("scheduled run failed", "err", err)
				continue
			}

			s.logger.Info("scheduled run complete",
				"run_id", summary.RunID,
				"processed", summary.Processed,
				"failed", len(summary.Failed),
			)
		}
	}
}
