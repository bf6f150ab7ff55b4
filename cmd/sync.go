package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/drivesync/internal/formatter"
	"github.com/desertthunder/drivesync/internal/ledger"
	"github.com/desertthunder/drivesync/internal/shared"
	"github.com/desertthunder/drivesync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// watchProgress drains engine progress updates into the logger until the
// channel closes.
func (r *Runner) watchProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	for update := range progress {
		if update.Total > 0 {
			r.logger.Info(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		} else {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
	}
	close(done)
}

// SyncRun performs one bounded sync pass and prints the run summary.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	limit := int(cmd.Int("limit"))

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go r.watchProgress(progress, done)

	startedAt := time.Now().UTC()
	summary, runErr := r.engine.Run(ctx, progress, limit)
	close(progress)
	<-done

	if summary != nil {
		if sq, ok := r.ledger.(*ledger.SQLiteLedger); ok {
			record := ledger.RunRecord{
				ID:         summary.RunID,
				StartedAt:  startedAt,
				FinishedAt: time.Now().UTC(),
				Processed:  summary.Processed,
				Failed:     len(summary.Failed),
			}
			if runErr != nil {
				record.Error = runErr.Error()
			}
			if err := sq.RecordRun(ctx, record); err != nil {
				r.logger.Warn("failed to record run", "error", err)
			}
		}

		if cmd.Bool("json") {
			if err := r.writeJSON(summary, cmd.Bool("pretty")); err != nil {
				return err
			}
		} else {
			r.writePlain("%s", formatter.RenderRunSummary(summary))
		}
	}

	if runErr != nil {
		return fmt.Errorf("sync run failed: %w", runErr)
	}

	return nil
}

// SyncStatus reports how many files the ledger records as synced, optionally
// exporting the full record list as CSV.
func (r *Runner) SyncStatus(ctx context.Context, cmd *cli.Command) error {
	if r.ledger == nil {
		return fmt.Errorf("%w: ledger not initialized, run 'drivesync setup' first", shared.ErrServiceUnavailable)
	}

	ids, err := r.ledger.ListProcessedIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to read ledger: %w", err)
	}

	if csvPath := cmd.String("csv"); csvPath != "" {
		sq, ok := r.ledger.(*ledger.SQLiteLedger)
		if !ok {
			return fmt.Errorf("%w: CSV export requires the sqlite ledger backend", shared.ErrInvalidFlag)
		}

		records, err := sq.Records(ctx)
		if err != nil {
			return fmt.Errorf("failed to read ledger records: %w", err)
		}

		data, err := formatter.ExportRecordsToCSV(records)
		if err != nil {
			return fmt.Errorf("failed to render CSV: %w", err)
		}

		if err := os.WriteFile(csvPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write CSV file: %w", err)
		}

		r.logger.Info("ledger exported", "path", csvPath, "records", len(records))
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"synced": len(ids)}, false)
	}

	return r.writePlain("%d files synced\n", len(ids))
}
