package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/drivesync/internal/formatter"
	"github.com/desertthunder/drivesync/internal/ledger"
	"github.com/desertthunder/drivesync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Migrate runs the one-shot batch migration of the whole backlog.
//
// Progress is tracked in a JSON state file rather than the configured ledger
// backend, so an interrupted migration resumes where it stopped and failures
// stay visible between attempts.
func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	statePath := cmd.String("state")
	if statePath == "" {
		statePath = r.config.Ledger.StateFile
	}

	state, err := ledger.OpenFileLedger(statePath)
	if err != nil {
		return fmt.Errorf("failed to open migration state: %w", err)
	}

	engine := tasks.NewSyncEngine(r.source, r.downloader, r.uploader, state, r.logger)

	thumbsDir := cmd.String("thumbs-dir")
	if thumbsDir == "" {
		thumbsDir = r.config.Sync.ThumbsDir
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go r.watchProgress(progress, done)

	result, runErr := engine.Migrate(ctx, progress, tasks.MigrateOpts{
		ThumbsDir: thumbsDir,
		DryRun:    cmd.Bool("dry-run"),
	})
	close(progress)
	<-done

	if result != nil {
		if cmd.Bool("json") {
			if err := r.writeJSON(result, cmd.Bool("pretty")); err != nil {
				return err
			}
		} else {
			r.writePlain("%s", formatter.RenderMigrateResult(result))
		}
	}

	if runErr != nil {
		return fmt.Errorf("migration failed: %w", runErr)
	}

	return nil
}
