package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/drivesync/internal/catalog"
	"github.com/desertthunder/drivesync/internal/ledger"
	"github.com/desertthunder/drivesync/internal/shared"
	"github.com/desertthunder/drivesync/internal/storage"
)

// RunSummary contains the result of a single bounded sync pass.
type RunSummary struct {
	RunID     string   `json:"run_id"`
	Total     int      `json:"total"`     // Files listed in the catalog
	New       int      `json:"new"`       // Files not yet in the ledger
	Processed int      `json:"processed"` // Files fully migrated this run
	Failed    []string `json:"failed"`    // File ids that failed this run
}

// MigrateOpts contains configuration for a one-shot batch migration.
type MigrateOpts struct {
	ThumbsDir string // Local thumbnail directory reused instead of downloading (optional)
	DryRun    bool   // Report what would be migrated without moving bytes
}

// MigrateResult contains the result of a batch migration.
type MigrateResult struct {
	Thumbs    int      `json:"thumbs"`    // Thumbnails discovered in the catalog
	Videos    int      `json:"videos"`    // Videos discovered in the catalog
	Skipped   int      `json:"skipped"`   // Already-synced files skipped
	Processed int      `json:"processed"` // Files migrated this run
	Failed    []string `json:"failed"`    // File ids that failed this run
}

// Downloader fetches the raw bytes of one Drive file.
// Satisfied by [drive.Downloader]; abstracted for testing.
type Downloader interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Engine defines the sync orchestration operations.
type Engine interface {
	// Run performs one bounded sync pass: diff the catalog against the
	// ledger, migrate up to batchSize new assets sequentially, commit
	// successes in one batch.
	Run(ctx context.Context, progress chan<- ProgressUpdate, batchSize int) (*RunSummary, error)

	// Migrate performs a full two-phase batch migration with per-asset
	// ledger commits.
	Migrate(ctx context.Context, progress chan<- ProgressUpdate, opts MigrateOpts) (*MigrateResult, error)
}

// SyncEngine implements [Engine]. Holds the pipeline's collaborators,
// injected at construction; the engine itself keeps no cross-run state.
type SyncEngine struct {
	source     catalog.Source
	downloader Downloader
	uploader   storage.Uploader
	ledger     ledger.Ledger
	logger     *log.Logger
	localFiles LocalFileReader
}

// LocalFileReader reads a previously exported local copy of a thumbnail,
// letting the batch migration skip the Drive download. Satisfied by
// [ThumbsDirReader]; nil disables the shortcut.
type LocalFileReader interface {
	// Read returns the local bytes for the file id, or ok=false when no
	// local copy exists.
	Read(fileID string) (data []byte, ok bool, err error)
}

// NewSyncEngine creates a SyncEngine with the provided collaborators.
func NewSyncEngine(source catalog.Source, downloader Downloader, uploader storage.Uploader, processed ledger.Ledger, logger *log.Logger) *SyncEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &SyncEngine{
		source:     source,
		downloader: downloader,
		uploader:   uploader,
		ledger:     processed,
		logger:     logger,
	}
}

// SetLocalFiles installs a local-copy reader used by Migrate for thumbnails.
func (e *SyncEngine) SetLocalFiles(r LocalFileReader) {
	e.localFiles = r
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *SyncEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// collectNew reads the catalog and the ledger and returns the full asset
// list plus the subset not yet migrated, preserving discovery order.
func (e *SyncEngine) collectNew(ctx context.Context, progress chan<- ProgressUpdate) (all, fresh []catalog.Asset, err error) {
	if e.source == nil {
		return nil, nil, fmt.Errorf("%w: catalog source not initialized", shared.ErrServiceUnavailable)
	}
	if e.downloader == nil || e.uploader == nil || e.ledger == nil {
		return nil, nil, fmt.Errorf("%w: sync engine missing collaborators", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, collectCatalogUpdate())

	rows, err := e.source.Rows(ctx)
	if err != nil {
		return nil, nil, err
	}
	all = catalog.Collect(rows)

	processedIDs, err := e.ledger.ListProcessedIDs(ctx)
	if err != nil {
		return nil, nil, err
	}

	processed := make(map[string]struct{}, len(processedIDs))
	for _, id := range processedIDs {
		processed[id] = struct{}{}
	}

	for _, asset := range all {
		if _, done := processed[asset.ID]; !done {
			fresh = append(fresh, asset)
		}
	}

	e.sendProgress(progress, diffLedgerUpdate(len(all), len(processed), len(fresh)))
	e.logger.Info("catalog diffed", "total", len(all), "synced", len(processed), "new", len(fresh))

	return all, fresh, nil
}

// migrateAsset drives one asset through download then upload.
// Returns the terminal error for this attempt; the asset gets no partial
// credit, so any failure leaves it out of the ledger entirely.
func (e *SyncEngine) migrateAsset(ctx context.Context, asset catalog.Asset) error {
	data, err := e.downloader.Download(ctx, asset.ID)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	if err := e.uploader.Upload(ctx, asset.Kind.Key(asset.ID), data, asset.Kind.ContentType()); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	return nil
}

// Run performs one bounded sync pass.
//
// Per-asset failures are logged and collected, never fatal. A batchSize of
// zero or less means no cap. If the final ledger commit fails, the run
// reports zero processed even though the bytes were uploaded: without a
// durable record the assets are not migrated, and the next run redoes them
// against the same object keys.
func (e *SyncEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, batchSize int) (*RunSummary, error) {
	runID := shared.GenerateRunID()
	logger := e.logger.With("run_id", runID)

	summary := &RunSummary{RunID: runID, Failed: []string{}}

	all, fresh, err := e.collectNew(ctx, progress)
	if err != nil {
		return nil, err
	}
	summary.Total = len(all)
	summary.New = len(fresh)

	if len(fresh) == 0 {
		logger.Info("nothing to sync")
		return summary, nil
	}

	batch := fresh
	if batchSize > 0 && len(batch) > batchSize {
		batch = batch[:batchSize]
	}

	var succeeded []ledger.Record

	for i, asset := range batch {
		e.sendProgress(progress, downloadUpdate(i+1, len(batch), asset.ID))

		if err := e.migrateAsset(ctx, asset); err != nil {
			logger.Error("asset failed", "file_id", asset.ID, "kind", asset.Kind, "err", err)
			summary.Failed = append(summary.Failed, asset.ID)
			continue
		}

		e.sendProgress(progress, uploadUpdate(i+1, len(batch), asset.Kind.Key(asset.ID)))
		logger.Info("asset synced", "file_id", asset.ID, "kind", asset.Kind)

		succeeded = append(succeeded, ledger.Record{
			FileID:   asset.ID,
			Kind:     asset.Kind,
			SyncedAt: time.Now().UTC(),
		})
	}

	if len(succeeded) > 0 {
		e.sendProgress(progress, commitLedgerUpdate(len(succeeded)))

		if err := e.ledger.MarkProcessed(ctx, succeeded); err != nil {
			// Bytes are uploaded but unrecorded. Claiming success here would
			// break idempotency accounting; report zero processed and let the
			// next run redo the batch over the same keys.
			logger.Error("ledger commit failed", "records", len(succeeded), "err", err)
			summary.Processed = 0
			return summary, err
		}
	}

	summary.Processed = len(succeeded)
	logger.Info("run complete", "processed", summary.Processed, "failed", len(summary.Failed))

	return summary, nil
}
