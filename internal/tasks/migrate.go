package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/drivesync/internal/catalog"
	"github.com/desertthunder/drivesync/internal/ledger"
)

// FailedMarker is implemented by ledger backends that track failed ids
// between runs for operator visibility. The file-backed ledger implements
// it; failure tracking is best-effort and optional.
type FailedMarker interface {
	MarkFailed(id string) error
	ResetFailed() error
}

// ThumbsDirReader implements [LocalFileReader] over a directory of
// previously exported {id}.jpg thumbnails.
type ThumbsDirReader struct {
	Dir string
}

// Read returns the bytes of {dir}/{id}.jpg when it exists.
func (r ThumbsDirReader) Read(fileID string) ([]byte, bool, error) {
	path := filepath.Join(r.Dir, fileID+".jpg")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read local thumbnail: %w", err)
	}

	return data, true, nil
}

// Migrate performs a one-shot batch migration of the entire backlog.
//
// Unlike Run, there is no cap and the ledger is committed after every asset,
// so an interrupted migration resumes from the last completed file. Assets
// are processed in two phases, thumbnails then videos, to give operators an
// early, fast-moving progress signal before the large transfers start.
func (e *SyncEngine) Migrate(ctx context.Context, progress chan<- ProgressUpdate, opts MigrateOpts) (*MigrateResult, error) {
	if opts.ThumbsDir != "" && e.localFiles == nil {
		e.localFiles = ThumbsDirReader{Dir: opts.ThumbsDir}
	}

	all, fresh, err := e.collectNew(ctx, progress)
	if err != nil {
		return nil, err
	}

	// Previous failures are retried from scratch each run.
	if marker, ok := e.ledger.(FailedMarker); ok {
		if err := marker.ResetFailed(); err != nil {
			e.logger.Warn("failed to reset failure list", "err", err)
		}
	}

	var thumbs, videos []catalog.Asset
	for _, asset := range fresh {
		if asset.Kind == catalog.KindVideo {
			videos = append(videos, asset)
		} else {
			thumbs = append(thumbs, asset)
		}
	}

	result := &MigrateResult{
		Thumbs:  len(thumbs),
		Videos:  len(videos),
		Skipped: len(all) - len(fresh),
		Failed:  []string{},
	}

	if len(fresh) == 0 {
		e.logger.Info("nothing to migrate")
		return result, nil
	}

	if opts.DryRun {
		e.logger.Info("dry run", "thumbs", len(thumbs), "videos", len(videos))
		return result, nil
	}

	for _, phase := range []struct {
		phase  Phase
		assets []catalog.Asset
	}{
		{PhaseThumbs, thumbs},
		{PhaseVideos, videos},
	} {
		if len(phase.assets) == 0 {
			continue
		}

		e.sendProgress(progress, phaseUpdate(phase.phase, len(phase.assets)))

		for i, asset := range phase.assets {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			e.sendProgress(progress, downloadUpdate(i+1, len(phase.assets), asset.ID))

			if err := e.migrateOne(ctx, asset, opts); err != nil {
				e.logger.Error("asset failed", "file_id", asset.ID, "kind", asset.Kind, "err", err)
				result.Failed = append(result.Failed, asset.ID)

				if marker, ok := e.ledger.(FailedMarker); ok {
					if err := marker.MarkFailed(asset.ID); err != nil {
						e.logger.Warn("failed to record failure", "file_id", asset.ID, "err", err)
					}
				}
				continue
			}

			result.Processed++
			e.sendProgress(progress, uploadUpdate(i+1, len(phase.assets), asset.Kind.Key(asset.ID)))
		}
	}

	e.logger.Info("migration complete", "processed", result.Processed, "failed", len(result.Failed))

	return result, nil
}

// migrateOne migrates a single asset and commits it to the ledger immediately.
//
// Thumbnails may come from a local export directory instead of Drive; videos
// always come from Drive.
func (e *SyncEngine) migrateOne(ctx context.Context, asset catalog.Asset, opts MigrateOpts) error {
	var data []byte

	if asset.Kind == catalog.KindThumb && e.localFiles != nil {
		local, ok, err := e.localFiles.Read(asset.ID)
		if err != nil {
			return err
		}
		if ok {
			e.logger.Debug("using local thumbnail", "file_id", asset.ID)
			data = local
		}
	}

	if data == nil {
		downloaded, err := e.downloader.Download(ctx, asset.ID)
		if err != nil {
			return fmt.Errorf("download: %w", err)
		}
		data = downloaded
	}

	if err := e.uploader.Upload(ctx, asset.Kind.Key(asset.ID), data, asset.Kind.ContentType()); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	record := ledger.Record{FileID: asset.ID, Kind: asset.Kind, SyncedAt: time.Now().UTC()}
	if err := e.ledger.MarkProcessed(ctx, []ledger.Record{record}); err != nil {
		return err
	}

	e.logger.Info("asset migrated", "file_id", asset.ID, "key", asset.Kind.Key(asset.ID))

	return nil
}
