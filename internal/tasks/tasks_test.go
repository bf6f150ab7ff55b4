package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/drivesync/internal/catalog"
	"github.com/desertthunder/drivesync/internal/ledger"
	"github.com/desertthunder/drivesync/internal/shared"
	tu "github.com/desertthunder/drivesync/internal/testing"
)

// sheetRow builds a catalog row with Drive links at the given columns.
func sheetRow(cells map[int]string) []string {
	row := make([]string, 30)
	for col, val := range cells {
		row[col] = val
	}
	return row
}

func link(id string) string {
	return "https://drive.google.com/file/d/" + id + "/view"
}

// newTestEngine wires an engine from fresh mocks.
func newTestEngine(rows [][]string) (*SyncEngine, *tu.MockDownloader, *tu.MockUploader, *tu.MockLedger) {
	source := &tu.MockSource{RowsData: rows}
	downloader := &tu.MockDownloader{}
	uploader := tu.NewMockUploader()
	processed := &tu.MockLedger{}

	engine := NewSyncEngine(source, downloader, uploader, processed, shared.NewLogger(&tu.FWriter{}))
	return engine, downloader, uploader, processed
}

func ledgerIDs(l *tu.MockLedger) []string {
	ids := make([]string, 0, len(l.Records))
	for _, record := range l.Records {
		ids = append(ids, record.FileID)
	}
	return ids
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("Migrates New Assets", func(t *testing.T) {
		rows := [][]string{
			sheetRow(map[int]string{23: link("vid1"), 25: link("thumb1")}),
		}
		engine, _, uploader, processed := newTestEngine(rows)

		summary, err := engine.Run(ctx, nil, 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if summary.Processed != 2 {
			t.Errorf("expected 2 processed, got %d", summary.Processed)
		}

		if len(summary.Failed) != 0 {
			t.Errorf("expected no failures, got %v", summary.Failed)
		}

		if _, ok := uploader.Uploads["videos/vid1.mp4"]; !ok {
			t.Error("video should be uploaded to videos/vid1.mp4")
		}
		if uploader.Types["videos/vid1.mp4"] != "video/mp4" {
			t.Errorf("expected video/mp4, got %s", uploader.Types["videos/vid1.mp4"])
		}

		if _, ok := uploader.Uploads["thumbs/thumb1.jpg"]; !ok {
			t.Error("thumbnail should be uploaded to thumbs/thumb1.jpg")
		}
		if uploader.Types["thumbs/thumb1.jpg"] != "image/jpeg" {
			t.Errorf("expected image/jpeg, got %s", uploader.Types["thumbs/thumb1.jpg"])
		}

		if len(processed.Records) != 2 {
			t.Errorf("expected 2 ledger records, got %d", len(processed.Records))
		}
	})

	t.Run("Second Run Is Idempotent", func(t *testing.T) {
		rows := [][]string{
			sheetRow(map[int]string{23: link("vid1"), 25: link("thumb1")}),
		}
		engine, downloader, _, processed := newTestEngine(rows)

		if _, err := engine.Run(ctx, nil, 10); err != nil {
			t.Fatalf("first run failed: %v", err)
		}

		before := len(processed.Records)
		downloads := len(downloader.Calls)

		summary, err := engine.Run(ctx, nil, 10)
		if err != nil {
			t.Fatalf("second run failed: %v", err)
		}

		if summary.Processed != 0 {
			t.Errorf("second run should process nothing, got %d", summary.Processed)
		}

		if len(processed.Records) != before {
			t.Error("ledger should be unchanged after second run")
		}

		if len(downloader.Calls) != downloads {
			t.Error("no downloads should happen on an idempotent run")
		}
	})

	t.Run("Cap Bounds Work Per Run", func(t *testing.T) {
		var rows [][]string
		ids := []string{"a", "b", "c", "d", "e"}
		for _, id := range ids {
			rows = append(rows, sheetRow(map[int]string{25: link(id)}))
		}
		engine, _, _, processed := newTestEngine(rows)

		summary, err := engine.Run(ctx, nil, 3)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if summary.Processed != 3 {
			t.Errorf("expected 3 processed with cap 3, got %d", summary.Processed)
		}

		if summary.New != 5 {
			t.Errorf("expected 5 new, got %d", summary.New)
		}

		got := ledgerIDs(processed)
		want := []string{"a", "b", "c"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("expected discovery-order prefix %v, got %v", want, got)
			}
		}

		// The rest are picked up by the next invocation.
		summary, err = engine.Run(ctx, nil, 3)
		if err != nil {
			t.Fatalf("follow-up run failed: %v", err)
		}
		if summary.Processed != 2 {
			t.Errorf("expected 2 processed on follow-up, got %d", summary.Processed)
		}
	})

	t.Run("No Partial Credit On Upload Failure", func(t *testing.T) {
		rows := [][]string{
			sheetRow(map[int]string{25: link("good"), 26: link("bad"), 27: link("alsogood")}),
		}
		engine, _, uploader, processed := newTestEngine(rows)
		uploader.FailKeys = map[string]error{"thumbs/bad.jpg": errors.New("boom")}

		summary, err := engine.Run(ctx, nil, 10)
		if err != nil {
			t.Fatalf("expected no run-level error, got %v", err)
		}

		if summary.Processed != 2 {
			t.Errorf("expected 2 processed, got %d", summary.Processed)
		}

		if len(summary.Failed) != 1 || summary.Failed[0] != "bad" {
			t.Errorf("expected failed=[bad], got %v", summary.Failed)
		}

		for _, id := range ledgerIDs(processed) {
			if id == "bad" {
				t.Error("failed asset must be absent from the ledger")
			}
		}
	})

	t.Run("Failed Asset Retried Next Run", func(t *testing.T) {
		rows := [][]string{sheetRow(map[int]string{23: link("flaky")})}
		engine, downloader, _, processed := newTestEngine(rows)
		downloader.FailIDs = map[string]error{"flaky": errors.New("status 500")}

		summary, err := engine.Run(ctx, nil, 10)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if len(summary.Failed) != 1 {
			t.Fatalf("expected 1 failure, got %v", summary.Failed)
		}

		// The transient failure clears; the next run succeeds.
		downloader.FailIDs = nil

		summary, err = engine.Run(ctx, nil, 10)
		if err != nil {
			t.Fatalf("retry run failed: %v", err)
		}

		if summary.Processed != 1 {
			t.Errorf("expected 1 processed on retry, got %d", summary.Processed)
		}
		if len(summary.Failed) != 0 {
			t.Errorf("expected no failures on retry, got %v", summary.Failed)
		}
		if ids := ledgerIDs(processed); len(ids) != 1 || ids[0] != "flaky" {
			t.Errorf("expected ledger to contain flaky, got %v", ids)
		}
	})

	t.Run("Download Failure Does Not Abort Run", func(t *testing.T) {
		rows := [][]string{
			sheetRow(map[int]string{25: link("a")}),
			sheetRow(map[int]string{25: link("b")}),
			sheetRow(map[int]string{25: link("c")}),
		}
		engine, downloader, _, _ := newTestEngine(rows)
		downloader.FailIDs = map[string]error{"b": errors.New("404")}

		summary, err := engine.Run(ctx, nil, 10)
		if err != nil {
			t.Fatalf("expected no run-level error, got %v", err)
		}

		if summary.Processed != 2 {
			t.Errorf("expected 2 processed, got %d", summary.Processed)
		}

		if len(downloader.Calls) != 3 {
			t.Errorf("all 3 assets should be attempted, got %d calls", len(downloader.Calls))
		}
	})

	t.Run("Catalog Error Aborts Run", func(t *testing.T) {
		source := &tu.MockSource{Err: shared.ErrCatalogRead}
		engine := NewSyncEngine(source, &tu.MockDownloader{}, tu.NewMockUploader(), &tu.MockLedger{}, shared.NewLogger(&tu.FWriter{}))

		_, err := engine.Run(ctx, nil, 10)
		if !errors.Is(err, shared.ErrCatalogRead) {
			t.Errorf("expected ErrCatalogRead, got %v", err)
		}
	})

	t.Run("Ledger Read Error Aborts Run", func(t *testing.T) {
		rows := [][]string{sheetRow(map[int]string{25: link("a")})}
		engine, _, _, processed := newTestEngine(rows)
		processed.ListErr = shared.ErrLedgerRead

		if _, err := engine.Run(ctx, nil, 10); !errors.Is(err, shared.ErrLedgerRead) {
			t.Errorf("expected ErrLedgerRead, got %v", err)
		}
	})

	t.Run("Commit Failure Reports Zero Processed", func(t *testing.T) {
		rows := [][]string{sheetRow(map[int]string{25: link("a")})}
		engine, _, uploader, processed := newTestEngine(rows)
		processed.WriteErr = shared.ErrLedgerWrite

		summary, err := engine.Run(ctx, nil, 10)
		if !errors.Is(err, shared.ErrLedgerWrite) {
			t.Fatalf("expected ErrLedgerWrite, got %v", err)
		}

		if summary.Processed != 0 {
			t.Errorf("commit failure must report zero processed, got %d", summary.Processed)
		}

		// Bytes were uploaded, but without a durable record the next run
		// simply redoes the work against the same key.
		if _, ok := uploader.Uploads["thumbs/a.jpg"]; !ok {
			t.Error("upload should have happened before the failed commit")
		}
		if len(processed.Records) != 0 {
			t.Error("ledger must stay empty after a failed commit")
		}
	})

	t.Run("Empty Catalog Returns Early", func(t *testing.T) {
		engine, downloader, _, _ := newTestEngine(nil)

		summary, err := engine.Run(ctx, nil, 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if summary.Processed != 0 || len(summary.Failed) != 0 {
			t.Errorf("expected empty summary, got %+v", summary)
		}

		if len(downloader.Calls) != 0 {
			t.Error("no downloads should happen for an empty catalog")
		}
	})

	t.Run("Missing Collaborators", func(t *testing.T) {
		engine := NewSyncEngine(nil, nil, nil, nil, shared.NewLogger(&tu.FWriter{}))

		if _, err := engine.Run(ctx, nil, 10); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Progress Updates Are Emitted", func(t *testing.T) {
		rows := [][]string{sheetRow(map[int]string{25: link("a")})}
		engine, _, _, _ := newTestEngine(rows)

		progress := make(chan ProgressUpdate, 50)
		if _, err := engine.Run(ctx, progress, 10); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		close(progress)

		phases := make(map[Phase]bool)
		for update := range progress {
			phases[update.Phase] = true
		}

		for _, phase := range []Phase{CollectCatalog, DiffLedger, DownloadAsset, UploadAsset, CommitLedger} {
			if !phases[phase] {
				t.Errorf("expected a %s update", phase)
			}
		}
	})
}

func TestRunSummaryLedgerKinds(t *testing.T) {
	// Kinds recorded in the ledger come from first discovery.
	rows := [][]string{
		sheetRow(map[int]string{23: link("x"), 25: link("x")}),
	}
	engine, _, _, processed := newTestEngine(rows)

	if _, err := engine.Run(context.Background(), nil, 10); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(processed.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(processed.Records))
	}

	if processed.Records[0].Kind != catalog.KindVideo {
		t.Errorf("expected first-seen kind video, got %v", processed.Records[0].Kind)
	}
}

var _ ledger.Ledger = (*tu.MockLedger)(nil)
