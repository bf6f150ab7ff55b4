package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	CollectCatalog Phase = iota
	DiffLedger
	DownloadAsset
	UploadAsset
	CommitLedger
	PhaseThumbs
	PhaseVideos
)

func (p Phase) String() string {
	switch p {
	case CollectCatalog:
		return "collect_catalog"
	case DiffLedger:
		return "diff_ledger"
	case DownloadAsset:
		return "download_asset"
	case UploadAsset:
		return "upload_asset"
	case CommitLedger:
		return "commit_ledger"
	case PhaseThumbs:
		return "phase_thumbs"
	case PhaseVideos:
		return "phase_videos"
	default:
		return ""
	}
}

func collectCatalogUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   CollectCatalog,
		Step:    1,
		Total:   1,
		Message: "Collecting file references from catalog...",
	}
}

func diffLedgerUpdate(total, processed, fresh int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DiffLedger,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Catalog lists %d files, %d already synced, %d new", total, processed, fresh),
	}
}

func downloadUpdate(step, total int, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadAsset,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Downloading %s...", id),
	}
}

func uploadUpdate(step, total int, key string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadAsset,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Uploading %s...", key),
	}
}

func commitLedgerUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CommitLedger,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Committing %d records to ledger...", count),
	}
}

func phaseUpdate(phase Phase, total int) ProgressUpdate {
	label := "thumbnails"
	if phase == PhaseVideos {
		label = "videos"
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Migrating %d %s...", total, label),
	}
}
