// package ledger persists the set of Drive file ids that have been fully migrated.
//
// The ledger is the pipeline's idempotency record: an id listed here has been
// both downloaded and uploaded without error, and will never be fetched
// again. Records are append-only; nothing updates or deletes them. The
// ledger itself does not deduplicate appends — the sync engine diffs against
// ListProcessedIDs before committing, so at most one record per id exists in
// practice.
//
// Two interchangeable backends: [SQLiteLedger] for the durable, queryable
// store behind the scheduled and HTTP-triggered runs, and [FileLedger], a
// whole-document JSON state file for the offline batch migration.
package ledger

import (
	"context"
	"time"

	"github.com/desertthunder/drivesync/internal/catalog"
)

// Record is durable proof that one asset has been fully migrated.
type Record struct {
	FileID   string
	Kind     catalog.AssetKind
	SyncedAt time.Time
}

// Ledger is the processed-file record store.
type Ledger interface {
	// ListProcessedIDs returns every file id ever committed, in commit order.
	ListProcessedIDs(ctx context.Context) ([]string, error)

	// MarkProcessed durably appends the given records. Appends are not
	// deduplicated; callers must not re-append ids already listed.
	MarkProcessed(ctx context.Context, records []Record) error
}
