package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/desertthunder/drivesync/internal/shared"
)

// state is the JSON document a FileLedger persists.
//
// Completed mirrors the synced-files set. Failed is a best-effort hint for
// the next run's logging; it is cleared at the start of every batch run and
// carries no durability guarantee.
type state struct {
	Completed []string `json:"completed"`
	Failed    []string `json:"failed"`
}

// FileLedger implements [Ledger] as a local JSON state file.
//
// Backs the one-shot batch migration. The whole document is read on open and
// rewritten after every state change, so an interrupted run resumes from the
// last completed asset.
type FileLedger struct {
	path  string
	state state
}

// OpenFileLedger loads the state file at path, creating an empty ledger if
// the file does not exist yet.
func OpenFileLedger(path string) (*FileLedger, error) {
	l := &FileLedger{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrLedgerRead, err)
	}

	if err := json.Unmarshal(data, &l.state); err != nil {
		return nil, fmt.Errorf("%w: malformed state file %s: %v", shared.ErrLedgerRead, path, err)
	}

	return l, nil
}

// ListProcessedIDs returns the completed set in commit order.
func (l *FileLedger) ListProcessedIDs(ctx context.Context) ([]string, error) {
	return slices.Clone(l.state.Completed), nil
}

// MarkProcessed appends the record ids to the completed set and rewrites the file.
func (l *FileLedger) MarkProcessed(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	for _, record := range records {
		l.state.Completed = append(l.state.Completed, record.FileID)
	}

	return l.save()
}

// MarkFailed records a failed id for next-run visibility. Duplicates are skipped.
func (l *FileLedger) MarkFailed(id string) error {
	if slices.Contains(l.state.Failed, id) {
		return nil
	}

	l.state.Failed = append(l.state.Failed, id)
	return l.save()
}

// ResetFailed clears the failed set so a new run retries everything.
func (l *FileLedger) ResetFailed() error {
	if len(l.state.Failed) == 0 {
		return nil
	}

	l.state.Failed = nil
	return l.save()
}

// FailedIDs returns the failed ids recorded by the previous run.
func (l *FileLedger) FailedIDs() []string {
	return slices.Clone(l.state.Failed)
}

// save rewrites the whole state document.
func (l *FileLedger) save() error {
	data, err := json.MarshalIndent(l.state, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrLedgerWrite, err)
	}

	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrLedgerWrite, err)
	}

	return nil
}
