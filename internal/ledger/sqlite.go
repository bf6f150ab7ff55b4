package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/drivesync/internal/catalog"
	"github.com/desertthunder/drivesync/internal/shared"
)

// SQLiteLedger implements [Ledger] over a SQLite database.
//
// Backs the scheduled and HTTP-triggered runs. Also keeps a runs audit table
// so operators can see what each invocation did.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger creates a SQLiteLedger with the given database connection.
// The caller is responsible for having run migrations.
func NewSQLiteLedger(db *sql.DB) *SQLiteLedger {
	return &SQLiteLedger{db: db}
}

// ListProcessedIDs returns every synced file id in insertion order.
func (l *SQLiteLedger) ListProcessedIDs(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, "SELECT file_id FROM synced_files ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrLedgerRead, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrLedgerRead, err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrLedgerRead, err)
	}

	return ids, nil
}

// MarkProcessed appends all records inside a single transaction.
func (l *SQLiteLedger) MarkProcessed(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", shared.ErrLedgerWrite, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO synced_files (file_id, kind, synced_at) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrLedgerWrite, err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, record := range records {
		syncedAt := record.SyncedAt
		if syncedAt.IsZero() {
			syncedAt = now
		}
		if _, err := stmt.ExecContext(ctx, record.FileID, record.Kind.String(), syncedAt); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrLedgerWrite, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit: %v", shared.ErrLedgerWrite, err)
	}

	return nil
}

// Records returns all ledger records, in insertion order.
func (l *SQLiteLedger) Records(ctx context.Context) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx, "SELECT file_id, kind, synced_at FROM synced_files ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrLedgerRead, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var record Record
		var kind string
		if err := rows.Scan(&record.FileID, &kind, &record.SyncedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrLedgerRead, err)
		}
		record.Kind = catalog.ParseKind(kind)
		records = append(records, record)
	}

	return records, rows.Err()
}

// RunRecord is one row of the runs audit table.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Processed  int
	Failed     int
	Error      string
}

// RecordRun appends a run summary to the audit table.
func (l *SQLiteLedger) RecordRun(ctx context.Context, run RunRecord) error {
	var errMsg any
	if run.Error != "" {
		errMsg = run.Error
	}

	_, err := l.db.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, finished_at, processed, failed, error_message) VALUES (?, ?, ?, ?, ?, ?)",
		run.ID, run.StartedAt, run.FinishedAt, run.Processed, run.Failed, errMsg,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to record run: %v", shared.ErrLedgerWrite, err)
	}

	return nil
}
