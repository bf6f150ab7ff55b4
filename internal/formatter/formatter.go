// package formatter renders sync results for the CLI and exports ledger reports.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/drivesync/internal/ledger"
	"github.com/desertthunder/drivesync/internal/shared"
	"github.com/desertthunder/drivesync/internal/tasks"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

// RenderRunSummary renders a run summary as a styled console block.
func RenderRunSummary(summary *tasks.RunSummary) string {
	var buf bytes.Buffer

	buf.WriteString(titleStyle.Render("Sync Run Complete"))
	buf.WriteString("\n")
	buf.WriteString(dimStyle.Render(fmt.Sprintf("run %s", summary.RunID)))
	buf.WriteString("\n\n")

	buf.WriteString(fmt.Sprintf("Catalog files: %d\n", summary.Total))
	buf.WriteString(fmt.Sprintf("New this run:  %d\n", summary.New))
	buf.WriteString(okStyle.Render(fmt.Sprintf("Processed:     %d", summary.Processed)))
	buf.WriteString("\n")

	if len(summary.Failed) > 0 {
		buf.WriteString(errStyle.Render(fmt.Sprintf("Failed:        %d", len(summary.Failed))))
		buf.WriteString("\n")
		for _, id := range summary.Failed {
			buf.WriteString(fmt.Sprintf("  - %s\n", id))
		}
	}

	return buf.String()
}

// RenderMigrateResult renders a batch migration result as a styled console block.
func RenderMigrateResult(result *tasks.MigrateResult) string {
	var buf bytes.Buffer

	buf.WriteString(titleStyle.Render("Migration Complete"))
	buf.WriteString("\n\n")

	buf.WriteString(fmt.Sprintf("Thumbnails: %d\n", result.Thumbs))
	buf.WriteString(fmt.Sprintf("Videos:     %d\n", result.Videos))
	buf.WriteString(fmt.Sprintf("Skipped:    %d (already synced)\n", result.Skipped))
	buf.WriteString(okStyle.Render(fmt.Sprintf("Processed:  %d", result.Processed)))
	buf.WriteString("\n")

	if len(result.Failed) > 0 {
		buf.WriteString(errStyle.Render(fmt.Sprintf("Failed:     %d", len(result.Failed))))
		buf.WriteString("\n")
		for _, id := range result.Failed {
			buf.WriteString(fmt.Sprintf("  - %s\n", id))
		}
	}

	return buf.String()
}

// ExportRecordsToCSV converts ledger records to CSV with columns: FileID, Kind, Key, SyncedAt
func ExportRecordsToCSV(records []ledger.Record) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"FileID", "Kind", "Key", "SyncedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, record := range records {
		row := []string{
			record.FileID,
			record.Kind.String(),
			record.Kind.Key(record.FileID),
			record.SyncedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToSummaryJSON generates a JSON representation of a run summary.
func ToSummaryJSON(summary *tasks.RunSummary, pretty bool) ([]byte, error) {
	return shared.MarshalJSON(summary, pretty)
}
