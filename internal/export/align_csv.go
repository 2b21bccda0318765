package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/hyperjump/agrafes/internal/align"
)

// AlignCSVRow is one row of the alignment dump: pivot/target external id
// and text, plus the link's review status. Both external id fields hold the
// link's own external_id (see rowFromEntry), so they are always equal, and
// both are empty when the link carries no external_id; the target unit's
// own external id is not looked up.
type AlignCSVRow struct {
	PivotExternalID  *int64
	PivotText        string
	TargetExternalID *int64
	TargetText       string
	Status           string
}

func rowFromEntry(e align.AuditEntry) AlignCSVRow {
	return AlignCSVRow{
		PivotExternalID:  e.Link.ExternalID,
		PivotText:        e.PivotText,
		TargetExternalID: e.Link.ExternalID,
		TargetText:       e.TargetText,
		Status:           string(e.Link.Status),
	}
}

// RowsFromEntries converts audit entries to export rows.
func RowsFromEntries(entries []align.AuditEntry) []AlignCSVRow {
	rows := make([]AlignCSVRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, rowFromEntry(e))
	}
	return rows
}

// WriteAlignCSV writes rows delimited by delim (',' for CSV, '\t' for TSV).
func WriteAlignCSV(w io.Writer, rows []AlignCSVRow, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim

	header := []string{"pivot_external_id", "pivot_text", "target_external_id", "target_text", "status"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write align csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			formatExternalID(r.PivotExternalID),
			r.PivotText,
			formatExternalID(r.TargetExternalID),
			r.TargetText,
			r.Status,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write align csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatExternalID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}
