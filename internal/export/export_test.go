package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperjump/agrafes/internal/align"
	"github.com/hyperjump/agrafes/internal/models"
)

func TestWriteTEI_LineUnitsOnlyByDefault(t *testing.T) {
	doc := &models.Document{
		ID:       "doc-1",
		Title:    "Sample",
		Language: "en",
		Role:     models.RoleOriginal,
	}
	units := []*models.Unit{
		{ID: 1, DocID: "doc-1", Kind: models.KindLine, N: 1, TextRaw: "hello"},
		{ID: 2, DocID: "doc-1", Kind: models.KindStructure, N: 1, TextRaw: "chapter 1"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTEI(&buf, doc, units, false))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	require.Contains(t, out, "hello")
	require.NotContains(t, out, "chapter 1")
}

func TestWriteTEI_IncludeStructure(t *testing.T) {
	doc := &models.Document{ID: "doc-1", Title: "Sample", Language: "en", Role: models.RoleOriginal}
	units := []*models.Unit{
		{ID: 1, DocID: "doc-1", Kind: models.KindLine, N: 1, TextRaw: "hello"},
		{ID: 2, DocID: "doc-1", Kind: models.KindStructure, N: 1, TextRaw: "chapter 1"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTEI(&buf, doc, units, true))
	require.Contains(t, buf.String(), "chapter 1")
}

func TestFilterXMLText_DropsInvalidControlChars(t *testing.T) {
	s := "ok\x00bad\x01text\tkeep\nnewline"
	filtered := filterXMLText(s)
	require.NotContains(t, filtered, "\x00")
	require.NotContains(t, filtered, "\x01")
	require.Contains(t, filtered, "\t")
	require.Contains(t, filtered, "\n")
	require.Contains(t, filtered, "ok")
	require.Contains(t, filtered, "keep")
}

func TestWriteAlignCSV_RoundTrip(t *testing.T) {
	ext := int64(7)
	entries := []align.AuditEntry{
		{
			Link: &models.AlignmentLink{
				ExternalID: &ext,
				Status:     models.StatusAccepted,
			},
			PivotText:  "bonjour",
			TargetText: "hello",
		},
		{
			Link: &models.AlignmentLink{
				Status: models.StatusUnreviewed,
			},
			PivotText:  "au revoir",
			TargetText: "goodbye",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAlignCSV(&buf, RowsFromEntries(entries), ','))

	r := csv.NewReader(&buf)
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header + 2 rows
	require.Equal(t, []string{"pivot_external_id", "pivot_text", "target_external_id", "target_text", "status"}, records[0])
	require.Equal(t, "7", records[1][0])
	require.Equal(t, "bonjour", records[1][1])
	require.Equal(t, "accepted", records[1][4])
	require.Equal(t, "", records[2][0])
}

func TestWriteAlignCSV_TabDelimiter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAlignCSV(&buf, RowsFromEntries(nil), '\t'))
	require.Contains(t, buf.String(), "pivot_external_id\tpivot_text")
}

func TestWriteRunReportJSONL(t *testing.T) {
	runs := []*models.Run{
		{ID: "run-1", Kind: models.RunImport, Params: map[string]interface{}{"format": "numbered-line"}, Stats: map[string]interface{}{"units": 3}},
		{ID: "run-2", Kind: models.RunAlign, CreatedAt: time.Now()},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRunReportJSONL(&buf, runs))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "run-1")
	require.Contains(t, lines[1], "run-2")
}

func TestWriteRunReportHTML_EscapesUntrustedContent(t *testing.T) {
	runs := []*models.Run{
		{
			ID:     "run-1",
			Kind:   models.RunCurate,
			Params: map[string]interface{}{"note": "<script>alert(1)</script>"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRunReportHTML(&buf, runs))

	out := buf.String()
	require.NotContains(t, out, "<script>alert(1)</script>")
	require.Contains(t, out, "run-1")
}
