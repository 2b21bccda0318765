package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperjump/agrafes/internal/models"
)

func sampleResponse() *models.QueryResponse {
	return &models.QueryResponse{
		Hits: []models.Hit{
			{DocID: "doc-1", UnitID: 1, Language: "fr", Title: "Doc One", Text: "Bonjour le monde."},
			{DocID: "doc-1", UnitID: 2, Language: "fr", Left: "le", Match: "monde", Right: "est grand."},
		},
		QueryTimeMS: 3,
	}
}

func TestWriteHits_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHits(&buf, sampleResponse(), OutputJSON))
	require.Contains(t, buf.String(), `"doc_id": "doc-1"`)
}

func TestWriteHits_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHits(&buf, sampleResponse(), OutputText))
	out := buf.String()
	require.Contains(t, out, "Found 2 hits in 3ms")
	require.Contains(t, out, "Bonjour le monde.")
	require.Contains(t, out, "<<monde>>")
}

func TestWriteHits_Compact(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHits(&buf, sampleResponse(), OutputCompact))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[1], "doc-1#1")
}

func TestWriteHits_FTSStaleNotice(t *testing.T) {
	var buf bytes.Buffer
	resp := sampleResponse()
	resp.FTSStale = true
	require.NoError(t, WriteHits(&buf, resp, OutputText))
	require.Contains(t, buf.String(), "index is stale")
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "hello", Truncate("hello", 10))
	require.Equal(t, "he...", Truncate("hello", 2))
}

func TestSanitizeForLine(t *testing.T) {
	require.Equal(t, "a b c", SanitizeForLine("a\nb\tc"))
}
