package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperjump/agrafes/internal/models"
)

func TestParseNumberedLines_Basic(t *testing.T) {
	text := "[1] Bonjour\n[2] le monde\nscene heading\n[3] Au revoir"
	report := &Report{}
	units := parseNumberedLines(text, report)
	require.Len(t, units, 4)

	require.Equal(t, models.KindLine, units[0].Kind)
	require.Equal(t, int64(1), *units[0].ExternalID)
	require.Equal(t, "Bonjour", units[0].TextRaw)

	require.Equal(t, models.KindLine, units[1].Kind)
	require.Equal(t, int64(2), *units[1].ExternalID)

	require.Equal(t, models.KindStructure, units[2].Kind)
	require.Nil(t, units[2].ExternalID)

	require.Equal(t, models.KindLine, units[3].Kind)
	require.Equal(t, int64(3), *units[3].ExternalID)

	require.Empty(t, report.Warnings)
}

func TestParseNumberedLines_DuplicateExternalID(t *testing.T) {
	text := "[1] one\n[1] one again"
	report := &Report{}
	units := parseNumberedLines(text, report)
	require.Len(t, units, 2)
	require.Equal(t, models.KindLine, units[0].Kind)
	require.Equal(t, models.KindStructure, units[1].Kind, "duplicate external id demotes to structure")
	require.NotEmpty(t, report.Warnings)
}

func TestParseNumberedLines_NonMonotonicAndGap(t *testing.T) {
	text := "[1] a\n[5] b\n[3] c"
	report := &Report{}
	units := parseNumberedLines(text, report)
	require.Len(t, units, 3)
	require.Len(t, report.Warnings, 2, "expects a gap warning then a non-monotonic warning")
}

func TestParseNumberedLines_SkipsBlankLines(t *testing.T) {
	text := "[1] a\n\n\n[2] b"
	report := &Report{}
	units := parseNumberedLines(text, report)
	require.Len(t, units, 2)
	require.Equal(t, 1, units[0].N)
	require.Equal(t, 2, units[1].N)
}
