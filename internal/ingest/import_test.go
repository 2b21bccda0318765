package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperjump/agrafes/internal/models"
	"github.com/hyperjump/agrafes/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestImport_NumberedLine(t *testing.T) {
	s := openTestStore(t)
	imp := NewImporter(s)
	ctx := context.Background()

	input := models.DocumentInput{
		Title:      "Correspondence",
		Language:   "fr",
		Role:       models.RoleOriginal,
		SourcePath: "/corpus/letters.txt",
		Format:     FormatNumberedLine,
		Content:    []byte("[1] Bonjour\n[2] le monde"),
	}

	doc, report, err := imp.Import(ctx, input)
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)
	require.Equal(t, 2, report.LineUnits)
	require.Equal(t, "utf-8", report.Encoding)

	units, err := s.ListUnitsByDoc(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, units, 2)
	require.Equal(t, "Bonjour", units[0].TextRaw)

	stale, err := s.IndexStale(ctx)
	require.NoError(t, err)
	require.True(t, stale, "import must mark the full-text index stale")
}

func TestImport_UnsupportedFormat(t *testing.T) {
	s := openTestStore(t)
	imp := NewImporter(s)
	_, _, err := imp.Import(context.Background(), models.DocumentInput{Format: "unknown", Content: []byte("x")})
	require.Error(t, err)
}

func TestImport_TEIXML(t *testing.T) {
	s := openTestStore(t)
	imp := NewImporter(s)
	ctx := context.Background()

	xmlContent := []byte(`<TEI xml:lang="es"><teiHeader><title>Cartas</title></teiHeader><text><body>` +
		`<p xml:id="s1">Hola</p><p xml:id="s2">Mundo</p></body></text></TEI>`)

	doc, report, err := imp.Import(ctx, models.DocumentInput{
		SourcePath: "/corpus/cartas.xml",
		Format:     FormatTEIXML,
		Content:    xmlContent,
	})
	require.NoError(t, err)
	require.Equal(t, "Cartas", doc.Title)
	require.Equal(t, "es", doc.Language)
	require.Equal(t, 2, report.LineUnits)
}
