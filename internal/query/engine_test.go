package query

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperjump/agrafes/internal/ftsindex"
	"github.com/hyperjump/agrafes/internal/models"
	"github.com/hyperjump/agrafes/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store, *ftsindex.Index) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	idx, err := ftsindex.Open(filepath.Join(t.TempDir(), "fts"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	return New(st, idx, nil), st, idx
}

func seedDoc(t *testing.T, st *store.Store, idx *ftsindex.Index, id, lang, title string, lines []string) []*models.Unit {
	t.Helper()
	ctx := context.Background()
	doc := &models.Document{ID: id, Title: title, Language: lang, Role: models.RoleStandalone, CreatedAt: time.Now().UTC()}
	require.NoError(t, st.CreateDocument(ctx, doc))

	units := make([]*models.Unit, len(lines))
	for i, text := range lines {
		units[i] = &models.Unit{DocID: id, Kind: models.KindLine, N: i + 1, TextRaw: text, TextNorm: text}
	}
	require.NoError(t, st.WithTx(ctx, func(tx *sql.Tx) error {
		return store.CreateUnitsTx(ctx, tx, units)
	}))

	all, err := st.ListLineUnits(ctx)
	require.NoError(t, err)
	require.NoError(t, idx.Rebuild(ctx, all, map[string]ftsindex.DocMeta{id: {Language: lang}}))
	return units
}

func TestEngineRun_SegmentMode(t *testing.T) {
	e, st, idx := newTestEngine(t)
	seedDoc(t, st, idx, "doc1", "fr", "Roman", []string{
		"bonjour le monde entier",
		"au revoir le monde",
	})

	req := &models.QueryRequest{Q: "monde", Mode: models.ModeSegment}
	resp, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Hits, 2)
	for _, h := range resp.Hits {
		require.Contains(t, h.Text, "<<monde>>")
	}
	require.False(t, resp.HasMore)
}

func TestEngineRun_KWICMode(t *testing.T) {
	e, st, idx := newTestEngine(t)
	seedDoc(t, st, idx, "doc1", "fr", "Roman", []string{
		"bonjour le monde entier et vaste",
	})

	req := &models.QueryRequest{Q: "monde", Mode: models.ModeKWIC, Window: 2}
	resp, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	h := resp.Hits[0]
	require.Equal(t, "monde", h.Match)
	require.Equal(t, "bonjour le", h.Left)
	require.Equal(t, "entier et", h.Right)
}

func TestEngineRun_Pagination(t *testing.T) {
	e, st, idx := newTestEngine(t)
	lines := []string{"chat noir un", "chat noir deux", "chat noir trois"}
	seedDoc(t, st, idx, "doc1", "fr", "Roman", lines)

	req := &models.QueryRequest{Q: "chat", Mode: models.ModeSegment, Limit: 2}
	resp, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Hits, 2)
	require.True(t, resp.HasMore)
	require.Equal(t, 2, resp.NextOffset)

	req2 := &models.QueryRequest{Q: "chat", Mode: models.ModeSegment, Limit: 2, Offset: resp.NextOffset}
	resp2, err := e.Run(context.Background(), req2)
	require.NoError(t, err)
	require.Len(t, resp2.Hits, 1)
	require.False(t, resp2.HasMore)
}

func TestEngineRun_Count(t *testing.T) {
	e, st, idx := newTestEngine(t)
	seedDoc(t, st, idx, "doc1", "fr", "Roman", []string{"chat un", "chat deux"})

	req := &models.QueryRequest{Q: "chat", Mode: models.ModeSegment, Count: true}
	resp, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.Total)
	require.Equal(t, int64(2), *resp.Total)
}

func TestEngineRun_IncludeAligned(t *testing.T) {
	e, st, idx := newTestEngine(t)
	units1 := seedDoc(t, st, idx, "doc1", "fr", "Roman FR", []string{"bonjour le monde"})
	units2 := seedDoc(t, st, idx, "doc2", "en", "Novel EN", []string{"hello the world"})

	ctx := context.Background()
	require.NoError(t, st.CreateDocRelation(ctx, &models.DocRelation{
		DocID: "doc1", RelationType: models.RelationTranslationOf, TargetDocID: "doc2",
	}))

	require.NoError(t, st.WithTx(ctx, func(tx *sql.Tx) error {
		return store.CreateAlignmentLinksTx(ctx, tx, []*models.AlignmentLink{{
			RunID: "run1", PivotUnit: units1[0].ID, TargetUnit: units2[0].ID,
			PivotDoc: "doc1", TargetDoc: "doc2", CreatedAt: time.Now().UTC(),
		}})
	}))

	req := &models.QueryRequest{Q: "monde", Mode: models.ModeSegment, IncludeAligned: true}
	resp, err := e.Run(ctx, req)
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	require.Len(t, resp.Hits[0].Aligned, 1)
	require.Equal(t, "doc2", resp.Hits[0].Aligned[0].DocID)
	require.Equal(t, "hello the world", resp.Hits[0].Aligned[0].Text)
}

func TestEngineRun_FTSStaleFlag(t *testing.T) {
	e, st, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, st.SetIndexStale(ctx, true))

	req := &models.QueryRequest{Q: "anything", Mode: models.ModeSegment}
	resp, err := e.Run(ctx, req)
	require.NoError(t, err)
	require.True(t, resp.FTSStale)
}
