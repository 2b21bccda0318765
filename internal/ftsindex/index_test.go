package ftsindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperjump/agrafes/internal/models"
)

func TestRebuildAndSearch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fts")
	idx, err := Open(path)
	require.NoError(t, err)
	defer idx.Close()

	units := []*models.Unit{
		{ID: 1, DocID: "doc1", Kind: models.KindLine, TextNorm: "bonjour le monde"},
		{ID: 2, DocID: "doc1", Kind: models.KindLine, TextNorm: "au revoir le monde"},
		{ID: 3, DocID: "doc1", Kind: models.KindStructure, TextNorm: "== chapitre =="},
		{ID: 4, DocID: "doc2", Kind: models.KindLine, TextNorm: "hello world"},
	}
	meta := map[string]DocMeta{
		"doc1": {Language: "fr", Role: "original"},
		"doc2": {Language: "en", Role: "translation"},
	}
	require.NoError(t, idx.Rebuild(context.Background(), units, meta))

	count, err := idx.DocCount()
	require.NoError(t, err)
	require.Equal(t, uint64(3), count, "structure units must not be indexed")

	res, err := idx.Search("monde", SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)

	res, err = idx.Search("monde", SearchOptions{Limit: 10, Language: "fr"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)

	res, err = idx.Search("world", SearchOptions{Limit: 10, Language: "fr"})
	require.NoError(t, err)
	require.Empty(t, res.Hits, "language filter must exclude doc2")

	res, err = idx.Search("monde", SearchOptions{Limit: 10})
	require.NoError(t, err)
	for _, h := range res.Hits {
		require.NotEmpty(t, h.Matches, "IncludeLocations must populate match spans")
	}
}

func TestRebuildIsDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fts")
	idx, err := Open(path)
	require.NoError(t, err)
	defer idx.Close()

	units := []*models.Unit{{ID: 1, DocID: "doc1", Kind: models.KindLine, TextNorm: "hello"}}
	require.NoError(t, idx.Rebuild(context.Background(), units, nil))
	n1, _ := idx.DocCount()

	require.NoError(t, idx.Rebuild(context.Background(), units, nil))
	n2, _ := idx.DocCount()

	require.Equal(t, n1, n2)
}
