package curate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperjump/agrafes/internal/models"
	"github.com/hyperjump/agrafes/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st, nil, nil), st
}

func seedDocUnits(t *testing.T, st *store.Store, docID string, lines []string) []*models.Unit {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.CreateDocument(ctx, &models.Document{ID: docID, Title: "Doc", Language: "en", Role: models.RoleStandalone, CreatedAt: time.Now().UTC()}))

	units := make([]*models.Unit, len(lines))
	for i, l := range lines {
		units[i] = &models.Unit{DocID: docID, Kind: models.KindLine, N: i + 1, TextRaw: l, TextNorm: l}
	}
	require.NoError(t, st.WithTx(ctx, func(tx *sql.Tx) error {
		return store.CreateUnitsTx(ctx, tx, units)
	}))
	return units
}

func TestPreview_DoesNotMutateStore(t *testing.T) {
	e, st := newTestEngine(t)
	seedDocUnits(t, st, "doc1", []string{"hello world", "goodbye world"})

	result, err := e.Preview(context.Background(), "doc1", []Rule{{Pattern: "world", Replacement: "monde"}}, 5)
	require.NoError(t, err)
	require.Equal(t, 2, result.UnitsTotal)
	require.Equal(t, 2, result.UnitsChanged)
	require.Equal(t, 2, result.ReplacementsTotal)
	require.Len(t, result.Examples, 2)

	units, err := st.ListUnitsByDoc(context.Background(), "doc1")
	require.NoError(t, err)
	require.Equal(t, "hello world", units[0].TextNorm, "preview must not mutate stored text")
}

func TestPreview_InvalidRegexFailsEagerly(t *testing.T) {
	e, st := newTestEngine(t)
	seedDocUnits(t, st, "doc1", []string{"hello"})

	_, err := e.Preview(context.Background(), "doc1", []Rule{{Pattern: "("}}, 5)
	require.Error(t, err)
}

func TestApply_MutatesTextNormOnly(t *testing.T) {
	e, st := newTestEngine(t)
	seedDocUnits(t, st, "doc1", []string{"hello world"})

	result, err := e.Apply(context.Background(), "doc1", []Rule{{Pattern: "world", Replacement: "monde"}})
	require.NoError(t, err)
	require.Equal(t, 1, result.UnitsChanged)
	require.True(t, result.IndexStale)

	units, err := st.ListUnitsByDoc(context.Background(), "doc1")
	require.NoError(t, err)
	require.Equal(t, "hello monde", units[0].TextNorm)
	require.Equal(t, "hello world", units[0].TextRaw, "text_raw must never be mutated")

	stale, err := st.IndexStale(context.Background())
	require.NoError(t, err)
	require.True(t, stale)
}

func TestApply_AllDocumentsScope(t *testing.T) {
	e, st := newTestEngine(t)
	seedDocUnits(t, st, "doc1", []string{"foo"})
	seedDocUnits(t, st, "doc2", []string{"foo bar"})

	result, err := e.Apply(context.Background(), "", []Rule{{Pattern: "foo", Replacement: "baz"}})
	require.NoError(t, err)
	require.Equal(t, 2, result.UnitsChanged)
}

func TestApply_NoChangesLeavesIndexFresh(t *testing.T) {
	e, st := newTestEngine(t)
	seedDocUnits(t, st, "doc1", []string{"hello"})

	result, err := e.Apply(context.Background(), "doc1", []Rule{{Pattern: "xyz", Replacement: "abc"}})
	require.NoError(t, err)
	require.Equal(t, 0, result.UnitsChanged)
	require.False(t, result.IndexStale)
}
