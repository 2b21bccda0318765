package runlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyperjump/agrafes/internal/models"
	"github.com/hyperjump/agrafes/internal/store"
)

func TestRecordAndGet(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	l := New(st, dir)
	run := &models.Run{ID: "run-1", Kind: models.RunImport, Params: map[string]interface{}{"doc_id": "d1"}}
	require.NoError(t, l.Record(context.Background(), run))

	got, err := l.Get(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, models.RunImport, got.Kind)
	require.False(t, got.CreatedAt.IsZero())
}

func TestList_FilteredByKind(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	l := New(st, dir)
	ctx := context.Background()
	require.NoError(t, l.Record(ctx, &models.Run{ID: "r1", Kind: models.RunImport}))
	require.NoError(t, l.Record(ctx, &models.Run{ID: "r2", Kind: models.RunAlign}))

	runs, err := l.List(ctx, models.RunAlign, 0, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "r2", runs[0].ID)
}

func TestFileLogger_WritesToSiblingPath(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	l := New(st, dir)
	logger, closeFn, err := l.FileLogger("run-abc")
	require.NoError(t, err)
	logger.Info("segmenting document", zap.String("doc_id", "d1"))
	require.NoError(t, closeFn())

	path := filepath.Join(dir, "runs", "run-abc", "run.log")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "segmenting document")
}
