// Package runlog is the append-only record of every operation that
// produces a `run`: the JSON envelope lives in the store's `runs` table,
// and free-form detail lines go to a sibling per-run log file (§4.H).
// Exports (§4.K) read the store side; operators tail the file side.
package runlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hyperjump/agrafes/internal/models"
	"github.com/hyperjump/agrafes/internal/store"
)

// Log records runs to the store and hands out per-run file loggers.
type Log struct {
	store   *store.Store
	baseDir string
}

// New builds a run log rooted at baseDir (a sibling of the database file),
// under which runs/<run_id>/run.log files are created.
func New(st *store.Store, baseDir string) *Log {
	return &Log{store: st, baseDir: baseDir}
}

// Record writes one run's contractual JSON envelope. This is the only
// mutation the run log ever performs on a given run id — rows are never
// updated or deleted once written.
func (l *Log) Record(ctx context.Context, run *models.Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	return l.store.CreateRun(ctx, run)
}

// Get returns one run by id.
func (l *Log) Get(ctx context.Context, id string) (*models.Run, error) {
	return l.store.GetRun(ctx, id)
}

// List returns a page of runs, most recent first, optionally filtered by kind.
func (l *Log) List(ctx context.Context, kind models.RunKind, offset, limit int) ([]*models.Run, error) {
	return l.store.ListRuns(ctx, kind, offset, limit)
}

// FileLogger opens (creating if needed) the free-form detail log for one
// run: runs/<run_id>/run.log under the log's base directory. Callers
// should Sync and let the returned logger go out of scope when the
// operation completes; the file is append-only across process restarts.
func (l *Log) FileLogger(runID string) (*zap.Logger, func() error, error) {
	dir := filepath.Join(l.baseDir, "runs", runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create run log directory: %w", err)
	}
	path := filepath.Join(dir, "run.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open run log file: %w", err)
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(f), zapcore.DebugLevel)
	logger := zap.New(core).With(zap.String("run_id", runID))

	return logger, f.Close, nil
}
