package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hyperjump/agrafes/internal/models"
)

// CreateRun inserts an immutable run record.
func (s *Store) CreateRun(ctx context.Context, run *models.Run) error {
	return execCreateRun(ctx, s.db, run)
}

// CreateRunTx is the transactional counterpart of CreateRun, used when a run
// record must land atomically with the operation it describes.
func CreateRunTx(ctx context.Context, tx *sql.Tx, run *models.Run) error {
	return execCreateRun(ctx, tx, run)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func execCreateRun(ctx context.Context, e execer, run *models.Run) error {
	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("marshal run params: %w", err)
	}
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("marshal run stats: %w", err)
	}
	_, err = e.ExecContext(ctx,
		`INSERT INTO runs (id, kind, params, stats, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, string(run.Kind), string(paramsJSON), string(statsJSON), run.CreatedAt)
	return err
}

// GetRun returns a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*models.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, params, stats, created_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	return run, err
}

// ListRuns returns runs ordered by creation time, most recent first,
// optionally filtered by kind.
func (s *Store) ListRuns(ctx context.Context, kind models.RunKind, offset, limit int) ([]*models.Run, error) {
	var rows *sql.Rows
	var err error
	if kind == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, kind, params, stats, created_at FROM runs ORDER BY created_at DESC LIMIT ? OFFSET ?`,
			limit, offset)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, kind, params, stats, created_at FROM runs WHERE kind = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
			string(kind), limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type runScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc runScanner) (*models.Run, error) {
	var run models.Run
	var kind, paramsJSON, statsJSON string
	if err := sc.Scan(&run.ID, &kind, &paramsJSON, &statsJSON, &run.CreatedAt); err != nil {
		return nil, err
	}
	run.Kind = models.RunKind(kind)
	if paramsJSON != "" {
		if err := json.Unmarshal([]byte(paramsJSON), &run.Params); err != nil {
			return nil, fmt.Errorf("unmarshal run params: %w", err)
		}
	}
	if statsJSON != "" {
		if err := json.Unmarshal([]byte(statsJSON), &run.Stats); err != nil {
			return nil, fmt.Errorf("unmarshal run stats: %w", err)
		}
	}
	return &run, nil
}
