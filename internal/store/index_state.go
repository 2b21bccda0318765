package store

import (
	"context"
	"database/sql"
)

// SetIndexStale flips the full-text-index staleness flag. Curation,
// segmentation, and re-import all call this after mutating text_norm or a
// document's unit set (§4.D rebuild policy).
func (s *Store) SetIndexStale(ctx context.Context, stale bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE index_state SET stale = ? WHERE id = 1`, stale)
	return err
}

// IndexStale reports whether the full-text index needs a rebuild before the
// next query.
func (s *Store) IndexStale(ctx context.Context) (bool, error) {
	var stale bool
	err := s.db.QueryRowContext(ctx, `SELECT stale FROM index_state WHERE id = 1`).Scan(&stale)
	return stale, err
}

// SetIndexStaleTx is the transactional counterpart of SetIndexStale, used so
// curation and segmentation can flip the flag in the same transaction that
// rewrites units.
func SetIndexStaleTx(ctx context.Context, tx *sql.Tx, stale bool) error {
	_, err := tx.ExecContext(ctx, `UPDATE index_state SET stale = ? WHERE id = 1`, stale)
	return err
}
