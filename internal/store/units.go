package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hyperjump/agrafes/internal/models"
)

// CreateUnitsTx inserts the full ordered unit set for one document inside an
// existing transaction, so that a document and its units land atomically.
// Unit IDs are assigned by SQLite (AUTOINCREMENT) and written back into
// each *models.Unit so the caller can use them to index or link immediately.
func CreateUnitsTx(ctx context.Context, tx *sql.Tx, units []*models.Unit) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO units (doc_id, kind, n, external_id, text_raw, text_norm, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range units {
		metadataJSON, err := json.Marshal(u.Metadata)
		if err != nil {
			return fmt.Errorf("marshal unit metadata (n=%d): %w", u.N, err)
		}
		res, err := stmt.ExecContext(ctx, u.DocID, string(u.Kind), u.N, u.ExternalID, u.TextRaw, u.TextNorm, string(metadataJSON))
		if err != nil {
			return fmt.Errorf("insert unit (n=%d): %w", u.N, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		u.ID = id
	}
	return nil
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error or panic. Ingestion uses this to land a document and its
// units atomically (§4.B).
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err = fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetUnit returns a single unit by id.
func (s *Store) GetUnit(ctx context.Context, id int64) (*models.Unit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, doc_id, kind, n, external_id, text_raw, text_norm, metadata FROM units WHERE id = ?`, id)
	u, err := scanUnit(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("unit not found: %d", id)
	}
	return u, err
}

// GetUnitsByIDs returns units for the given ids, in no particular order.
func (s *Store) GetUnitsByIDs(ctx context.Context, ids []int64) ([]*models.Unit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(
		`SELECT id, doc_id, kind, n, external_id, text_raw, text_norm, metadata FROM units WHERE id IN (%s)`,
		joinPlaceholders(placeholders))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUnits(rows)
}

// ListUnitsByDoc returns every unit of a document ordered by n, including
// structure units (callers filter by Kind as needed).
func (s *Store) ListUnitsByDoc(ctx context.Context, docID string) ([]*models.Unit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc_id, kind, n, external_id, text_raw, text_norm, metadata
		 FROM units WHERE doc_id = ? ORDER BY n`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUnits(rows)
}

// ListLineUnits streams every kind=line unit in the database in id order,
// the shape the full-text index rebuild consumes.
func (s *Store) ListLineUnits(ctx context.Context) ([]*models.Unit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc_id, kind, n, external_id, text_raw, text_norm, metadata
		 FROM units WHERE kind = ? ORDER BY id`, string(models.KindLine))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUnits(rows)
}

// FindUnitByExternalID returns the first line unit in docID carrying the
// given external id, or nil if none matches. Alignment's anchor strategy
// uses this for the external-id join.
func (s *Store) FindUnitByExternalID(ctx context.Context, docID string, externalID int64) (*models.Unit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, doc_id, kind, n, external_id, text_raw, text_norm, metadata
		 FROM units WHERE doc_id = ? AND external_id = ? AND kind = ? ORDER BY id LIMIT 1`,
		docID, externalID, string(models.KindLine))
	u, err := scanUnit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// DeleteUnitsByDoc removes every unit belonging to a document, used by
// segmentation before it re-inserts a new line-unit set.
func (s *Store) DeleteUnitsByDoc(ctx context.Context, docID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM units WHERE doc_id = ?`, docID)
	return err
}

// DeleteUnitsByDocTx is the transactional counterpart of DeleteUnitsByDoc.
func DeleteUnitsByDocTx(ctx context.Context, tx *sql.Tx, docID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM units WHERE doc_id = ?`, docID)
	return err
}

// UpdateUnitTextNormTx rewrites one unit's normalized text, used by curation.
func UpdateUnitTextNormTx(ctx context.Context, tx *sql.Tx, unitID int64, textNorm string) error {
	result, err := tx.ExecContext(ctx, `UPDATE units SET text_norm = ? WHERE id = ?`, textNorm, unitID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("unit not found: %d", unitID)
	}
	return nil
}

// CountUnits returns the total number of units, optionally filtered by kind.
func (s *Store) CountUnits(ctx context.Context, kind models.UnitKind) (int64, error) {
	var count int64
	var err error
	if kind == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM units`).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM units WHERE kind = ?`, string(kind)).Scan(&count)
	}
	return count, err
}

type unitScanner interface {
	Scan(dest ...interface{}) error
}

func scanUnit(sc unitScanner) (*models.Unit, error) {
	var u models.Unit
	var kind, metadataJSON string
	var externalID sql.NullInt64
	if err := sc.Scan(&u.ID, &u.DocID, &kind, &u.N, &externalID, &u.TextRaw, &u.TextNorm, &metadataJSON); err != nil {
		return nil, err
	}
	u.Kind = models.UnitKind(kind)
	if externalID.Valid {
		v := externalID.Int64
		u.ExternalID = &v
	}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &u.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal unit metadata: %w", err)
		}
	}
	return &u, nil
}

func scanUnits(rows *sql.Rows) ([]*models.Unit, error) {
	var units []*models.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func joinPlaceholders(ph []string) string {
	out := ph[0]
	for _, p := range ph[1:] {
		out += "," + p
	}
	return out
}
