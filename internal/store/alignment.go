package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hyperjump/agrafes/internal/models"
)

// CreateAlignmentLinksTx inserts a batch of links produced by one alignment
// run. Links are never overwritten in place: a re-run always inserts a new
// set tagged by a new run id (§3 invariant).
func CreateAlignmentLinksTx(ctx context.Context, tx *sql.Tx, links []*models.AlignmentLink) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO alignment_links
		 (run_id, pivot_unit_id, target_unit_id, pivot_doc_id, target_doc_id, external_id, created_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, l := range links {
		res, err := stmt.ExecContext(ctx, l.RunID, l.PivotUnit, l.TargetUnit, l.PivotDoc, l.TargetDoc,
			l.ExternalID, l.CreatedAt, string(l.Status))
		if err != nil {
			return fmt.Errorf("insert alignment link (pivot=%d target=%d): %w", l.PivotUnit, l.TargetUnit, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		l.ID = id
	}
	return nil
}

// LinksForUnit returns every alignment link where unitID is either endpoint,
// across all runs. The query engine enrichment path (§4.E) filters by
// sibling document afterward.
func (s *Store) LinksForUnit(ctx context.Context, unitID int64) ([]*models.AlignmentLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, pivot_unit_id, target_unit_id, pivot_doc_id, target_doc_id, external_id, created_at, status
		 FROM alignment_links WHERE pivot_unit_id = ? OR target_unit_id = ?`, unitID, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLinks(rows)
}

// LinksForDocPair returns every link between two documents produced by runID.
func (s *Store) LinksForDocPair(ctx context.Context, pivotDoc, targetDoc, runID string) ([]*models.AlignmentLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, pivot_unit_id, target_unit_id, pivot_doc_id, target_doc_id, external_id, created_at, status
		 FROM alignment_links WHERE pivot_doc_id = ? AND target_doc_id = ? AND run_id = ?`,
		pivotDoc, targetDoc, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLinks(rows)
}

// LinksForDocPairAll returns every link between two documents across all
// runs, ordered by id — the audit listing's unpaginated source set.
func (s *Store) LinksForDocPairAll(ctx context.Context, pivotDoc, targetDoc string) ([]*models.AlignmentLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, pivot_unit_id, target_unit_id, pivot_doc_id, target_doc_id, external_id, created_at, status
		 FROM alignment_links WHERE pivot_doc_id = ? AND target_doc_id = ? ORDER BY id`,
		pivotDoc, targetDoc)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLinks(rows)
}

// RetargetLink repoints an existing link at a different target unit/doc.
func (s *Store) RetargetLink(ctx context.Context, linkID, newTargetUnit int64, newTargetDoc string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alignment_links SET target_unit_id = ?, target_doc_id = ? WHERE id = ?`,
		newTargetUnit, newTargetDoc, linkID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("alignment link not found: %d", linkID)
	}
	return nil
}

// UpdateLinkStatus sets the review status of one link (audit operation).
func (s *Store) UpdateLinkStatus(ctx context.Context, linkID int64, status models.LinkStatus) error {
	result, err := s.db.ExecContext(ctx, `UPDATE alignment_links SET status = ? WHERE id = ?`, string(status), linkID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("alignment link not found: %d", linkID)
	}
	return nil
}

// DeleteLink removes one alignment link explicitly (operator action).
func (s *Store) DeleteLink(ctx context.Context, linkID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM alignment_links WHERE id = ?`, linkID)
	return err
}

// DeleteLinksByDocTx removes every link touching docID, used by segmentation
// when it replaces a document's line-unit set.
func DeleteLinksByDocTx(ctx context.Context, tx *sql.Tx, docID string) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`DELETE FROM alignment_links WHERE pivot_doc_id = ? OR target_doc_id = ?`, docID, docID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type linkScanner interface {
	Scan(dest ...interface{}) error
}

func scanLink(sc linkScanner) (*models.AlignmentLink, error) {
	var l models.AlignmentLink
	var status string
	var externalID sql.NullInt64
	if err := sc.Scan(&l.ID, &l.RunID, &l.PivotUnit, &l.TargetUnit, &l.PivotDoc, &l.TargetDoc,
		&externalID, &l.CreatedAt, &status); err != nil {
		return nil, err
	}
	l.Status = models.LinkStatus(status)
	if externalID.Valid {
		v := externalID.Int64
		l.ExternalID = &v
	}
	return &l, nil
}

func scanLinks(rows *sql.Rows) ([]*models.AlignmentLink, error) {
	var links []*models.AlignmentLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// CreateDocRelation inserts a document-level relation edge.
func (s *Store) CreateDocRelation(ctx context.Context, rel *models.DocRelation) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO doc_relations (doc_id, relation_type, target_doc_id, note) VALUES (?, ?, ?, ?)`,
		rel.DocID, rel.RelationType, rel.TargetDocID, rel.Note)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rel.ID = id
	return nil
}

// DeleteDocRelation removes one document relation by id.
func (s *Store) DeleteDocRelation(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM doc_relations WHERE id = ?`, id)
	return err
}

// RelationsTargeting returns every relation whose target is docID — the
// reverse direction of RelationsForDoc, used by the query engine's sibling
// resolution to walk doc_relations both ways.
func (s *Store) RelationsTargeting(ctx context.Context, docID string) ([]*models.DocRelation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc_id, relation_type, target_doc_id, note FROM doc_relations WHERE target_doc_id = ?`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []*models.DocRelation
	for rows.Next() {
		var rel models.DocRelation
		if err := rows.Scan(&rel.ID, &rel.DocID, &rel.RelationType, &rel.TargetDocID, &rel.Note); err != nil {
			return nil, err
		}
		rels = append(rels, &rel)
	}
	return rels, rows.Err()
}

// RelationsForDoc returns every relation originating at docID, optionally
// filtered by relation type ("" means all types).
func (s *Store) RelationsForDoc(ctx context.Context, docID, relationType string) ([]*models.DocRelation, error) {
	var rows *sql.Rows
	var err error
	if relationType == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, doc_id, relation_type, target_doc_id, note FROM doc_relations WHERE doc_id = ?`, docID)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, doc_id, relation_type, target_doc_id, note FROM doc_relations WHERE doc_id = ? AND relation_type = ?`,
			docID, relationType)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []*models.DocRelation
	for rows.Next() {
		var rel models.DocRelation
		if err := rows.Scan(&rel.ID, &rel.DocID, &rel.RelationType, &rel.TargetDocID, &rel.Note); err != nil {
			return nil, err
		}
		rels = append(rels, &rel)
	}
	return rels, rows.Err()
}
