package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hyperjump/agrafes/internal/models"
)

// CreateDocument inserts a document row. Callers are expected to have
// assigned doc.ID and doc.CreatedAt already (ingestion mints both).
func (s *Store) CreateDocument(ctx context.Context, doc *models.Document) error {
	return execCreateDocument(ctx, s.db, doc)
}

// CreateDocumentTx is the transactional counterpart of CreateDocument, used
// by the ingestion pipeline so a document and its units land atomically.
func CreateDocumentTx(ctx context.Context, tx *sql.Tx, doc *models.Document) error {
	return execCreateDocument(ctx, tx, doc)
}

func execCreateDocument(ctx context.Context, e execer, doc *models.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal document metadata: %w", err)
	}
	_, err = e.ExecContext(ctx,
		`INSERT INTO documents (id, title, language, role, resource_type, metadata, source_path, content_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Language, string(doc.Role), doc.ResourceType, string(metadataJSON),
		doc.SourcePath, doc.ContentHash, doc.CreatedAt,
	)
	return err
}

// GetDocument returns a document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, language, role, resource_type, metadata, source_path, content_hash, created_at
		 FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	return doc, err
}

// UpdateDocumentMetadata applies a metadata patch (full replacement of the map).
func (s *Store) UpdateDocumentMetadata(ctx context.Context, docID string, metadata map[string]interface{}) error {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal document metadata: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `UPDATE documents SET metadata = ? WHERE id = ?`, string(metadataJSON), docID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", docID)
	}
	return nil
}

// DeleteDocument removes a document and, via foreign-key cascade, its
// units, alignment links, and doc relations.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// ListDocuments returns documents ordered by creation time, most recent first.
func (s *Store) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, language, role, resource_type, metadata, source_path, content_hash, created_at
		 FROM documents ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CountDocuments returns the total number of documents.
func (s *Store) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// docScanner is satisfied by both *sql.Row and *sql.Rows.
type docScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(sc docScanner) (*models.Document, error) {
	var doc models.Document
	var role, metadataJSON string
	if err := sc.Scan(&doc.ID, &doc.Title, &doc.Language, &role, &doc.ResourceType,
		&metadataJSON, &doc.SourcePath, &doc.ContentHash, &doc.CreatedAt); err != nil {
		return nil, err
	}
	doc.Role = models.DocumentRole(role)
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal document metadata: %w", err)
		}
	}
	return &doc, nil
}
