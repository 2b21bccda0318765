package ftsindex

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/blevesearch/bleve/v2"

	"github.com/hyperjump/agrafes/internal/models"
)

// Index wraps a Bleve index over normalized line-unit text.
type Index struct {
	path  string
	index bleve.Index
}

// Open creates or opens a Bleve index at path. An existing index is reused
// as-is; callers that changed the mapping must Rebuild (full-rebuild is the
// only supported refresh mode, §4.D) rather than rely on incremental drift.
func Open(path string) (*Index, error) {
	if _, err := os.Stat(path); err == nil {
		idx, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("open fts index: %w", openErr)
		}
		return &Index{path: path, index: idx}, nil
	}
	idx, err := bleve.New(path, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create fts index: %w", err)
	}
	return &Index{path: path, index: idx}, nil
}

// unitDocID renders the unit's primary key as the Bleve document id,
// the storage-to-index join contract (§4.B).
func unitDocID(unitID int64) string {
	return strconv.FormatInt(unitID, 10)
}

// IndexUnit indexes (or reindexes) a single line unit.
func (idx *Index) IndexUnit(_ context.Context, u *models.Unit) error {
	return idx.index.Index(unitDocID(u.ID), toUnitDoc(u))
}

// DeleteUnit removes a unit's index row.
func (idx *Index) DeleteUnit(_ context.Context, unitID int64) error {
	return idx.index.Delete(unitDocID(unitID))
}

func toUnitDoc(u *models.Unit) unitDoc {
	return unitDoc{TextNorm: u.TextNorm, DocID: u.DocID}
}

// Rebuild performs the full-rebuild refresh: drop every indexed row and
// reindex the given line units, flushing a batch every 500 units. Bound to
// unit identities, so the rebuild is deterministic for a given unit set
// (§4.D).
func (idx *Index) Rebuild(ctx context.Context, units []*models.Unit, docMeta map[string]DocMeta) error {
	if err := idx.clear(); err != nil {
		return fmt.Errorf("clear fts index: %w", err)
	}

	const batchSize = 500
	batch := idx.index.NewBatch()
	for i, u := range units {
		if u.Kind != models.KindLine {
			continue
		}
		meta := docMeta[u.DocID]
		doc := unitDoc{
			TextNorm:     u.TextNorm,
			DocID:        u.DocID,
			Language:     meta.Language,
			DocRole:      meta.Role,
			ResourceType: meta.ResourceType,
		}
		if err := batch.Index(unitDocID(u.ID), doc); err != nil {
			return fmt.Errorf("batch index unit %d: %w", u.ID, err)
		}
		if (i+1)%batchSize == 0 {
			if err := idx.index.Batch(batch); err != nil {
				return fmt.Errorf("flush batch: %w", err)
			}
			batch = idx.index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := idx.index.Batch(batch); err != nil {
			return fmt.Errorf("flush final batch: %w", err)
		}
	}
	return nil
}

// DocMeta carries the document-level fields denormalized onto each indexed
// unit so query-time filters avoid a store round-trip per hit.
type DocMeta struct {
	Language     string
	Role         string
	ResourceType string
}

// clear removes every document from the index by closing and recreating it;
// Bleve has no bulk-delete-all, and a fresh index avoids iterating doc ids
// one at a time for corpora in the tens of thousands of units.
func (idx *Index) clear() error {
	if err := idx.index.Close(); err != nil {
		return err
	}
	if err := os.RemoveAll(idx.path); err != nil {
		return err
	}
	newIdx, err := bleve.New(idx.path, buildMapping())
	if err != nil {
		return err
	}
	idx.index = newIdx
	return nil
}

// DocCount returns the number of indexed units.
func (idx *Index) DocCount() (uint64, error) {
	return idx.index.DocCount()
}

// Close closes the underlying Bleve index.
func (idx *Index) Close() error {
	return idx.index.Close()
}
