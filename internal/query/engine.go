// Package query implements the full-text search engine: it runs a query
// against the Bleve index, projects hits into segment or KWIC shape, and
// optionally enriches each hit with aligned sibling units.
package query

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/agrafes/internal/ftsindex"
	"github.com/hyperjump/agrafes/internal/models"
	"github.com/hyperjump/agrafes/internal/store"
)

// Engine answers query requests against the store and the FTS index.
type Engine struct {
	store  *store.Store
	index  *ftsindex.Index
	logger *zap.Logger
}

// New builds a query engine over the given store and FTS index.
func New(st *store.Store, idx *ftsindex.Index, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: st, index: idx, logger: logger}
}

// Run executes req and returns a projected, paginated response.
func (e *Engine) Run(ctx context.Context, req *models.QueryRequest) (*models.QueryResponse, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	stale, err := e.store.IndexStale(ctx)
	if err != nil {
		return nil, err
	}

	opts := ftsindex.SearchOptions{
		Language:     req.Language,
		DocID:        req.DocID,
		DocRole:      req.DocRole,
		ResourceType: req.ResourceType,
		Limit:        req.Limit + 1,
		Offset:       req.Offset,
	}
	res, err := e.index.Search(req.Q, opts)
	if err != nil {
		return nil, err
	}

	hasMore := len(res.Hits) > req.Limit
	unitHits := res.Hits
	if hasMore {
		unitHits = unitHits[:req.Limit]
	}

	docCache := map[string]*models.Document{}
	hits := make([]models.Hit, 0, len(unitHits))
	for _, uh := range unitHits {
		unit, err := e.store.GetUnit(ctx, uh.UnitID)
		if err != nil {
			e.logger.Warn("query: unit vanished from store after fts hit", zap.Int64("unit_id", uh.UnitID), zap.Error(err))
			continue
		}
		doc, ok := docCache[unit.DocID]
		if !ok {
			doc, err = e.store.GetDocument(ctx, unit.DocID)
			if err != nil {
				e.logger.Warn("query: document vanished for unit", zap.String("doc_id", unit.DocID), zap.Error(err))
				continue
			}
			docCache[unit.DocID] = doc
		}

		projected := project(req, unit, doc, uh)
		if req.IncludeAligned {
			for i := range projected {
				aligned, err := e.enrichAligned(ctx, unit.ID, unit.DocID, req.AlignedLimit)
				if err != nil {
					e.logger.Warn("query: aligned lookup failed", zap.Int64("unit_id", unit.ID), zap.Error(err))
				} else {
					projected[i].Aligned = aligned
				}
			}
		}
		hits = append(hits, projected...)
	}

	resp := &models.QueryResponse{
		Hits:        hits,
		HasMore:     hasMore,
		FTSStale:    stale,
		QueryTimeMS: time.Since(start).Milliseconds(),
	}
	if hasMore {
		resp.NextOffset = req.Offset + req.Limit
	}
	if req.Count {
		total := int64(res.Total)
		resp.Total = &total
	}
	return resp, nil
}

// project turns one fts hit into one or more API hits: segment mode always
// yields exactly one (the whole unit, with inline markers at every match);
// KWIC mode yields one per match occurrence unless all_occurrences is
// false, in which case only the first occurrence is kept (§4.E).
func project(req *models.QueryRequest, unit *models.Unit, doc *models.Document, uh ftsindex.Hit) []models.Hit {
	base := models.Hit{
		DocID:      unit.DocID,
		UnitID:     unit.ID,
		ExternalID: unit.ExternalID,
		Language:   doc.Language,
		Title:      doc.Title,
	}

	if req.Mode == models.ModeSegment {
		h := base
		h.Text = highlightSegment(unit.TextNorm, uh.Matches)
		return []models.Hit{h}
	}

	spans := uh.Matches
	if !req.AllOccurrences && len(spans) > 1 {
		spans = spans[:1]
	}
	if len(spans) == 0 {
		h := base
		h.Left, h.Match, h.Right = "", "", unit.TextNorm
		return []models.Hit{h}
	}

	tokens := tokenize(unit.TextNorm)
	hits := make([]models.Hit, 0, len(spans))
	for _, sp := range spans {
		h := base
		h.Left, h.Match, h.Right = kwicWindow(unit.TextNorm, tokens, sp, req.Window)
		hits = append(hits, h)
	}
	return hits
}

// enrichAligned resolves sibling units linked to unitID, restricted to
// documents that are known siblings of docID (related in either direction),
// per the "within the configured sibling documents" requirement (§4.E).
func (e *Engine) enrichAligned(ctx context.Context, unitID int64, docID string, limit int) ([]models.AlignedUnit, error) {
	siblings, err := e.siblingDocs(ctx, docID)
	if err != nil {
		return nil, err
	}
	if len(siblings) == 0 {
		return nil, nil
	}

	links, err := e.store.LinksForUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}

	docCache := map[string]*models.Document{}
	var out []models.AlignedUnit
	for _, l := range links {
		otherUnitID := l.TargetUnit
		otherDocID := l.TargetDoc
		if otherDocID == docID {
			otherUnitID = l.PivotUnit
			otherDocID = l.PivotDoc
		}
		if !siblings[otherDocID] {
			continue
		}
		unit, err := e.store.GetUnit(ctx, otherUnitID)
		if err != nil {
			continue
		}
		doc, ok := docCache[otherDocID]
		if !ok {
			doc, err = e.store.GetDocument(ctx, otherDocID)
			if err != nil {
				continue
			}
			docCache[otherDocID] = doc
		}
		out = append(out, models.AlignedUnit{
			DocID:      otherDocID,
			Language:   doc.Language,
			Title:      doc.Title,
			ExternalID: unit.ExternalID,
			Text:       unit.TextNorm,
			Status:     l.Status,
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (e *Engine) siblingDocs(ctx context.Context, docID string) (map[string]bool, error) {
	siblings := map[string]bool{}

	outgoing, err := e.store.RelationsForDoc(ctx, docID, "")
	if err != nil {
		return nil, err
	}
	for _, r := range outgoing {
		siblings[r.TargetDocID] = true
	}

	incoming, err := e.store.RelationsTargeting(ctx, docID)
	if err != nil {
		return nil, err
	}
	for _, r := range incoming {
		siblings[r.DocID] = true
	}
	return siblings, nil
}
