package align

import (
	"context"
	"fmt"

	"github.com/hyperjump/agrafes/internal/models"
)

// AuditEntry is one row of the link audit listing: a link plus the text of
// both endpoints, the shape §4.F's list operation returns.
type AuditEntry struct {
	Link       *models.AlignmentLink
	PivotText  string
	TargetText string
}

// AuditFilter narrows ListLinks to a pivot/target pair, optionally further
// restricted by external id or review status.
type AuditFilter struct {
	PivotDoc   string
	TargetDoc  string
	ExternalID *int64
	Status     *models.LinkStatus
	Limit      int
	Offset     int
}

// AuditPage is a paginated slice of audit entries, using the same
// limit+1-lookahead scheme as the query engine (§4.F).
type AuditPage struct {
	Entries    []AuditEntry
	HasMore    bool
	NextOffset int
}

// ListLinks returns one page of audit entries for a pivot/target pair.
func (e *Engine) ListLinks(ctx context.Context, f AuditFilter) (*AuditPage, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	all, err := e.store.LinksForDocPairAll(ctx, f.PivotDoc, f.TargetDoc)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.AlignmentLink, 0, len(all))
	for _, l := range all {
		if f.ExternalID != nil && (l.ExternalID == nil || *l.ExternalID != *f.ExternalID) {
			continue
		}
		if f.Status != nil && l.Status != *f.Status {
			continue
		}
		filtered = append(filtered, l)
	}

	start := f.Offset
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + limit + 1
	if end > len(filtered) {
		end = len(filtered)
	}
	window := filtered[start:end]

	hasMore := len(window) > limit
	if hasMore {
		window = window[:limit]
	}

	entries := make([]AuditEntry, 0, len(window))
	for _, l := range window {
		pivotUnit, err := e.store.GetUnit(ctx, l.PivotUnit)
		if err != nil {
			return nil, err
		}
		targetUnit, err := e.store.GetUnit(ctx, l.TargetUnit)
		if err != nil {
			return nil, err
		}
		entries = append(entries, AuditEntry{Link: l, PivotText: pivotUnit.TextNorm, TargetText: targetUnit.TextNorm})
	}

	page := &AuditPage{Entries: entries, HasMore: hasMore}
	if hasMore {
		page.NextOffset = f.Offset + limit
	}
	return page, nil
}

// SetLinkStatus mutates one link's review status. Idempotent (§4.F).
func (e *Engine) SetLinkStatus(ctx context.Context, linkID int64, status models.LinkStatus) error {
	return e.store.UpdateLinkStatus(ctx, linkID, status)
}

// DeleteLink removes one link by identity.
func (e *Engine) DeleteLink(ctx context.Context, linkID int64) error {
	return e.store.DeleteLink(ctx, linkID)
}

// RetargetLink changes the target unit of an existing link. The new target
// must exist and be a line unit (§4.F).
func (e *Engine) RetargetLink(ctx context.Context, linkID, newTargetUnit int64) error {
	unit, err := e.store.GetUnit(ctx, newTargetUnit)
	if err != nil {
		return fmt.Errorf("retarget: %w", err)
	}
	if unit.Kind != models.KindLine {
		return fmt.Errorf("retarget: unit %d is not a line unit", newTargetUnit)
	}
	return e.store.RetargetLink(ctx, linkID, newTargetUnit, unit.DocID)
}
