// Package curate implements the curation engine: regex rule application
// over normalized unit text, with a read-only preview and a transactional
// apply (§4.G). text_raw is never touched by either operation.
package curate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/agrafes/internal/models"
	"github.com/hyperjump/agrafes/internal/runlog"
	"github.com/hyperjump/agrafes/internal/store"
)

const defaultLimitExamples = 10

// Example is one before/after sample from a preview.
type Example struct {
	UnitID int64  `json:"unit_id"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// PreviewResult is the read-only outcome of applying rules in memory.
type PreviewResult struct {
	UnitsTotal        int       `json:"units_total"`
	UnitsChanged      int       `json:"units_changed"`
	ReplacementsTotal int       `json:"replacements_total"`
	Examples          []Example `json:"examples"`
}

// ApplyResult is the outcome of a transactional rule application.
type ApplyResult struct {
	UnitsChanged      int  `json:"units_changed"`
	ReplacementsTotal int  `json:"replacements_total"`
	IndexStale        bool `json:"index_stale"`
}

// Engine runs curation rules against the unit store.
type Engine struct {
	store  *store.Store
	logger *zap.Logger
	runs   *runlog.Log
}

// New builds a curation engine over the given store. runs may be nil, in
// which case Apply still mutates but records no run (§4.H).
func New(st *store.Store, logger *zap.Logger, runs *runlog.Log) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: st, logger: logger, runs: runs}
}

// Preview applies rules in memory against one document's line units and
// returns counts plus up to limitExamples before/after samples. The
// database is never mutated.
func (e *Engine) Preview(ctx context.Context, docID string, rules []Rule, limitExamples int) (*PreviewResult, error) {
	if limitExamples <= 0 {
		limitExamples = defaultLimitExamples
	}
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}

	units, err := lineUnitsForDoc(ctx, e.store, docID)
	if err != nil {
		return nil, err
	}

	result := &PreviewResult{UnitsTotal: len(units)}
	for _, u := range units {
		after, changed, n := applyRules(compiled, u.TextNorm)
		if !changed {
			continue
		}
		result.UnitsChanged++
		result.ReplacementsTotal += n
		if len(result.Examples) < limitExamples {
			result.Examples = append(result.Examples, Example{UnitID: u.ID, Before: u.TextNorm, After: after})
		}
	}
	return result, nil
}

// Apply rewrites text_norm for every affected line unit of scope (one
// document, or every document when docID is empty) inside one
// transaction. Invalid patterns are rejected before the transaction opens.
func (e *Engine) Apply(ctx context.Context, docID string, rules []Rule) (*ApplyResult, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}

	units, err := lineUnitsForDoc(ctx, e.store, docID)
	if err != nil {
		return nil, err
	}

	result := &ApplyResult{}
	err = e.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, u := range units {
			after, changed, n := applyRules(compiled, u.TextNorm)
			if !changed {
				continue
			}
			if err := store.UpdateUnitTextNormTx(ctx, tx, u.ID, after); err != nil {
				return fmt.Errorf("update unit %d: %w", u.ID, err)
			}
			result.UnitsChanged++
			result.ReplacementsTotal += n
		}
		if result.UnitsChanged > 0 {
			if err := store.SetIndexStaleTx(ctx, tx, true); err != nil {
				return err
			}
			result.IndexStale = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("curation applied",
		zap.String("doc_id", docID), zap.Int("units_changed", result.UnitsChanged),
		zap.Int("replacements_total", result.ReplacementsTotal))

	if e.runs != nil {
		run := &models.Run{
			ID:   uuid.New().String(),
			Kind: models.RunCurate,
			Params: map[string]interface{}{
				"doc_id":     docID,
				"rule_count": len(rules),
			},
			Stats: map[string]interface{}{
				"units_changed":      result.UnitsChanged,
				"replacements_total": result.ReplacementsTotal,
				"index_stale":        result.IndexStale,
			},
		}
		if err := e.runs.Record(ctx, run); err != nil {
			e.logger.Warn("failed to record curate run", zap.Error(err))
		}
	}

	return result, nil
}

// lineUnitsForDoc returns every line unit in scope: one document's units
// when docID is set, or every line unit in the store when it is empty
// (the "all documents" scope, §4.G).
func lineUnitsForDoc(ctx context.Context, st *store.Store, docID string) ([]*models.Unit, error) {
	if docID == "" {
		return st.ListLineUnits(ctx)
	}
	all, err := st.ListUnitsByDoc(ctx, docID)
	if err != nil {
		return nil, err
	}
	lines := make([]*models.Unit, 0, len(all))
	for _, u := range all {
		if u.Kind == models.KindLine {
			lines = append(lines, u)
		}
	}
	return lines, nil
}
