// Package align implements the alignment engine: four pivot-to-target
// matching strategies, a link-level audit surface, and pair quality
// metrics.
package align

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/agrafes/internal/models"
	"github.com/hyperjump/agrafes/internal/store"
)

func newRunID() string {
	return uuid.New().String()
}

// Request describes one alignment run over a pivot/target document pair.
type Request struct {
	PivotDoc     string
	TargetDoc    string
	Strategy     Strategy
	SimThreshold float64
	DebugAlign   bool
}

// Validate fills in defaults and rejects malformed requests.
func (r *Request) Validate() error {
	if r.PivotDoc == "" || r.TargetDoc == "" {
		return fmt.Errorf("pivot_doc and target_doc are required")
	}
	switch r.Strategy {
	case StrategyAnchor, StrategyHybrid, StrategyPosition, StrategySimilarity:
	case "":
		r.Strategy = StrategyAnchor
	default:
		return fmt.Errorf("unknown strategy: %q", r.Strategy)
	}
	if r.SimThreshold == 0 {
		r.SimThreshold = defaultSimThreshold
	}
	if r.SimThreshold < 0 || r.SimThreshold > 1 {
		return fmt.Errorf("sim_threshold must be between 0 and 1")
	}
	return nil
}

// SampleLink is a debug-payload sample of one created link.
type SampleLink struct {
	PivotUnit  int64  `json:"pivot_unit_id"`
	TargetUnit int64  `json:"target_unit_id"`
	ExternalID *int64 `json:"external_id,omitempty"`
}

// ScoreStats summarizes similarity scores across a similarity-strategy run.
type ScoreStats struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// DebugPayload is populated only when the caller requests debug_align.
type DebugPayload struct {
	PhaseCounts map[string]int `json:"phase_counts"`
	SampleLinks []SampleLink   `json:"sample_links"`
	Scores      *ScoreStats    `json:"scores,omitempty"`
}

// Report is the per-pair result of one alignment run.
type Report struct {
	PivotDoc     string        `json:"pivot_doc_id"`
	TargetDoc    string        `json:"target_doc_id"`
	Strategy     Strategy      `json:"strategy"`
	LinksCreated int           `json:"links_created"`
	LinksSkipped int           `json:"links_skipped"`
	Warnings     []string      `json:"warnings,omitempty"`
	Debug        *DebugPayload `json:"debug,omitempty"`
}

const debugSampleSize = 5

// Engine runs alignment strategies and persists their results.
type Engine struct {
	store  *store.Store
	logger *zap.Logger
}

// New builds an alignment engine over the given store.
func New(st *store.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: st, logger: logger}
}

// Run executes one alignment request, persisting both the resulting links
// and a `run` record of kind align (§4.F), returning the report plus the
// new run id.
func (e *Engine) Run(ctx context.Context, req *Request) (*Report, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	pivotUnits, err := lineUnitsForDoc(ctx, e.store, req.PivotDoc)
	if err != nil {
		return nil, "", err
	}
	targetUnits, err := lineUnitsForDoc(ctx, e.store, req.TargetDoc)
	if err != nil {
		return nil, "", err
	}

	phase, phaseCounts, err := runStrategy(req.Strategy, pivotUnits, targetUnits, req.SimThreshold)
	if err != nil {
		return nil, "", err
	}

	runID := newRunID()
	now := time.Now().UTC()
	links := make([]*models.AlignmentLink, 0, len(phase.links))
	for _, c := range phase.links {
		links = append(links, &models.AlignmentLink{
			RunID:      runID,
			PivotUnit:  c.pivotUnit,
			TargetUnit: c.targetUnit,
			PivotDoc:   req.PivotDoc,
			TargetDoc:  req.TargetDoc,
			ExternalID: c.externalID,
			CreatedAt:  now,
			Status:     models.StatusUnreviewed,
		})
	}

	report := &Report{
		PivotDoc:     req.PivotDoc,
		TargetDoc:    req.TargetDoc,
		Strategy:     req.Strategy,
		LinksCreated: len(links),
		LinksSkipped: phase.skipped,
		Warnings:     phase.warnings,
	}
	if req.DebugAlign {
		report.Debug = buildDebugPayload(phaseCounts, links, phase.debugScores)
	}

	run := &models.Run{
		ID:   runID,
		Kind: models.RunAlign,
		Params: map[string]interface{}{
			"pivot_doc_id":  req.PivotDoc,
			"target_doc_id": req.TargetDoc,
			"strategy":      string(req.Strategy),
			"sim_threshold": req.SimThreshold,
		},
		Stats: map[string]interface{}{
			"links_created": report.LinksCreated,
			"links_skipped": report.LinksSkipped,
			"phase_counts":  phaseCounts,
		},
		CreatedAt: now,
	}

	err = e.store.WithTx(ctx, func(tx *sql.Tx) error {
		if len(links) > 0 {
			if err := store.CreateAlignmentLinksTx(ctx, tx, links); err != nil {
				return err
			}
		}
		return store.CreateRunTx(ctx, tx, run)
	})
	if err != nil {
		return nil, "", fmt.Errorf("persist alignment run: %w", err)
	}

	e.logger.Info("alignment run complete",
		zap.String("run_id", runID), zap.String("strategy", string(req.Strategy)),
		zap.Int("links_created", report.LinksCreated), zap.Int("links_skipped", report.LinksSkipped))

	return report, runID, nil
}

func buildDebugPayload(phaseCounts map[string]int, links []*models.AlignmentLink, scores []float64) *DebugPayload {
	d := &DebugPayload{PhaseCounts: phaseCounts}
	n := debugSampleSize
	if len(links) < n {
		n = len(links)
	}
	for _, l := range links[:n] {
		d.SampleLinks = append(d.SampleLinks, SampleLink{
			PivotUnit: l.PivotUnit, TargetUnit: l.TargetUnit, ExternalID: l.ExternalID,
		})
	}
	if len(scores) > 0 {
		sum, min, max := 0.0, scores[0], scores[0]
		for _, s := range scores {
			sum += s
			if s < min {
				min = s
			}
			if s > max {
				max = s
			}
		}
		d.Scores = &ScoreStats{Mean: sum / float64(len(scores)), Min: min, Max: max}
	}
	return d
}

func lineUnitsForDoc(ctx context.Context, st *store.Store, docID string) ([]*models.Unit, error) {
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
