package align

import (
	"context"
	"sort"

	"github.com/hyperjump/agrafes/internal/models"
)

// SampleUnit is a sample orphan unit returned in QualityReport.
type SampleUnit struct {
	UnitID     int64  `json:"unit_id"`
	ExternalID *int64 `json:"external_id,omitempty"`
	Text       string `json:"text"`
}

// QualityReport is the pair-level quality summary (§4.F).
type QualityReport struct {
	TotalPivotUnits  int            `json:"total_pivot_units"`
	TotalTargetUnits int            `json:"total_target_units"`
	TotalLinks       int            `json:"total_links"`
	CoveredPivot     int            `json:"covered_pivot"`
	CoveredTarget    int            `json:"covered_target"`
	CoveragePercent  float64        `json:"coverage_percent"`
	OrphanPivot      int            `json:"orphan_pivot"`
	OrphanTarget     int            `json:"orphan_target"`
	Collisions       int            `json:"collisions"`
	StatusCounts     map[string]int `json:"status_counts"`
	SampleOrphanPivot  []SampleUnit `json:"sample_orphan_pivot,omitempty"`
	SampleOrphanTarget []SampleUnit `json:"sample_orphan_target,omitempty"`
}

const sampleOrphanSize = 5

// Quality computes the coverage/orphan/collision/status-count metrics for
// a pivot/target pair, optionally scoped to one run.
func (e *Engine) Quality(ctx context.Context, pivotDoc, targetDoc, runID string) (*QualityReport, error) {
	pivotUnits, err := lineUnitsForDoc(ctx, e.store, pivotDoc)
	if err != nil {
		return nil, err
	}
	targetUnits, err := lineUnitsForDoc(ctx, e.store, targetDoc)
	if err != nil {
		return nil, err
	}

	var links []*models.AlignmentLink
	if runID != "" {
		links, err = e.store.LinksForDocPair(ctx, pivotDoc, targetDoc, runID)
	} else {
		links, err = e.store.LinksForDocPairAll(ctx, pivotDoc, targetDoc)
	}
	if err != nil {
		return nil, err
	}

	pivotLinkCount := map[int64]int{}
	targetLinkCount := map[int64]int{}
	statusCounts := map[string]int{"unreviewed": 0, "accepted": 0, "rejected": 0}
	for _, l := range links {
		pivotLinkCount[l.PivotUnit]++
		targetLinkCount[l.TargetUnit]++
		key := string(l.Status)
		if key == "" {
			key = "unreviewed"
		}
		statusCounts[key]++
	}

	collisions := 0
	for _, c := range pivotLinkCount {
		if c > 1 {
			collisions++
		}
	}

	var orphanPivotUnits, orphanTargetUnits []*models.Unit
	for _, u := range pivotUnits {
		if pivotLinkCount[u.ID] == 0 {
			orphanPivotUnits = append(orphanPivotUnits, u)
		}
	}
	for _, u := range targetUnits {
		if targetLinkCount[u.ID] == 0 {
			orphanTargetUnits = append(orphanTargetUnits, u)
		}
	}

	coveredPivot := len(pivotUnits) - len(orphanPivotUnits)
	coveredTarget := len(targetUnits) - len(orphanTargetUnits)

	coverage := 0.0
	if len(pivotUnits) > 0 {
		coverage = float64(coveredPivot) / float64(len(pivotUnits)) * 100
	}

	report := &QualityReport{
		TotalPivotUnits:  len(pivotUnits),
		TotalTargetUnits: len(targetUnits),
		TotalLinks:       len(links),
		CoveredPivot:     coveredPivot,
		CoveredTarget:    coveredTarget,
		CoveragePercent:  coverage,
		OrphanPivot:      len(orphanPivotUnits),
		OrphanTarget:     len(orphanTargetUnits),
		Collisions:       collisions,
		StatusCounts:     statusCounts,
	}
	report.SampleOrphanPivot = sampleUnits(orphanPivotUnits)
	report.SampleOrphanTarget = sampleUnits(orphanTargetUnits)
	return report, nil
}

func sampleUnits(units []*models.Unit) []SampleUnit {
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	n := sampleOrphanSize
	if len(units) < n {
		n = len(units)
	}
	out := make([]SampleUnit, 0, n)
	for _, u := range units[:n] {
		out = append(out, SampleUnit{UnitID: u.ID, ExternalID: u.ExternalID, Text: u.TextNorm})
	}
	return out
}
