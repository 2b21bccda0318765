package align

import (
	"fmt"
	"sort"

	"github.com/hyperjump/agrafes/internal/models"
)

// Strategy selects how pivot units are matched to target units.
type Strategy string

const (
	StrategyAnchor     Strategy = "anchor"
	StrategyHybrid     Strategy = "external_id_then_position"
	StrategyPosition   Strategy = "position"
	StrategySimilarity Strategy = "similarity"
)

const defaultSimThreshold = 0.8

// candidateLink is an unpersisted pivot/target pairing produced by a
// strategy, before a run id and timestamp are stamped onto it.
type candidateLink struct {
	pivotUnit  int64
	targetUnit int64
	externalID *int64
}

// phaseResult is what one strategy phase contributes: links plus
// bookkeeping for the debug payload and warnings.
type phaseResult struct {
	links       []candidateLink
	skipped     int
	warnings    []string
	debugScores []float64 // similarity phase only
}

func runStrategy(strategy Strategy, pivot, target []*models.Unit, simThreshold float64) (phaseResult, map[string]int, error) {
	switch strategy {
	case StrategyAnchor:
		r := anchorPhase(pivot, target)
		return r, map[string]int{"anchor": len(r.links)}, nil
	case StrategyHybrid:
		anchorR := anchorPhase(pivot, target)
		usedPivot, usedTarget := usedSets(anchorR.links)
		posR := positionPhaseUnused(pivot, target, usedPivot, usedTarget)
		combined := phaseResult{
			links:    append(append([]candidateLink{}, anchorR.links...), posR.links...),
			skipped:  anchorR.skipped + posR.skipped,
			warnings: append(anchorR.warnings, posR.warnings...),
		}
		return combined, map[string]int{"anchor": len(anchorR.links), "position": len(posR.links)}, nil
	case StrategyPosition:
		r := positionPhase(pivot, target)
		return r, map[string]int{"position": len(r.links)}, nil
	case StrategySimilarity:
		r := similarityPhase(pivot, target, simThreshold)
		return r, map[string]int{"similarity": len(r.links)}, nil
	default:
		return phaseResult{}, nil, fmt.Errorf("unknown alignment strategy: %q", strategy)
	}
}

// anchorPhase links units sharing an external id. On a duplicate external
// id on either side, the first-occurrence unit (by unit order) is kept and
// a warning is emitted (§4.F).
func anchorPhase(pivot, target []*models.Unit) phaseResult {
	pivotByAnchor := map[int64]*models.Unit{}
	var r phaseResult
	for _, u := range pivot {
		if u.ExternalID == nil {
			continue
		}
		if _, dup := pivotByAnchor[*u.ExternalID]; dup {
			r.warnings = append(r.warnings, fmt.Sprintf("duplicate pivot external_id %d: kept first occurrence", *u.ExternalID))
			continue
		}
		pivotByAnchor[*u.ExternalID] = u
	}

	targetByAnchor := map[int64]*models.Unit{}
	for _, u := range target {
		if u.ExternalID == nil {
			continue
		}
		if _, dup := targetByAnchor[*u.ExternalID]; dup {
			r.warnings = append(r.warnings, fmt.Sprintf("duplicate target external_id %d: kept first occurrence", *u.ExternalID))
			continue
		}
		targetByAnchor[*u.ExternalID] = u
	}

	anchors := make([]int64, 0, len(pivotByAnchor))
	for a := range pivotByAnchor {
		anchors = append(anchors, a)
	}
	sort.Slice(anchors, func(i, j int) bool { return anchors[i] < anchors[j] })

	for _, a := range anchors {
		tu, ok := targetByAnchor[a]
		if !ok {
			r.skipped++
			continue
		}
		pu := pivotByAnchor[a]
		id := a
		r.links = append(r.links, candidateLink{pivotUnit: pu.ID, targetUnit: tu.ID, externalID: &id})
	}
	return r
}

// positionPhase matches pivot[i] to target[i] for every index present on
// both sides.
func positionPhase(pivot, target []*models.Unit) phaseResult {
	var r phaseResult
	n := len(pivot)
	if len(target) < n {
		n = len(target)
	}
	for i := 0; i < n; i++ {
		r.links = append(r.links, candidateLink{pivotUnit: pivot[i].ID, targetUnit: target[i].ID})
	}
	if len(pivot) > n {
		r.warnings = append(r.warnings, fmt.Sprintf("%d pivot unit(s) have no position counterpart in target", len(pivot)-n))
		r.skipped += len(pivot) - n
	}
	if len(target) > n {
		r.warnings = append(r.warnings, fmt.Sprintf("%d target unit(s) have no position counterpart in pivot", len(target)-n))
	}
	return r
}

// positionPhaseUnused is the hybrid strategy's second pass: it matches the
// still-unmatched pivot units against the still-unused target units, in
// their respective original order.
func positionPhaseUnused(pivot, target []*models.Unit, usedPivot, usedTarget map[int64]bool) phaseResult {
	var remainingPivot, remainingTarget []*models.Unit
	for _, u := range pivot {
		if !usedPivot[u.ID] {
			remainingPivot = append(remainingPivot, u)
		}
	}
	for _, u := range target {
		if !usedTarget[u.ID] {
			remainingTarget = append(remainingTarget, u)
		}
	}
	return positionPhase(remainingPivot, remainingTarget)
}

// similarityPhase greedily matches pivot units to unused target units by
// descending normalized similarity, breaking ties deterministically by
// unit id, keeping only pairs at or above threshold.
func similarityPhase(pivot, target []*models.Unit, threshold float64) phaseResult {
	type pair struct {
		p, t  *models.Unit
		score float64
	}
	pairs := make([]pair, 0, len(pivot)*len(target))
	for _, p := range pivot {
		for _, t := range target {
			s := similarity(p.TextNorm, t.TextNorm)
			if s >= threshold {
				pairs = append(pairs, pair{p: p, t: t, score: s})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		if pairs[i].p.ID != pairs[j].p.ID {
			return pairs[i].p.ID < pairs[j].p.ID
		}
		return pairs[i].t.ID < pairs[j].t.ID
	})

	usedPivot := map[int64]bool{}
	usedTarget := map[int64]bool{}
	var r phaseResult
	var scores []float64
	for _, pr := range pairs {
		if usedPivot[pr.p.ID] || usedTarget[pr.t.ID] {
			continue
		}
		usedPivot[pr.p.ID] = true
		usedTarget[pr.t.ID] = true
		r.links = append(r.links, candidateLink{pivotUnit: pr.p.ID, targetUnit: pr.t.ID})
		scores = append(scores, pr.score)
	}
	r.skipped = len(pivot) - len(r.links)
	r.debugScores = scores
	return r
}

func usedSets(links []candidateLink) (map[int64]bool, map[int64]bool) {
	usedPivot := map[int64]bool{}
	usedTarget := map[int64]bool{}
	for _, l := range links {
		usedPivot[l.pivotUnit] = true
		usedTarget[l.targetUnit] = true
	}
	return usedPivot, usedTarget
}
