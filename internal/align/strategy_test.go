package align

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperjump/agrafes/internal/models"
)

func extID(v int64) *int64 { return &v }

func TestAnchorPhase(t *testing.T) {
	pivot := []*models.Unit{
		{ID: 1, N: 1, ExternalID: extID(10), TextNorm: "a"},
		{ID: 2, N: 2, ExternalID: extID(20), TextNorm: "b"},
	}
	target := []*models.Unit{
		{ID: 101, N: 1, ExternalID: extID(20), TextNorm: "b2"},
		{ID: 102, N: 2, ExternalID: extID(30), TextNorm: "c"},
	}
	r := anchorPhase(pivot, target)
	require.Len(t, r.links, 1)
	require.Equal(t, int64(2), r.links[0].pivotUnit)
	require.Equal(t, int64(101), r.links[0].targetUnit)
	require.Equal(t, 1, r.skipped) // pivot anchor 10 has no target match
}

func TestAnchorPhase_DuplicateExternalID(t *testing.T) {
	pivot := []*models.Unit{
		{ID: 1, N: 1, ExternalID: extID(10), TextNorm: "a"},
		{ID: 2, N: 2, ExternalID: extID(10), TextNorm: "a-dup"},
	}
	target := []*models.Unit{
		{ID: 101, N: 1, ExternalID: extID(10), TextNorm: "a"},
	}
	r := anchorPhase(pivot, target)
	require.Len(t, r.links, 1)
	require.Equal(t, int64(1), r.links[0].pivotUnit, "first occurrence kept")
	require.Len(t, r.warnings, 1)
}

func TestPositionPhase(t *testing.T) {
	pivot := []*models.Unit{{ID: 1}, {ID: 2}, {ID: 3}}
	target := []*models.Unit{{ID: 101}, {ID: 102}}
	r := positionPhase(pivot, target)
	require.Len(t, r.links, 2)
	require.Equal(t, int64(1), r.links[0].pivotUnit)
	require.Equal(t, int64(101), r.links[0].targetUnit)
	require.NotEmpty(t, r.warnings)
}

func TestHybridPhase_FallsBackToPosition(t *testing.T) {
	pivot := []*models.Unit{
		{ID: 1, ExternalID: extID(10), TextNorm: "a"},
		{ID: 2, TextNorm: "unmatched-pivot"},
	}
	target := []*models.Unit{
		{ID: 101, ExternalID: extID(10), TextNorm: "a"},
		{ID: 102, TextNorm: "unmatched-target"},
	}
	r, counts, err := runStrategy(StrategyHybrid, pivot, target, defaultSimThreshold)
	require.NoError(t, err)
	require.Len(t, r.links, 2)
	require.Equal(t, 1, counts["anchor"])
	require.Equal(t, 1, counts["position"])
}

func TestSimilarityPhase_ThresholdAndGreedy(t *testing.T) {
	pivot := []*models.Unit{
		{ID: 1, TextNorm: "bonjour le monde"},
		{ID: 2, TextNorm: "chat noir"},
	}
	target := []*models.Unit{
		{ID: 101, TextNorm: "bonjour le monde"},
		{ID: 102, TextNorm: "completely unrelated text here"},
	}
	r := similarityPhase(pivot, target, 0.8)
	require.Len(t, r.links, 1)
	require.Equal(t, int64(1), r.links[0].pivotUnit)
	require.Equal(t, int64(101), r.links[0].targetUnit)
	require.Equal(t, 1, r.skipped)
	require.Len(t, r.debugScores, 1)
}
