// Adaptive Grid Search Unit Tests
package optimize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptiveSearchRanksResults(t *testing.T) {
	series := zigzagSeries(t, 30)
	cfg := SearchConfig{
		Base:           baseParams(),
		Space:          smallSpace(t),
		Rounds:         2,
		PointsPerRound: 9,
		Workers:        2,
	}

	results, err := NewAdaptive().Search(context.Background(), series, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].CombinedScore, results[i].CombinedScore)
	}
}

func TestAdaptiveSearchNeverEvaluatesKeyTwice(t *testing.T) {
	series := zigzagSeries(t, 30)
	cfg := SearchConfig{
		Base:           baseParams(),
		Space:          smallSpace(t),
		Rounds:         3,
		PointsPerRound: 9,
		Workers:        2,
	}

	results, err := NewAdaptive().Search(context.Background(), series, cfg)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, r := range results {
		assert.False(t, seen[r.Key()], "key %s evaluated twice", r.Key())
		seen[r.Key()] = true
	}

	// Refinement never leaves the 9-point space.
	assert.LessOrEqual(t, len(results), 9)
}

func TestAdaptiveSearchDeterministic(t *testing.T) {
	series := zigzagSeries(t, 30)
	cfg := SearchConfig{
		Base:           baseParams(),
		Space:          smallSpace(t),
		Rounds:         2,
		PointsPerRound: 9,
		Workers:        1,
	}

	first, err := NewAdaptive().Search(context.Background(), series, cfg)
	require.NoError(t, err)
	second, err := NewAdaptive().Search(context.Background(), series, cfg)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Key(), second[i].Key())
		assert.Equal(t, first[i].CombinedScore, second[i].CombinedScore)
	}
}

func TestAdaptiveRoundGridCoversWindow(t *testing.T) {
	ad := NewAdaptive()
	window := []Dimension{
		{Name: DimGridRangePct, Min: 10, Max: 20, Step: 5},
		{Name: DimGridStepPct, Min: 1, Max: 2, Step: 0.5},
	}

	grid := ad.roundGrid(window, 9)
	require.Len(t, grid, 9)

	// The corners of the window are always sampled.
	assert.Contains(t, grid, []float64{10, 1})
	assert.Contains(t, grid, []float64{20, 2})
}

func TestAdaptiveRefineNarrowsWindow(t *testing.T) {
	ad := NewAdaptive()
	window := []Dimension{
		{Name: DimGridRangePct, Min: 5, Max: 50, Step: 5},
	}

	next := ad.refine(window, []float64{25})
	require.Len(t, next, 1)

	assert.InDelta(t, 13.75, next[0].Min, 1e-9)
	assert.InDelta(t, 36.25, next[0].Max, 1e-9)
	assert.InDelta(t, 2.5, next[0].Step, 1e-9)

	// Windows at the edge clamp to the original bounds.
	edge := ad.refine(window, []float64{5})
	assert.InDelta(t, 5.0, edge[0].Min, 1e-9)
}
