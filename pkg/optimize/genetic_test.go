// Genetic Search Unit Tests
package optimize

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlabs/gridopt/pkg/gridsim"
)

func smallSpace(t *testing.T) *Space {
	t.Helper()
	space, err := NewSpace(
		Dimension{Name: DimGridRangePct, Min: 10, Max: 20, Step: 5},
		Dimension{Name: DimGridStepPct, Min: 1, Max: 2, Step: 0.5},
	)
	require.NoError(t, err)
	return space
}

func TestGeneticSearchRanksResults(t *testing.T) {
	series := zigzagSeries(t, 30)
	cfg := SearchConfig{
		Base:           baseParams(),
		Space:          smallSpace(t),
		PopulationSize: 6,
		Generations:    3,
		Workers:        2,
		Seed:           42,
	}

	results, err := NewGenetic().Search(context.Background(), series, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].CombinedScore, results[i].CombinedScore)
	}
}

func TestGeneticSearchNeverEvaluatesKeyTwice(t *testing.T) {
	series := zigzagSeries(t, 30)
	cfg := SearchConfig{
		Base:           baseParams(),
		Space:          smallSpace(t),
		PopulationSize: 8,
		Generations:    5,
		Workers:        2,
		Seed:           7,
	}

	results, err := NewGenetic().Search(context.Background(), series, cfg)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, r := range results {
		assert.False(t, seen[r.Key()], "key %s evaluated twice", r.Key())
		seen[r.Key()] = true
	}

	// The space only holds 9 points, so dedupe also caps the total.
	assert.LessOrEqual(t, len(results), 9)
}

func TestGeneticNextGenerationTopsUpUnseen(t *testing.T) {
	series := zigzagSeries(t, 30)
	cfg := SearchConfig{
		Base:           baseParams(),
		Space:          smallSpace(t),
		PopulationSize: 6,
		Generations:    1,
		Workers:        1,
	}
	cfg = cfg.withDefaults()

	eval, err := newEvaluator(series, cfg)
	require.NoError(t, err)

	acc := newAccumulator()
	seeded := cfg.Space.Apply(cfg.Base, []float64{10, 1})
	mid := cfg.Space.Apply(cfg.Base, []float64{15, 1.5})
	top := cfg.Space.Apply(cfg.Base, []float64{20, 2})
	results, err := eval.evaluateBatch(context.Background(),
		acc.filter([]gridsim.Parameters{seeded, mid, top}))
	require.NoError(t, err)
	acc.add(results)

	rng := rand.New(rand.NewSource(3))
	next := NewGenetic().nextGeneration(acc.ranked(), acc, cfg, rng)

	// Three of nine points are taken, so the generation holds the other six.
	require.Len(t, next, 6)
	keys := make(map[string]bool)
	for _, vec := range next {
		key := cfg.Space.Apply(cfg.Base, vec).Key()
		assert.False(t, acc.evaluated(key), "already-evaluated key %s rebred", key)
		assert.False(t, keys[key], "duplicate key %s within one generation", key)
		keys[key] = true
	}
}

func TestGeneticSearchExploresFullPopulationEachGeneration(t *testing.T) {
	series := zigzagSeries(t, 30)
	space, err := NewSpace(
		Dimension{Name: DimGridRangePct, Min: 20, Max: 50, Step: 5},
		Dimension{Name: DimGridStepPct, Min: 0.5, Max: 2, Step: 0.5},
		Dimension{Name: DimStopLossPct, Min: 0, Max: 15, Step: 5},
	)
	require.NoError(t, err)

	cfg := SearchConfig{
		Base:           baseParams(),
		Space:          space,
		PopulationSize: 10,
		Generations:    3,
		Workers:        2,
		Seed:           42,
	}

	results, err := NewGenetic().Search(context.Background(), series, cfg)
	require.NoError(t, err)

	// Candidates colliding with an already-seen key are replaced before
	// evaluation, so later generations keep evaluating fresh points instead
	// of shrinking around the elite.
	assert.GreaterOrEqual(t, len(results), 25)
}

func TestGeneticMutateStaysOnGrid(t *testing.T) {
	space := smallSpace(t)
	rng := rand.New(rand.NewSource(5))
	ga := NewGenetic()

	start := []float64{15, 1.5}
	assert.Equal(t, start, ga.mutate(space, start, 0, rng))

	for i := 0; i < 50; i++ {
		out := ga.mutate(space, start, 1, rng)
		assert.Equal(t, space.Clamp(out), out, "mutation left the grid: %v", out)
	}
}

func TestGeneticSearchSinglePointSpace(t *testing.T) {
	series := zigzagSeries(t, 30)
	space, err := NewSpace(
		Dimension{Name: DimGridRangePct, Min: 20, Max: 20, Step: 5},
		Dimension{Name: DimGridStepPct, Min: 2, Max: 2, Step: 0.5},
	)
	require.NoError(t, err)

	cfg := SearchConfig{
		Base:           baseParams(),
		Space:          space,
		PopulationSize: 4,
		Generations:    3,
		Workers:        1,
		Seed:           1,
	}

	results, err := NewGenetic().Search(context.Background(), series, cfg)
	require.NoError(t, err)

	// Every sample collapses onto the same parameters.
	require.Len(t, results, 1)
	assert.Equal(t, 20.0, results[0].Parameters.GridRangePct)
	assert.Equal(t, 2.0, results[0].Parameters.GridStepPct)
}

func TestGeneticSearchDeterministicWithSeed(t *testing.T) {
	series := zigzagSeries(t, 30)
	cfg := SearchConfig{
		Base:           baseParams(),
		Space:          smallSpace(t),
		PopulationSize: 6,
		Generations:    3,
		Workers:        1,
		Seed:           99,
	}

	first, err := NewGenetic().Search(context.Background(), series, cfg)
	require.NoError(t, err)
	second, err := NewGenetic().Search(context.Background(), series, cfg)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Key(), second[i].Key())
		assert.Equal(t, first[i].CombinedScore, second[i].CombinedScore)
	}
}

func TestGeneticSearchHonorsContextCancellation(t *testing.T) {
	series := zigzagSeries(t, 30)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := SearchConfig{
		Base:           baseParams(),
		Space:          smallSpace(t),
		PopulationSize: 6,
		Generations:    3,
		Workers:        2,
		Seed:           1,
	}

	_, err := NewGenetic().Search(ctx, series, cfg)
	assert.Error(t, err)
}
