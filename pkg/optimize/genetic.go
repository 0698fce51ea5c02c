package optimize

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gridlabs/gridopt/pkg/gridsim"
)

// Genetic searches the parameter space with a generational genetic
// algorithm: elite selection, uniform crossover and neighbor-step mutation,
// topped up with random immigrants to keep diversity.
type Genetic struct{}

// NewGenetic returns a genetic search strategy.
func NewGenetic() *Genetic {
	return &Genetic{}
}

// Search runs the configured number of generations and returns every
// candidate it evaluated, ranked best-first. With Patience set it stops
// early once the best score stagnates.
func (ga *Genetic) Search(ctx context.Context, series *gridsim.Series, cfg SearchConfig) ([]*Result, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid search config: %w", err)
	}

	eval, err := newEvaluator(series, cfg)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	acc := newAccumulator()

	population := make([][]float64, cfg.PopulationSize)
	for i := range population {
		population[i] = cfg.Space.RandomSample(rng)
	}

	var (
		bestScore  float64
		haveBest   bool
		stagnation int
	)

	for gen := 0; gen < cfg.Generations; gen++ {
		candidates := make([]gridsim.Parameters, len(population))
		for i, vec := range population {
			candidates[i] = cfg.Space.Apply(cfg.Base, vec)
		}

		results, err := eval.evaluateBatch(ctx, acc.filter(candidates))
		if err != nil {
			return nil, err
		}
		acc.add(results)

		ranked := acc.ranked()
		if len(ranked) == 0 {
			return nil, fmt.Errorf("generation %d produced no valid candidates", gen)
		}

		top := ranked[0]
		log.Info().
			Int("generation", gen+1).
			Int("evaluated", len(acc.results)).
			Float64("best_score", top.CombinedScore).
			Str("best_params", top.Key()).
			Msg("generation complete")

		if !haveBest || top.CombinedScore > bestScore {
			bestScore = top.CombinedScore
			haveBest = true
			stagnation = 0
		} else {
			stagnation++
			if cfg.Patience > 0 && stagnation >= cfg.Patience {
				log.Info().Int("generation", gen+1).Msg("search stagnated, stopping early")
				break
			}
		}

		if gen < cfg.Generations-1 {
			population = ga.nextGeneration(ranked, acc, cfg, rng)
			if len(population) == 0 {
				log.Info().Int("generation", gen+1).Msg("parameter space exhausted, stopping early")
				break
			}
		}
	}

	return acc.ranked(), nil
}

// nextGeneration breeds a fresh population. The elite breeding pool is the
// top of the all-time ranking, not just the latest generation, so a strong
// early candidate keeps contributing genes after its own generation. Children
// and immigrants whose key was already evaluated are discarded and replaced,
// keeping each generation at PopulationSize unseen candidates until the
// space runs dry; attempts are bounded so exhausted spaces terminate.
func (ga *Genetic) nextGeneration(ranked []*Result, acc *accumulator, cfg SearchConfig, rng *rand.Rand) [][]float64 {
	eliteCount := int(float64(cfg.PopulationSize) * cfg.EliteFraction)
	if eliteCount < 1 {
		eliteCount = 1
	}
	if eliteCount > len(ranked) {
		eliteCount = len(ranked)
	}

	elite := make([][]float64, eliteCount)
	for i := 0; i < eliteCount; i++ {
		elite[i] = ga.vector(cfg.Space, ranked[i].Parameters)
	}

	next := make([][]float64, 0, cfg.PopulationSize)
	inBatch := make(map[string]bool)
	admit := func(vec []float64) {
		key := cfg.Space.Apply(cfg.Base, vec).Key()
		if inBatch[key] || acc.evaluated(key) {
			return
		}
		inBatch[key] = true
		next = append(next, vec)
	}

	immigrants := cfg.PopulationSize / 10
	maxAttempts := 20 * cfg.PopulationSize

	for attempt := 0; attempt < maxAttempts && len(next) < cfg.PopulationSize-immigrants; attempt++ {
		a := elite[rng.Intn(len(elite))]
		b := elite[rng.Intn(len(elite))]
		admit(ga.mutate(cfg.Space, ga.crossover(a, b, rng), cfg.MutationRate, rng))
	}
	for attempt := 0; attempt < maxAttempts && len(next) < cfg.PopulationSize; attempt++ {
		admit(cfg.Space.RandomSample(rng))
	}

	return next
}

// vector projects evaluated parameters back onto the space's dimensions.
func (ga *Genetic) vector(space *Space, p gridsim.Parameters) []float64 {
	dims := space.Dimensions()
	vec := make([]float64, len(dims))
	for i, d := range dims {
		switch d.Name {
		case DimGridRangePct:
			vec[i] = p.GridRangePct
		case DimGridStepPct:
			vec[i] = p.GridStepPct
		case DimStopLossPct:
			vec[i] = p.StopLossPct
		case DimMaxDrawdownPct:
			vec[i] = p.MaxDrawdownPct
		case DimFeeRatePct:
			vec[i] = p.FeeRatePct
		}
	}
	return space.Clamp(vec)
}

// crossover picks each gene from either parent with equal probability.
func (ga *Genetic) crossover(a, b []float64, rng *rand.Rand) []float64 {
	child := make([]float64, len(a))
	for i := range child {
		if rng.Intn(2) == 0 {
			child[i] = a[i]
		} else {
			child[i] = b[i]
		}
	}
	return child
}

// mutate perturbs the vector with probability rate per dimension slot, each
// perturbation stepping to a random adjacent grid point.
func (ga *Genetic) mutate(space *Space, vec []float64, rate float64, rng *rand.Rand) []float64 {
	out := append([]float64(nil), vec...)
	for range space.Dimensions() {
		if rng.Float64() >= rate {
			continue
		}
		neighbors := space.Neighbors(out, 1)
		if len(neighbors) == 0 {
			break
		}
		out = neighbors[rng.Intn(len(neighbors))]
	}
	return out
}
