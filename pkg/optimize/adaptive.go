package optimize

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/gridlabs/gridopt/pkg/gridsim"
)

// Adaptive searches the parameter space by rounds of exhaustive coarse
// grids: each round evaluates a cartesian grid over the current window, then
// shrinks the window around the best point and refines the step.
type Adaptive struct{}

// NewAdaptive returns an adaptive grid search strategy.
func NewAdaptive() *Adaptive {
	return &Adaptive{}
}

// Search runs the configured number of refinement rounds and returns every
// candidate it evaluated, ranked best-first.
func (ad *Adaptive) Search(ctx context.Context, series *gridsim.Series, cfg SearchConfig) ([]*Result, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid search config: %w", err)
	}

	eval, err := newEvaluator(series, cfg)
	if err != nil {
		return nil, err
	}

	acc := newAccumulator()
	window := cfg.Space.Dimensions()

	for round := 0; round < cfg.Rounds; round++ {
		grid := ad.roundGrid(window, cfg.PointsPerRound)

		candidates := make([]gridsim.Parameters, len(grid))
		for i, vec := range grid {
			candidates[i] = cfg.Space.Apply(cfg.Base, cfg.Space.Clamp(vec))
		}

		results, err := eval.evaluateBatch(ctx, acc.filter(candidates))
		if err != nil {
			return nil, err
		}
		acc.add(results)

		ranked := acc.ranked()
		if len(ranked) == 0 {
			return nil, fmt.Errorf("round %d produced no valid candidates", round)
		}

		best := ranked[0]
		log.Info().
			Int("round", round+1).
			Int("grid_points", len(grid)).
			Int("evaluated", len(acc.results)).
			Float64("best_score", best.CombinedScore).
			Str("best_params", best.Key()).
			Msg("refinement round complete")

		if round < cfg.Rounds-1 {
			window = ad.refine(window, ad.bestVector(cfg.Space, best.Parameters))
		}
	}

	return acc.ranked(), nil
}

// roundGrid builds a cartesian grid over the window, sizing each dimension
// so the total point count stays near the round budget.
func (ad *Adaptive) roundGrid(window []Dimension, budget int) [][]float64 {
	perDim := int(math.Round(math.Pow(float64(budget), 1/float64(len(window)))))
	if perDim < 2 {
		perDim = 2
	}

	axes := make([][]float64, len(window))
	for i, d := range window {
		count := d.Count()
		if count > perDim {
			count = perDim
		}
		if count < 1 {
			count = 1
		}

		axis := make([]float64, count)
		if count == 1 {
			axis[0] = d.Min
		} else {
			span := d.Max - d.Min
			for k := 0; k < count; k++ {
				axis[k] = d.Min + span*float64(k)/float64(count-1)
			}
		}
		axes[i] = axis
	}

	var grid [][]float64
	vec := make([]float64, len(axes))
	var walk func(dim int)
	walk = func(dim int) {
		if dim == len(axes) {
			grid = append(grid, append([]float64(nil), vec...))
			return
		}
		for _, v := range axes[dim] {
			vec[dim] = v
			walk(dim + 1)
		}
	}
	walk(0)
	return grid
}

// refine narrows each dimension's window to a quarter of the original span
// around the best point and halves the step. Points finer than the space's
// native grid collapse onto it when clamped, and the accumulator drops the
// resulting duplicates.
func (ad *Adaptive) refine(window []Dimension, best []float64) []Dimension {
	next := make([]Dimension, len(window))
	for i, d := range window {
		halfSpan := (d.Max - d.Min) * 0.25
		lo := best[i] - halfSpan
		hi := best[i] + halfSpan
		if lo < d.Min {
			lo = d.Min
		}
		if hi > d.Max {
			hi = d.Max
		}

		next[i] = Dimension{Name: d.Name, Min: lo, Max: hi, Step: d.Step / 2}
	}
	return next
}

func (ad *Adaptive) bestVector(space *Space, p gridsim.Parameters) []float64 {
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
	return vec
}
