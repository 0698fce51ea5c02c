// Package optimize searches the grid-strategy parameter space for
// configurations that are profitable and stable across a backtest/forward
// split, using a genetic algorithm or an adaptive grid search.
package optimize

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/gridlabs/gridopt/pkg/gridsim"
)

// Dimension is one tunable axis of the parameter space: an inclusive range
// discretized by a step granularity.
type Dimension struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// Dimension names understood by Space.Apply.
const (
	DimGridRangePct   = "grid_range_pct"
	DimGridStepPct    = "grid_step_pct"
	DimStopLossPct    = "stop_loss_pct"
	DimMaxDrawdownPct = "max_drawdown_pct"
	DimFeeRatePct     = "fee_rate_pct"
)

// Count returns the number of grid points on this dimension.
func (d Dimension) Count() int {
	if d.Step <= 0 || d.Max < d.Min {
		return 0
	}
	return int((d.Max-d.Min)/d.Step+1e-9) + 1
}

// Value returns the i-th grid point.
func (d Dimension) Value(i int) float64 {
	return d.Min + float64(i)*d.Step
}

// Index returns the grid point index closest to v, clamped into range.
func (d Dimension) Index(v float64) int {
	if d.Step <= 0 {
		return 0
	}
	i := int(math.Round((v - d.Min) / d.Step))
	if i < 0 {
		return 0
	}
	if max := d.Count() - 1; i > max {
		return max
	}
	return i
}

// Space defines the tunable dimensions of a search. Samples are vectors
// aligned with the dimension order.
type Space struct {
	dims []Dimension
}

// NewSpace validates the dimensions and builds a Space. Dimension names must
// be ones Apply knows how to bind to a parameter field.
func NewSpace(dims ...Dimension) (*Space, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("parameter space needs at least one dimension")
	}

	for _, d := range dims {
		switch d.Name {
		case DimGridRangePct, DimGridStepPct, DimStopLossPct, DimMaxDrawdownPct, DimFeeRatePct:
		default:
			return nil, fmt.Errorf("unknown dimension %q", d.Name)
		}
		if d.Step <= 0 {
			return nil, fmt.Errorf("dimension %s: step %f must be positive", d.Name, d.Step)
		}
		if d.Max < d.Min {
			return nil, fmt.Errorf("dimension %s: max %f below min %f", d.Name, d.Max, d.Min)
		}
	}

	return &Space{dims: append([]Dimension(nil), dims...)}, nil
}

// DefaultSpace covers the bounds the original strategy was tuned over:
// grid range 5-50% in 5% steps, grid step 0.5-5% in 0.5% steps and stop loss
// 0-15% in 5% steps.
func DefaultSpace() *Space {
	s, _ := NewSpace(
		Dimension{Name: DimGridRangePct, Min: 5, Max: 50, Step: 5},
		Dimension{Name: DimGridStepPct, Min: 0.5, Max: 5, Step: 0.5},
		Dimension{Name: DimStopLossPct, Min: 0, Max: 15, Step: 5},
	)
	return s
}

// Dimensions returns a copy of the space's dimensions.
func (s *Space) Dimensions() []Dimension {
	return append([]Dimension(nil), s.dims...)
}

// Size returns the total number of distinct points in the space.
func (s *Space) Size() int {
	size := 1
	for _, d := range s.dims {
		size *= d.Count()
	}
	return size
}

// RandomSample draws one point uniformly over the discretized grid, each
// dimension independently.
func (s *Space) RandomSample(rng *rand.Rand) []float64 {
	vec := make([]float64, len(s.dims))
	for i, d := range s.dims {
		vec[i] = d.Value(rng.Intn(d.Count()))
	}
	return vec
}

// Neighbors returns the finite set of points reachable from vec by moving a
// single dimension up to radius grid steps in either direction.
func (s *Space) Neighbors(vec []float64, radius int) [][]float64 {
	var out [][]float64
	for i, d := range s.dims {
		idx := d.Index(vec[i])
		for off := -radius; off <= radius; off++ {
			if off == 0 {
				continue
			}
			ni := idx + off
			if ni < 0 || ni >= d.Count() {
				continue
			}
			n := append([]float64(nil), vec...)
			n[i] = d.Value(ni)
			out = append(out, n)
		}
	}
	return out
}

// Clamp snaps every coordinate of vec onto its dimension's grid.
func (s *Space) Clamp(vec []float64) []float64 {
	out := make([]float64, len(vec))
	for i, d := range s.dims {
		out[i] = d.Value(d.Index(vec[i]))
	}
	return out
}

// Apply binds a sample vector onto a base parameter set, overriding the
// fields named by the space's dimensions.
func (s *Space) Apply(base gridsim.Parameters, vec []float64) gridsim.Parameters {
	p := base
	for i, d := range s.dims {
		switch d.Name {
		case DimGridRangePct:
			p.GridRangePct = vec[i]
		case DimGridStepPct:
			p.GridStepPct = vec[i]
		case DimStopLossPct:
			p.StopLossPct = vec[i]
		case DimMaxDrawdownPct:
			p.MaxDrawdownPct = vec[i]
		case DimFeeRatePct:
			p.FeeRatePct = vec[i]
		}
	}
	return p
}
