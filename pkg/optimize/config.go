package optimize

import (
	"fmt"

	"github.com/gridlabs/gridopt/pkg/gridsim"
)

// Default knobs applied by SearchConfig.withDefaults.
const (
	DefaultPopulationSize = 50
	DefaultGenerations    = 20
	DefaultMutationRate   = 0.1
	DefaultEliteFraction  = 0.5
	DefaultRounds         = 3
	DefaultPointsPerRound = 50
	DefaultBacktestSplit  = 0.7
	DefaultWorkers        = 4
)

// ScoreWeights shape the combined score that ranks candidates. Stability
// penalizes backtest/forward divergence, Drawdown penalizes risk, Sharpe
// rewards risk-adjusted return.
type ScoreWeights struct {
	Stability float64 `json:"stability" mapstructure:"stability"`
	Drawdown  float64 `json:"drawdown" mapstructure:"drawdown"`
	Sharpe    float64 `json:"sharpe" mapstructure:"sharpe"`
}

// DefaultScoreWeights balances raw profit against overfitting and risk.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Stability: 0.5, Drawdown: 0.2, Sharpe: 0.5}
}

// SearchConfig configures one optimization run. The zero value of every
// optional knob is replaced by its default; only Base must be set by the
// caller.
type SearchConfig struct {
	// Base supplies the parameter fields the space does not override, such
	// as the initial balance and fee rate.
	Base gridsim.Parameters

	// Space is the set of tunable dimensions. Nil means DefaultSpace.
	Space *Space

	// Genetic algorithm knobs.
	PopulationSize int
	Generations    int
	MutationRate   float64
	EliteFraction  float64
	// Patience stops the search after this many generations without a new
	// best score. 0 disables early stopping.
	Patience int

	// Adaptive grid search knobs.
	Rounds         int
	PointsPerRound int

	// BacktestFraction is the share of candles given to the backtest
	// segment; the remainder is the forward segment.
	BacktestFraction float64

	// Workers bounds concurrent simulations during batch evaluation.
	Workers int

	Weights ScoreWeights

	// MinScore is the combined score below which the best result should be
	// treated as a non-converged, low-quality outcome. 0 accepts anything.
	MinScore float64

	// Seed makes the stochastic parts of a search reproducible. 0 keeps
	// them seeded from the current time.
	Seed int64
}

func (c SearchConfig) withDefaults() SearchConfig {
	if c.Space == nil {
		c.Space = DefaultSpace()
	}
	if c.PopulationSize == 0 {
		c.PopulationSize = DefaultPopulationSize
	}
	if c.Generations == 0 {
		c.Generations = DefaultGenerations
	}
	if c.MutationRate == 0 {
		c.MutationRate = DefaultMutationRate
	}
	if c.EliteFraction == 0 {
		c.EliteFraction = DefaultEliteFraction
	}
	if c.Rounds == 0 {
		c.Rounds = DefaultRounds
	}
	if c.PointsPerRound == 0 {
		c.PointsPerRound = DefaultPointsPerRound
	}
	if c.BacktestFraction == 0 {
		c.BacktestFraction = DefaultBacktestSplit
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.Weights == (ScoreWeights{}) {
		c.Weights = DefaultScoreWeights()
	}
	return c
}

func (c SearchConfig) validate() error {
	if c.PopulationSize < 2 {
		return fmt.Errorf("population size %d must be at least 2", c.PopulationSize)
	}
	if c.Generations < 1 {
		return fmt.Errorf("generations %d must be at least 1", c.Generations)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("mutation rate %f must be in [0, 1]", c.MutationRate)
	}
	if c.EliteFraction <= 0 || c.EliteFraction >= 1 {
		return fmt.Errorf("elite fraction %f must be in (0, 1)", c.EliteFraction)
	}
	if c.Patience < 0 {
		return fmt.Errorf("patience %d must not be negative", c.Patience)
	}
	if c.Rounds < 1 {
		return fmt.Errorf("rounds %d must be at least 1", c.Rounds)
	}
	if c.PointsPerRound < 1 {
		return fmt.Errorf("points per round %d must be at least 1", c.PointsPerRound)
	}
	if c.BacktestFraction <= 0 || c.BacktestFraction >= 1 {
		return fmt.Errorf("backtest fraction %f must be in (0, 1)", c.BacktestFraction)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers %d must be at least 1", c.Workers)
	}
	return nil
}
