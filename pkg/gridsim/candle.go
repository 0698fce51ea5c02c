// Package gridsim simulates a dual-direction (long + short) grid trading
// strategy against historical candle data and derives risk metrics from the
// resulting trade ledger and equity curve.
package gridsim

import (
	"fmt"
	"time"
)

// Candle represents OHLCV data for one time period.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Series is an immutable, strictly time-ordered sequence of candles. It is
// loaded once and shared read-only across concurrent simulations.
type Series struct {
	candles []Candle
}

// NewSeries validates candles and wraps them in a Series. The slice is taken
// over by the Series and must not be mutated afterwards.
func NewSeries(candles []Candle) (*Series, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("candle series is empty")
	}

	for i, c := range candles {
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
			return nil, fmt.Errorf("candle %d at %s: non-positive price", i, c.OpenTime.Format(time.RFC3339))
		}
		if c.High < c.Low {
			return nil, fmt.Errorf("candle %d at %s: high %f below low %f", i, c.OpenTime.Format(time.RFC3339), c.High, c.Low)
		}
		if i > 0 && !candles[i-1].OpenTime.Before(c.OpenTime) {
			return nil, fmt.Errorf("candle %d at %s: open time not strictly increasing", i, c.OpenTime.Format(time.RFC3339))
		}
	}

	return &Series{candles: candles}, nil
}

// Len returns the number of candles in the series.
func (s *Series) Len() int {
	return len(s.candles)
}

// At returns the candle at index i.
func (s *Series) At(i int) Candle {
	return s.candles[i]
}

// First returns the first candle.
func (s *Series) First() Candle {
	return s.candles[0]
}

// Last returns the last candle.
func (s *Series) Last() Candle {
	return s.candles[len(s.candles)-1]
}

// Candles returns a read-only view of the underlying candles. Callers must
// not mutate the returned slice.
func (s *Series) Candles() []Candle {
	return s.candles
}

// Split divides the series into two contiguous, disjoint sub-series: the
// first fraction of the candles and the remaining suffix. Both halves share
// the underlying backing array, which is safe because a Series is never
// mutated after construction.
func (s *Series) Split(fraction float64) (*Series, *Series, error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, nil, fmt.Errorf("split fraction %f outside (0, 1)", fraction)
	}

	idx := int(float64(len(s.candles)) * fraction)
	if idx < 2 || len(s.candles)-idx < 2 {
		return nil, nil, fmt.Errorf("split fraction %f leaves too few candles (%d/%d)", fraction, idx, len(s.candles)-idx)
	}

	return &Series{candles: s.candles[:idx]}, &Series{candles: s.candles[idx:]}, nil
}

// PeriodsPerYear estimates the number of candle periods in a year from the
// spacing of the first two candles. Used to annualize the Sharpe ratio.
func (s *Series) PeriodsPerYear() float64 {
	if len(s.candles) < 2 {
		return 0
	}

	interval := s.candles[1].OpenTime.Sub(s.candles[0].OpenTime)
	if interval <= 0 {
		return 0
	}

	const hoursPerYear = 24 * 365.25
	return hoursPerYear / interval.Hours()
}
