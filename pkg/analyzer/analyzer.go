// Package analyzer scores candle series for grid-trading suitability:
// volatility via ATR, spike frequency and a rough profitability estimate
// used to pick pairs and seed grid steps before running full simulations.
package analyzer

import (
	"fmt"

	"github.com/cinar/indicator/v2/volatility"
	"github.com/rs/zerolog/log"

	"github.com/gridlabs/gridopt/pkg/gridsim"
)

// MinStepPct is the floor for the recommended grid step. Steps below it get
// eaten by fees on most venues.
const MinStepPct = 0.5

// SpikeThresholdPct is the single-candle high-to-low range beyond which the
// candle counts as a price spike.
const SpikeThresholdPct = 10.0

// ATRPct returns the latest Average True Range as a percentage of the last
// close. The series must be longer than the ATR warm-up period.
func ATRPct(series *gridsim.Series) (float64, error) {
	candles := series.Candles()

	highs := make(chan float64, len(candles))
	lows := make(chan float64, len(candles))
	closings := make(chan float64, len(candles))
	for _, c := range candles {
		highs <- c.High
		lows <- c.Low
		closings <- c.Close
	}
	close(highs)
	close(lows)
	close(closings)

	atr := volatility.NewAtr[float64]()
	out := atr.Compute(highs, lows, closings)

	var last float64
	var n int
	for v := range out {
		last = v
		n++
	}
	if n == 0 {
		return 0, fmt.Errorf("series too short for ATR: %d candles", len(candles))
	}

	return last / series.Last().Close * 100, nil
}

// CountPriceSpikes counts candles whose high-to-low range exceeds
// thresholdPct of the low.
func CountPriceSpikes(series *gridsim.Series, thresholdPct float64) int {
	count := 0
	for _, c := range series.Candles() {
		if c.Low <= 0 {
			continue
		}
		if (c.High-c.Low)/c.Low*100 > thresholdPct {
			count++
		}
	}
	return count
}

// RecommendedStepPct derives a grid step from volatility: a third of the ATR
// percentage, floored at MinStepPct.
func RecommendedStepPct(series *gridsim.Series) (float64, error) {
	atrPct, err := ATRPct(series)
	if err != nil {
		return 0, err
	}

	step := atrPct / 3
	if step < MinStepPct {
		step = MinStepPct
	}

	log.Debug().
		Float64("atr_pct", atrPct).
		Float64("step_pct", step).
		Msg("recommended grid step")

	return step, nil
}
