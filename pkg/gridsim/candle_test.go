// Candle Series Unit Tests
package gridsim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seriesStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// hourlyCandles builds candles spaced one hour apart from the given OHLC
// quadruples.
func hourlyCandles(ohlc ...[4]float64) []Candle {
	candles := make([]Candle, len(ohlc))
	for i, v := range ohlc {
		candles[i] = Candle{
			OpenTime: seriesStart.Add(time.Duration(i) * time.Hour),
			Open:     v[0],
			High:     v[1],
			Low:      v[2],
			Close:    v[3],
			Volume:   1000,
		}
	}
	return candles
}

// flatCandles builds n candles all pinned at the given price.
func flatCandles(n int, price float64) []Candle {
	ohlc := make([][4]float64, n)
	for i := range ohlc {
		ohlc[i] = [4]float64{price, price, price, price}
	}
	return hourlyCandles(ohlc...)
}

func TestNewSeries(t *testing.T) {
	series, err := NewSeries(flatCandles(5, 100))
	require.NoError(t, err)

	assert.Equal(t, 5, series.Len())
	assert.Equal(t, seriesStart, series.First().OpenTime)
	assert.Equal(t, seriesStart.Add(4*time.Hour), series.Last().OpenTime)
}

func TestNewSeriesRejectsEmpty(t *testing.T) {
	_, err := NewSeries(nil)
	assert.Error(t, err)
}

func TestNewSeriesRejectsUnorderedTimestamps(t *testing.T) {
	candles := flatCandles(3, 100)
	candles[2].OpenTime = candles[0].OpenTime

	_, err := NewSeries(candles)
	assert.Error(t, err)
}

func TestNewSeriesRejectsInvertedRange(t *testing.T) {
	candles := flatCandles(3, 100)
	candles[1].High = 90
	candles[1].Low = 110

	_, err := NewSeries(candles)
	assert.Error(t, err)
}

func TestNewSeriesRejectsNonPositivePrices(t *testing.T) {
	candles := flatCandles(3, 100)
	candles[1].Low = 0

	_, err := NewSeries(candles)
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	series, err := NewSeries(flatCandles(10, 100))
	require.NoError(t, err)

	bt, fwd, err := series.Split(0.7)
	require.NoError(t, err)

	assert.Equal(t, 7, bt.Len())
	assert.Equal(t, 3, fwd.Len())

	// The segments stay contiguous.
	assert.Equal(t, series.At(6).OpenTime, bt.Last().OpenTime)
	assert.Equal(t, series.At(7).OpenTime, fwd.First().OpenTime)
}

func TestSplitRejectsBadFraction(t *testing.T) {
	series, err := NewSeries(flatCandles(10, 100))
	require.NoError(t, err)

	for _, fraction := range []float64{0, 1, -0.5, 1.5} {
		_, _, err := series.Split(fraction)
		assert.Error(t, err, "fraction %f", fraction)
	}
}

func TestSplitRejectsTinySegments(t *testing.T) {
	series, err := NewSeries(flatCandles(3, 100))
	require.NoError(t, err)

	// 3 candles cannot give both segments 2 candles.
	_, _, err = series.Split(0.5)
	assert.Error(t, err)
}

func TestPeriodsPerYear(t *testing.T) {
	hourly, err := NewSeries(flatCandles(5, 100))
	require.NoError(t, err)
	assert.InDelta(t, 24*365.25, hourly.PeriodsPerYear(), 0.01)

	daily := flatCandles(5, 100)
	for i := range daily {
		daily[i].OpenTime = seriesStart.Add(time.Duration(i) * 24 * time.Hour)
	}
	dailySeries, err := NewSeries(daily)
	require.NoError(t, err)
	assert.InDelta(t, 365.25, dailySeries.PeriodsPerYear(), 0.01)
}
