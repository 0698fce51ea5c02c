// Package candlefile reads and writes OHLCV candle series as CSV files with
// millisecond epoch timestamps, the layout exchange data dumps use.
package candlefile

import (
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/gridlabs/gridopt/pkg/gridsim"
)

// row is the CSV wire form of one candle.
type row struct {
	OpenTimeMs int64   `csv:"open_time"`
	Open       float64 `csv:"open"`
	High       float64 `csv:"high"`
	Low        float64 `csv:"low"`
	Close      float64 `csv:"close"`
	Volume     float64 `csv:"volume"`
}

// ReadSeries loads a candle series from a CSV file. The series inherits all
// of gridsim's ordering and sanity validation.
func ReadSeries(path string) (*gridsim.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening candle file: %w", err)
	}
	defer f.Close()

	var rows []*row
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parsing candle file %s: %w", path, err)
	}

	candles := make([]gridsim.Candle, len(rows))
	for i, r := range rows {
		candles[i] = gridsim.Candle{
			OpenTime: time.UnixMilli(r.OpenTimeMs).UTC(),
			Open:     r.Open,
			High:     r.High,
			Low:      r.Low,
			Close:    r.Close,
			Volume:   r.Volume,
		}
	}

	series, err := gridsim.NewSeries(candles)
	if err != nil {
		return nil, fmt.Errorf("candle file %s: %w", path, err)
	}
	return series, nil
}

// WriteSeries saves a candle series as CSV, overwriting any existing file.
func WriteSeries(path string, series *gridsim.Series) error {
	rows := make([]*row, series.Len())
	for i, c := range series.Candles() {
		rows[i] = &row{
			OpenTimeMs: c.OpenTime.UnixMilli(),
			Open:       c.Open,
			High:       c.High,
			Low:        c.Low,
			Close:      c.Close,
			Volume:     c.Volume,
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating candle file: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("writing candle file %s: %w", path, err)
	}
	return nil
}
