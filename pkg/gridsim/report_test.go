package gridsim

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatReport(t *testing.T) {
	series := mustSeries(t,
		[4]float64{100, 100, 100, 100},
		[4]float64{100, 100, 95, 95},
		[4]float64{95, 100, 95, 100},
	)

	res, err := Simulate(series, simParams())
	require.NoError(t, err)

	report := FormatReport(res)

	for _, want := range []string{
		"DUAL-GRID SIMULATION REPORT",
		"completed",
		"PnL combined:",
		"Trades:            1 (1 wins / 0 losses)",
		"Range breaks:      0",
	} {
		require.True(t, strings.Contains(report, want), "report missing %q:\n%s", want, report)
	}

	// Unbounded profit factor is clamped for display.
	require.False(t, strings.Contains(report, "Inf"))
}

func TestFormatReportDrawdownStatus(t *testing.T) {
	params := simParams()
	params.MaxDrawdownPct = 1

	series := mustSeries(t,
		[4]float64{100, 100, 100, 100},
		[4]float64{100, 100, 91, 91},
	)

	res, err := Simulate(series, params)
	require.NoError(t, err)

	report := FormatReport(res)
	require.True(t, strings.Contains(report, "stopped on drawdown limit"))
}
