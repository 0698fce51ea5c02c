package gridsim

import (
	"fmt"
	"time"
)

// FormatReport renders a human-readable summary of a simulation result.
// Display-only; consumers that need structured data use the Result itself.
func FormatReport(res *Result) string {
	var start, end time.Time
	if len(res.EquityCurve) > 0 {
		start = res.EquityCurve[0].Timestamp
		end = res.EquityCurve[len(res.EquityCurve)-1].Timestamp
	}

	var wins, losses int
	for _, t := range res.Trades {
		if t.PnL > 0 {
			wins++
		} else {
			losses++
		}
	}

	status := "completed"
	if res.DrawdownStopTriggered {
		status = "stopped on drawdown limit"
	}

	return fmt.Sprintf(`
================================================================================
DUAL-GRID SIMULATION REPORT
================================================================================

Period:            %s to %s
Status:            %s

Grid range:        %.1f%%   step: %.2f%%   stop loss: %.1f%%   fee: %.4f%%
Initial balance:   $%.2f per side

PnL long:          %.2f%%
PnL short:         %.2f%%
PnL combined:      %.2f%%

Trades:            %d (%d wins / %d losses)
Range breaks:      %d

Max drawdown:      %.2f%%
Sharpe ratio:      %.2f
Calmar ratio:      %.2f
Profit factor:     %.2f
================================================================================
`,
		start.Format("2006-01-02 15:04"),
		end.Format("2006-01-02 15:04"),
		status,
		res.Parameters.GridRangePct,
		res.Parameters.GridStepPct,
		res.Parameters.StopLossPct,
		res.Parameters.FeeRatePct,
		res.Parameters.InitialBalance,
		res.LongPnLPct,
		res.ShortPnLPct,
		res.CombinedPnLPct,
		len(res.Trades),
		wins,
		losses,
		res.RangeBreakCount,
		res.Metrics.MaxDrawdownPct,
		res.Metrics.SharpeRatio,
		res.Metrics.CalmarRatio,
		ClampProfitFactor(res.Metrics.ProfitFactor, 999.99),
	)
}
