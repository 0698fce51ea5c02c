package gridsim

import (
	"fmt"
	"math"
)

// Parameters holds the tunable inputs of one simulation run. It is a value
// object: two Parameters that render to the same canonical Key are treated
// as equal by the optimizer's deduplication.
type Parameters struct {
	// GridRangePct is the total grid width in percent; each ladder extends
	// range/2 away from its center price.
	GridRangePct float64 `json:"grid_range_pct"`
	// GridStepPct is the spacing between adjacent grid levels in percent.
	GridStepPct float64 `json:"grid_step_pct"`
	// StopLossPct suspends a side when its unrealized loss exceeds this
	// percentage of the side's initial balance. 0 disables the stop.
	StopLossPct float64 `json:"stop_loss_pct"`
	// FeeRatePct is charged on entry and exit notional of every fill.
	FeeRatePct float64 `json:"fee_rate_pct"`
	// InitialBalance is the starting capital of each side.
	InitialBalance float64 `json:"initial_balance_per_side"`
	// MaxDrawdownPct terminates the replay once equity falls this far below
	// its running peak. 0 disables the check.
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	// EquityStride samples the equity curve every N candles. 0 or 1 records
	// every candle.
	EquityStride int `json:"equity_stride"`
}

// LevelsPerSide returns how many grid levels one ladder holds.
func (p Parameters) LevelsPerSide() int {
	if p.GridStepPct <= 0 {
		return 0
	}
	return int((p.GridRangePct / 2) / p.GridStepPct)
}

// Validate rejects parameter sets that cannot produce a meaningful
// simulation. Errors name the offending field and are never corrected
// silently.
func (p Parameters) Validate() error {
	if p.GridRangePct <= 0 {
		return fmt.Errorf("grid_range_pct %f must be positive", p.GridRangePct)
	}
	if p.GridStepPct <= 0 {
		return fmt.Errorf("grid_step_pct %f must be positive", p.GridStepPct)
	}
	if n := p.LevelsPerSide(); n < 2 {
		return fmt.Errorf("grid_range_pct %f with grid_step_pct %f yields %d levels per side, need at least 2", p.GridRangePct, p.GridStepPct, n)
	}
	if p.StopLossPct < 0 {
		return fmt.Errorf("stop_loss_pct %f must not be negative", p.StopLossPct)
	}
	if p.FeeRatePct < 0 {
		return fmt.Errorf("fee_rate_pct %f must not be negative", p.FeeRatePct)
	}
	if p.InitialBalance <= 0 {
		return fmt.Errorf("initial_balance_per_side %f must be positive", p.InitialBalance)
	}
	if p.MaxDrawdownPct < 0 {
		return fmt.Errorf("max_drawdown_pct %f must not be negative", p.MaxDrawdownPct)
	}
	if p.EquityStride < 0 {
		return fmt.Errorf("equity_stride %d must not be negative", p.EquityStride)
	}
	return nil
}

// Key renders the parameter set to a canonical string. Every field is
// rounded to fixed precision first, so two sets differing only by
// floating-point noise compare equal.
func (p Parameters) Key() string {
	return fmt.Sprintf("r%.4f|s%.4f|sl%.4f|f%.4f|b%.2f|dd%.4f|es%d",
		round4(p.GridRangePct),
		round4(p.GridStepPct),
		round4(p.StopLossPct),
		round4(p.FeeRatePct),
		math.Round(p.InitialBalance*100)/100,
		round4(p.MaxDrawdownPct),
		p.EquityStride,
	)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
