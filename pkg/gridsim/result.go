package gridsim

import "time"

// Side identifies which grid a level, position or trade belongs to.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// ExitReason records why a tranche was closed.
type ExitReason string

const (
	// ExitGridFill is a regular take-profit one grid step from the entry.
	ExitGridFill ExitReason = "grid_fill"
	// ExitStopLoss is a forced close after the side's stop loss tripped.
	ExitStopLoss ExitReason = "stop_loss"
	// ExitRangeBreak is a forced close after price left the ladder's range.
	ExitRangeBreak ExitReason = "range_break"
)

// Trade is one closed tranche, appended to the ledger as the replay
// progresses. Immutable once recorded.
type Trade struct {
	Side       Side       `json:"side"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	Quantity   float64    `json:"quantity"`
	FeePaid    float64    `json:"fee_paid"`
	PnL        float64    `json:"pnl"`
	ExitReason ExitReason `json:"exit_reason"`
	ExitTime   time.Time  `json:"exit_time"`
}

// EquityPoint is total account equity (both sides' balances plus floating
// PnL) after processing one candle.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}

// Result is the immutable outcome of one simulation run.
type Result struct {
	Parameters Parameters `json:"parameters"`

	LongPnLPct     float64 `json:"long_pnl_pct"`
	ShortPnLPct    float64 `json:"short_pnl_pct"`
	CombinedPnLPct float64 `json:"combined_pnl_pct"`

	Trades      []Trade       `json:"trades"`
	EquityCurve []EquityPoint `json:"equity_curve"`

	Metrics Metrics `json:"metrics"`

	DrawdownStopTriggered bool `json:"drawdown_stop_triggered"`
	RangeBreakCount       int  `json:"range_break_count"`
}
