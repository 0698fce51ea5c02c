package optimize

import "github.com/gridlabs/gridopt/pkg/gridsim"

// combinedScore folds backtest and forward results into a single fitness
// value: mean combined PnL, minus a stability penalty on the backtest/forward
// gap, minus a drawdown penalty, plus a Sharpe bonus.
func combinedScore(bt, fwd *gridsim.Result, w ScoreWeights) float64 {
	meanPnL := (bt.CombinedPnLPct + fwd.CombinedPnLPct) / 2

	gap := bt.CombinedPnLPct - fwd.CombinedPnLPct
	if gap < 0 {
		gap = -gap
	}

	meanDD := (bt.Metrics.MaxDrawdownPct + fwd.Metrics.MaxDrawdownPct) / 2
	meanSharpe := (bt.Metrics.SharpeRatio + fwd.Metrics.SharpeRatio) / 2

	return meanPnL - w.Stability*gap - w.Drawdown*meanDD + w.Sharpe*meanSharpe
}
