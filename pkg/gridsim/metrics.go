package gridsim

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metrics holds the risk/performance statistics of one simulation run.
type Metrics struct {
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	CalmarRatio    float64 `json:"calmar_ratio"`
	// ProfitFactor is +Inf when there are losing trades on neither side but
	// positive profit. Callers must clamp it before weighting or
	// serializing; see ClampProfitFactor.
	ProfitFactor float64 `json:"profit_factor"`
}

// DeriveMetrics computes all metrics from a ledger and equity curve. Pure
// function; degenerate inputs (zero variance, zero drawdown, zero losses)
// produce the documented clamped values, never NaN.
func DeriveMetrics(trades []Trade, equity []EquityPoint, periodsPerYear float64) Metrics {
	return Metrics{
		MaxDrawdownPct: MaxDrawdownPct(equity),
		SharpeRatio:    sharpeRatio(equity, periodsPerYear),
		CalmarRatio:    calmarRatio(equity),
		ProfitFactor:   profitFactor(trades),
	}
}

// MaxDrawdownPct is the largest percentage decline of equity from its
// running peak. 0 for a monotonically non-decreasing curve.
func MaxDrawdownPct(equity []EquityPoint) float64 {
	if len(equity) == 0 {
		return 0
	}

	peak := equity[0].Equity
	maxDD := 0.0
	for _, p := range equity[1:] {
		if p.Equity > peak {
			peak = p.Equity
			continue
		}
		if peak > 0 {
			if dd := (peak - p.Equity) / peak * 100; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpeRatio is the mean per-period return over its sample standard
// deviation, annualized. 0 when the return series is too short or has zero
// variance.
func sharpeRatio(equity []EquityPoint, periodsPerYear float64) float64 {
	if len(equity) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev <= 0 {
			return 0
		}
		returns = append(returns, (equity[i].Equity-prev)/prev)
	}

	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 {
		return 0
	}

	return mean / std * math.Sqrt(periodsPerYear)
}

// calmarRatio is total return percentage over max drawdown percentage. 0
// when there is no drawdown: a profitable run with zero drawdown is unusual
// and should be flagged upstream, not given an unbounded score.
func calmarRatio(equity []EquityPoint) float64 {
	if len(equity) < 2 || equity[0].Equity <= 0 {
		return 0
	}

	maxDD := MaxDrawdownPct(equity)
	if maxDD == 0 {
		return 0
	}

	totalReturnPct := (equity[len(equity)-1].Equity - equity[0].Equity) / equity[0].Equity * 100
	return totalReturnPct / maxDD
}

// profitFactor is gross profit over absolute gross loss across closed
// trades. 0 when there are neither losses nor profit; +Inf when there are
// no losses but positive profit.
func profitFactor(trades []Trade) float64 {
	var grossProfit, grossLoss float64
	for _, t := range trades {
		if t.PnL > 0 {
			grossProfit += t.PnL
		} else {
			grossLoss += -t.PnL
		}
	}

	if grossLoss == 0 {
		if grossProfit == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return grossProfit / grossLoss
}

// ClampProfitFactor caps an unbounded-good profit factor at the given limit
// so it can be serialized or combined into a weighted score.
func ClampProfitFactor(pf, limit float64) float64 {
	if math.IsInf(pf, 1) || pf > limit {
		return limit
	}
	return pf
}
