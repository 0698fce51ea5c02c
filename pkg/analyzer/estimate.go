package analyzer

import (
	"fmt"

	"github.com/gridlabs/gridopt/pkg/gridsim"
)

// Risk and attractiveness buckets assigned by EstimateProfitability.
type (
	RiskLevel      string
	Attractiveness string
)

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"

	AttractivenessHigh   Attractiveness = "high"
	AttractivenessMedium Attractiveness = "medium"
	AttractivenessLow    Attractiveness = "low"
)

// Estimate is a closed-form profitability projection for a grid on the given
// series. It is a screening heuristic; candidates that pass get the full
// simulation treatment.
type Estimate struct {
	CurrentPrice            float64        `json:"current_price"`
	ATRPct                  float64        `json:"atr_pct"`
	RecommendedStepPct      float64        `json:"recommended_step_pct"`
	GridLevels              int            `json:"grid_levels"`
	AvgDailyRangePct        float64        `json:"avg_daily_range_pct"`
	ExpectedDailyTrades     float64        `json:"expected_daily_trades"`
	ExpectedMonthlyTrades   float64        `json:"expected_monthly_trades"`
	PotentialMonthlyProfit  float64        `json:"potential_monthly_profit_pct"`
	PriceSpikes             int            `json:"price_spikes"`
	PriceSpikesPerMonth     float64        `json:"price_spikes_per_month"`
	Risk                    RiskLevel      `json:"risk_level"`
	GridAttractiveness      Attractiveness `json:"attractiveness"`
}

// EstimateProfitability projects monthly grid profit from average candle
// range: every full grid step inside a candle's range is one round trip
// earning the step minus the fee. Spike frequency downgrades the rating.
func EstimateProfitability(series *gridsim.Series, gridRangePct, gridStepPct, feePct float64) (*Estimate, error) {
	if gridStepPct <= 0 {
		return nil, fmt.Errorf("grid step %f must be positive", gridStepPct)
	}

	atrPct, err := ATRPct(series)
	if err != nil {
		return nil, err
	}

	candles := series.Candles()

	var totalRangePct float64
	for _, c := range candles {
		totalRangePct += (c.High - c.Low) / c.Low * 100
	}
	avgRangePct := totalRangePct / float64(len(candles))

	dailyTrades := avgRangePct / gridStepPct
	monthlyTrades := dailyTrades * 30
	monthlyProfit := monthlyTrades * (gridStepPct - feePct)

	spikes := CountPriceSpikes(series, SpikeThresholdPct)
	spikesPerMonth := float64(spikes) / (float64(len(candles)) / 30)

	recommended := atrPct / 3
	if recommended < MinStepPct {
		recommended = MinStepPct
	}

	est := &Estimate{
		CurrentPrice:           series.Last().Close,
		ATRPct:                 atrPct,
		RecommendedStepPct:     recommended,
		GridLevels:             int(gridRangePct / gridStepPct),
		AvgDailyRangePct:       avgRangePct,
		ExpectedDailyTrades:    dailyTrades,
		ExpectedMonthlyTrades:  monthlyTrades,
		PotentialMonthlyProfit: monthlyProfit,
		PriceSpikes:            spikes,
		PriceSpikesPerMonth:    spikesPerMonth,
		Risk:                   riskLevel(spikesPerMonth),
		GridAttractiveness:     attractiveness(monthlyProfit, spikesPerMonth),
	}
	return est, nil
}

func riskLevel(spikesPerMonth float64) RiskLevel {
	switch {
	case spikesPerMonth <= 1:
		return RiskLow
	case spikesPerMonth <= 3:
		return RiskMedium
	default:
		return RiskHigh
	}
}

func attractiveness(monthlyProfitPct, spikesPerMonth float64) Attractiveness {
	switch {
	case monthlyProfitPct > 15 && spikesPerMonth <= 2:
		return AttractivenessHigh
	case monthlyProfitPct > 10 && spikesPerMonth <= 3:
		return AttractivenessMedium
	default:
		return AttractivenessLow
	}
}
