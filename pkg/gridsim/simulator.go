package gridsim

import (
	"fmt"
	"sort"
	"time"
)

// sideState is the mutable per-side state of one replay: the ladder, the
// side's cash balance and whether the side has been suspended by its stop
// loss. The two sides never share state.
type sideState struct {
	side      Side
	ladder    *ladder
	balance   float64
	initial   float64
	suspended bool
}

// event is one price crossing inside a candle sweep: either a tranche entry
// at an unfilled level or a take-profit of a filled one.
type event struct {
	price float64
	lv    *level
	st    *sideState
	entry bool
}

// simulation owns all mutable state of one replay. A fresh simulation is
// allocated per Simulate call, so concurrent runs never interfere.
type simulation struct {
	params           Parameters
	feeRate          float64
	perLevelNotional float64
	ddLimitPct       float64

	long  *sideState
	short *sideState

	trades      []Trade
	equityCurve []EquityPoint
	peakEquity  float64

	rangeBreaks int
	ddTriggered bool
}

// Simulate replays the candle series through the dual-grid execution model
// and returns the trade ledger, equity curve and derived metrics.
// Deterministic: identical inputs always produce identical output.
func Simulate(series *Series, params Parameters) (*Result, error) {
	return SimulateBounded(series, params, 0)
}

// SimulateBounded is Simulate with an additional drawdown ceiling applied on
// top of the parameter set's own limit. Optimizers use it to abort
// clearly-failing candidates early; the ceiling does not alter the fills of
// runs that never reach it. A ceiling of 0 means no extra bound.
func SimulateBounded(series *Series, params Parameters, drawdownCeilingPct float64) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if series == nil || series.Len() < 2 {
		return nil, fmt.Errorf("candle series needs at least 2 candles")
	}

	sim := newSimulation(series.First().Close, params, drawdownCeilingPct)
	sim.run(series)
	return sim.result(series)
}

func newSimulation(center float64, params Parameters, ceilingPct float64) *simulation {
	levels := float64(params.LevelsPerSide())

	sim := &simulation{
		params:           params,
		feeRate:          params.FeeRatePct / 100,
		perLevelNotional: params.InitialBalance / levels,
		ddLimitPct:       effectiveDrawdownLimit(params.MaxDrawdownPct, ceilingPct),
		long: &sideState{
			side:    SideLong,
			ladder:  buildLadder(SideLong, center, params.GridRangePct, params.GridStepPct),
			balance: params.InitialBalance,
			initial: params.InitialBalance,
		},
		short: &sideState{
			side:    SideShort,
			ladder:  buildLadder(SideShort, center, params.GridRangePct, params.GridStepPct),
			balance: params.InitialBalance,
			initial: params.InitialBalance,
		},
		peakEquity: params.InitialBalance * 2,
	}

	return sim
}

func effectiveDrawdownLimit(configured, ceiling float64) float64 {
	switch {
	case configured > 0 && ceiling > 0:
		if configured < ceiling {
			return configured
		}
		return ceiling
	case configured > 0:
		return configured
	default:
		return ceiling
	}
}

func (sim *simulation) run(series *Series) {
	candles := series.Candles()

	// Replay starts after the ladder-centering candle.
	sim.recordEquity(candles[0].OpenTime, candles[0].Close, true)
	prevClose := candles[0].Close

	for i := 1; i < len(candles); i++ {
		c := candles[i]

		sim.sweepCandle(c, prevClose)
		sim.checkRangeBreak(sim.long, c)
		sim.checkRangeBreak(sim.short, c)
		sim.checkStopLoss(sim.long, c)
		sim.checkStopLoss(sim.short, c)

		forced := sim.params.EquityStride <= 1 ||
			i%sim.params.EquityStride == 0 ||
			i == len(candles)-1
		equity := sim.recordEquity(c.OpenTime, c.Close, forced)

		if sim.ddLimitPct > 0 {
			drawdownPct := (sim.peakEquity - equity) / sim.peakEquity * 100
			if drawdownPct >= sim.ddLimitPct {
				sim.ddTriggered = true
				// Ensure the triggering candle is on the curve even when
				// sampling with a stride.
				if !forced {
					sim.appendEquity(c.OpenTime, equity)
				}
				return
			}
		}

		prevClose = c.Close
	}
}

// sweepCandle fills every level the candle's range crosses, in price order
// from the previous close toward the candle extreme. Green candles sweep the
// down leg first, red candles the up leg first; a candle never fills levels
// beyond its own high/low.
func (sim *simulation) sweepCandle(c Candle, prevClose float64) {
	anchor := clamp(prevClose, c.Low, c.High)

	if c.Close >= c.Open {
		sim.sweepDown(c, anchor, c.Low)
		sim.sweepUp(c, c.Low, c.High)
	} else {
		sim.sweepUp(c, anchor, c.High)
		sim.sweepDown(c, c.High, c.Low)
	}
}

// sweepDown executes downward crossings in [lo, hi]: long entries and short
// take-profits, highest price first.
func (sim *simulation) sweepDown(c Candle, hi, lo float64) {
	var events []event

	if !sim.long.suspended {
		for _, lv := range sim.long.ladder.levels {
			if !lv.filled && lv.price <= hi && lv.price >= lo {
				events = append(events, event{price: lv.price, lv: lv, st: sim.long, entry: true})
			}
		}
	}
	if !sim.short.suspended {
		for _, lv := range sim.short.ladder.levels {
			if lv.filled && lv.takeProfit <= hi && lv.takeProfit >= lo {
				events = append(events, event{price: lv.takeProfit, lv: lv, st: sim.short, entry: false})
			}
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].price != events[j].price {
			return events[i].price > events[j].price
		}
		return events[i].entry && !events[j].entry
	})

	sim.execute(events, c.OpenTime)
}

// sweepUp executes upward crossings in [lo, hi]: short entries and long
// take-profits, lowest price first.
func (sim *simulation) sweepUp(c Candle, lo, hi float64) {
	var events []event

	if !sim.short.suspended {
		for _, lv := range sim.short.ladder.levels {
			if !lv.filled && lv.price >= lo && lv.price <= hi {
				events = append(events, event{price: lv.price, lv: lv, st: sim.short, entry: true})
			}
		}
	}
	if !sim.long.suspended {
		for _, lv := range sim.long.ladder.levels {
			if lv.filled && lv.takeProfit >= lo && lv.takeProfit <= hi {
				events = append(events, event{price: lv.takeProfit, lv: lv, st: sim.long, entry: false})
			}
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].price != events[j].price {
			return events[i].price < events[j].price
		}
		return events[i].entry && !events[j].entry
	})

	sim.execute(events, c.OpenTime)
}

func (sim *simulation) execute(events []event, t time.Time) {
	for _, ev := range events {
		if ev.entry {
			sim.openTranche(ev.st, ev.lv)
		} else {
			sim.closeTranche(ev.st, ev.lv, ev.price, ExitGridFill, t)
		}
	}
}

func (sim *simulation) openTranche(st *sideState, lv *level) {
	fee := sim.perLevelNotional * sim.feeRate

	lv.filled = true
	lv.quantity = sim.perLevelNotional / lv.price
	lv.entryPrice = lv.price
	lv.entryFee = fee

	st.balance -= fee
}

func (sim *simulation) closeTranche(st *sideState, lv *level, exitPrice float64, reason ExitReason, t time.Time) {
	var gross float64
	if st.side == SideLong {
		gross = (exitPrice - lv.entryPrice) * lv.quantity
	} else {
		gross = (lv.entryPrice - exitPrice) * lv.quantity
	}
	exitFee := exitPrice * lv.quantity * sim.feeRate

	st.balance += gross - exitFee

	sim.trades = append(sim.trades, Trade{
		Side:       st.side,
		EntryPrice: lv.entryPrice,
		ExitPrice:  exitPrice,
		Quantity:   lv.quantity,
		FeePaid:    lv.entryFee + exitFee,
		PnL:        gross - lv.entryFee - exitFee,
		ExitReason: reason,
		ExitTime:   t,
	})

	lv.filled = false
	lv.quantity = 0
	lv.entryPrice = 0
	lv.entryFee = 0
}

// checkRangeBreak closes a side whose ladder bound was exceeded and rebuilds
// its ladder around the candle close. The side keeps trading afterwards.
func (sim *simulation) checkRangeBreak(st *sideState, c Candle) {
	if st.suspended || !st.ladder.broken(c) {
		return
	}

	for _, lv := range st.ladder.openLevels() {
		sim.closeTranche(st, lv, c.Close, ExitRangeBreak, c.OpenTime)
	}

	st.ladder = buildLadder(st.side, c.Close, sim.params.GridRangePct, sim.params.GridStepPct)
	sim.rangeBreaks++
}

// checkStopLoss force-closes a side whose unrealized loss exceeds the
// configured fraction of its initial balance and suspends it for the rest of
// the run.
func (sim *simulation) checkStopLoss(st *sideState, c Candle) {
	if st.suspended || sim.params.StopLossPct <= 0 {
		return
	}

	if sim.floatingPnL(st, c.Close) > -sim.params.StopLossPct/100*st.initial {
		return
	}

	for _, lv := range st.ladder.openLevels() {
		sim.closeTranche(st, lv, c.Close, ExitStopLoss, c.OpenTime)
	}
	st.suspended = true
}

func (sim *simulation) floatingPnL(st *sideState, price float64) float64 {
	var pnl float64
	for _, lv := range st.ladder.levels {
		if !lv.filled {
			continue
		}
		if st.side == SideLong {
			pnl += (price - lv.entryPrice) * lv.quantity
		} else {
			pnl += (lv.entryPrice - price) * lv.quantity
		}
	}
	return pnl
}

func (sim *simulation) equityAt(price float64) float64 {
	return sim.long.balance + sim.short.balance +
		sim.floatingPnL(sim.long, price) + sim.floatingPnL(sim.short, price)
}

// recordEquity updates the running peak on every candle and appends a curve
// point when the stride allows it. Returns the candle's equity.
func (sim *simulation) recordEquity(t time.Time, price float64, record bool) float64 {
	equity := sim.equityAt(price)
	if equity > sim.peakEquity {
		sim.peakEquity = equity
	}
	if record {
		sim.appendEquity(t, equity)
	}
	return equity
}

func (sim *simulation) appendEquity(t time.Time, equity float64) {
	sim.equityCurve = append(sim.equityCurve, EquityPoint{Timestamp: t, Equity: equity})
}

func (sim *simulation) result(series *Series) (*Result, error) {
	finalPrice := sim.finalPrice(series)

	longEquity := sim.long.balance + sim.floatingPnL(sim.long, finalPrice)
	shortEquity := sim.short.balance + sim.floatingPnL(sim.short, finalPrice)

	res := &Result{
		Parameters:            sim.params,
		LongPnLPct:            (longEquity - sim.long.initial) / sim.long.initial * 100,
		ShortPnLPct:           (shortEquity - sim.short.initial) / sim.short.initial * 100,
		Trades:                sim.trades,
		EquityCurve:           sim.equityCurve,
		DrawdownStopTriggered: sim.ddTriggered,
		RangeBreakCount:       sim.rangeBreaks,
	}
	res.CombinedPnLPct = (longEquity + shortEquity - 2*sim.long.initial) / (2 * sim.long.initial) * 100
	res.Metrics = DeriveMetrics(res.Trades, res.EquityCurve, series.PeriodsPerYear())

	return res, nil
}

// finalPrice is the close of the last candle the replay actually processed.
func (sim *simulation) finalPrice(series *Series) float64 {
	last := sim.equityCurve[len(sim.equityCurve)-1].Timestamp
	candles := series.Candles()
	for i := len(candles) - 1; i >= 0; i-- {
		if !candles[i].OpenTime.After(last) {
			return candles[i].Close
		}
	}
	return series.First().Close
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
