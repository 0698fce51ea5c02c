package gridsim

// level is one price rung of a ladder. A level opens a tranche when price
// crosses it in the entry direction and closes that tranche at takeProfit,
// one grid step back toward the ladder center.
type level struct {
	price      float64
	takeProfit float64
	filled     bool
	quantity   float64
	entryPrice float64
	entryFee   float64
}

// ladder is one side's set of grid levels plus the outer bound beyond which
// a range break is declared.
type ladder struct {
	side   Side
	center float64
	bound  float64
	levels []*level
}

// buildLadder places levels away from center spaced by stepPct, out to
// rangePct/2. Long levels sit below center with take-profits one step up;
// short levels sit above with take-profits one step down.
func buildLadder(side Side, center, rangePct, stepPct float64) *ladder {
	count := int((rangePct / 2) / stepPct)
	step := stepPct / 100

	l := &ladder{
		side:   side,
		center: center,
		levels: make([]*level, 0, count),
	}

	for k := 1; k <= count; k++ {
		var price float64
		if side == SideLong {
			price = center * (1 - float64(k)*step)
		} else {
			price = center * (1 + float64(k)*step)
		}

		lv := &level{price: price}
		if side == SideLong {
			lv.takeProfit = price * (1 + step)
		} else {
			lv.takeProfit = price * (1 - step)
		}
		l.levels = append(l.levels, lv)
	}

	if side == SideLong {
		l.bound = center * (1 - rangePct/2/100)
	} else {
		l.bound = center * (1 + rangePct/2/100)
	}

	return l
}

// broken reports whether the candle's extreme passed the ladder's outer
// bound.
func (l *ladder) broken(c Candle) bool {
	if l.side == SideLong {
		return c.Low < l.bound
	}
	return c.High > l.bound
}

// openLevels returns the levels currently holding a tranche.
func (l *ladder) openLevels() []*level {
	var open []*level
	for _, lv := range l.levels {
		if lv.filled {
			open = append(open, lv)
		}
	}
	return open
}
