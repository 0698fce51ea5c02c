package optimize

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/gridlabs/gridopt/pkg/gridsim"
)

// Candidates whose drawdown crosses this ceiling during evaluation are
// aborted early; they score on whatever they produced before the abort.
const evalDrawdownCeilingPct = 50.0

// Strategy is a parameter search algorithm. Search returns every evaluated
// candidate ranked best-first.
type Strategy interface {
	Search(ctx context.Context, series *gridsim.Series, cfg SearchConfig) ([]*Result, error)
}

// evaluator runs candidate parameter sets against the backtest and forward
// segments of a candle series.
type evaluator struct {
	backtest *gridsim.Series
	forward  *gridsim.Series
	weights  ScoreWeights
	workers  int
}

func newEvaluator(series *gridsim.Series, cfg SearchConfig) (*evaluator, error) {
	bt, fwd, err := series.Split(cfg.BacktestFraction)
	if err != nil {
		return nil, fmt.Errorf("splitting series: %w", err)
	}

	return &evaluator{
		backtest: bt,
		forward:  fwd,
		weights:  cfg.Weights,
		workers:  cfg.Workers,
	}, nil
}

// evaluateBatch simulates every candidate on both segments concurrently.
// Candidates that fail parameter validation are dropped, not fatal; the
// search simply moves on without them. Output order matches input order with
// dropped candidates omitted.
func (e *evaluator) evaluateBatch(ctx context.Context, candidates []gridsim.Parameters) ([]*Result, error) {
	slots := make([]*Result, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, params := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			res, err := e.evaluate(params)
			if err != nil {
				log.Debug().Err(err).Str("params", params.Key()).Msg("candidate dropped")
				return nil
			}
			slots[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			results = append(results, r)
		}
	}
	return results, nil
}

func (e *evaluator) evaluate(params gridsim.Parameters) (*Result, error) {
	bt, err := gridsim.SimulateBounded(e.backtest, params, evalDrawdownCeilingPct)
	if err != nil {
		return nil, fmt.Errorf("backtest segment: %w", err)
	}
	fwd, err := gridsim.SimulateBounded(e.forward, params, evalDrawdownCeilingPct)
	if err != nil {
		return nil, fmt.Errorf("forward segment: %w", err)
	}

	return &Result{
		Parameters:    params,
		Backtest:      bt,
		Forward:       fwd,
		CombinedScore: combinedScore(bt, fwd, e.weights),
		key:           params.Key(),
	}, nil
}

// accumulator keeps every result of a search and guarantees no parameter key
// is ever evaluated twice.
type accumulator struct {
	seen    map[string]bool
	results []*Result
}

func newAccumulator() *accumulator {
	return &accumulator{seen: make(map[string]bool)}
}

// filter returns the candidates not yet evaluated and marks them seen, so a
// batch never contains duplicates either.
func (a *accumulator) filter(candidates []gridsim.Parameters) []gridsim.Parameters {
	fresh := make([]gridsim.Parameters, 0, len(candidates))
	for _, p := range candidates {
		key := p.Key()
		if a.seen[key] {
			continue
		}
		a.seen[key] = true
		fresh = append(fresh, p)
	}
	return fresh
}

// evaluated reports whether a parameter key has already gone through a
// batch.
func (a *accumulator) evaluated(key string) bool {
	return a.seen[key]
}

func (a *accumulator) add(results []*Result) {
	a.results = append(a.results, results...)
}

// ranked returns all accumulated results sorted by score descending, ties
// broken by parameter key for deterministic output.
func (a *accumulator) ranked() []*Result {
	out := append([]*Result(nil), a.results...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CombinedScore != out[j].CombinedScore {
			return out[i].CombinedScore > out[j].CombinedScore
		}
		return out[i].key < out[j].key
	})
	return out
}
