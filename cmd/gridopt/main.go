// Grid Optimizer CLI
// Simulates dual-grid trading on historical candles and searches for
// profitable, stable parameter sets
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gridlabs/gridopt/internal/candledb"
	"github.com/gridlabs/gridopt/internal/candlefile"
	"github.com/gridlabs/gridopt/internal/config"
	"github.com/gridlabs/gridopt/pkg/analyzer"
	"github.com/gridlabs/gridopt/pkg/gridsim"
	"github.com/gridlabs/gridopt/pkg/optimize"
)

// ============================================================================
// CLI FLAGS
// ============================================================================

var (
	// Run mode
	mode = flag.String("mode", "simulate", "Run mode (simulate, genetic, adaptive, analyze)")

	// Data source: either a CSV file or the candle database
	csvPath   = flag.String("csv", "", "CSV file with candles (open_time,open,high,low,close,volume)")
	useDB     = flag.Bool("db", false, "Load candles from the configured PostgreSQL store")
	symbol    = flag.String("symbol", "BTCUSDT", "Symbol to load from the candle store")
	timeframe = flag.String("timeframe", "1d", "Timeframe to load from the candle store")
	startDate = flag.String("start", "", "Start date for DB loads (YYYY-MM-DD)")
	endDate   = flag.String("end", "", "End date for DB loads (YYYY-MM-DD)")

	// Configuration
	configPath = flag.String("config", "", "Path to config file (default: ./configs/config.yaml)")

	// Output
	outputFile = flag.String("output", "", "Output file for JSON results (optional)")
	topN       = flag.Int("top", 10, "Number of best candidates to report for search modes")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
)

// ============================================================================
// MAIN
// ============================================================================

func main() {
	flag.Parse()

	// Bootstrap logger until the config tells us how to log.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	runID := uuid.New().String()
	log.Info().
		Str("run_id", runID).
		Str("mode", *mode).
		Msg("Starting gridopt run")

	ctx := context.Background()

	series, err := loadSeries(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load candle series")
	}

	log.Info().
		Int("candles", series.Len()).
		Time("first", series.First().OpenTime).
		Time("last", series.Last().OpenTime).
		Msg("Candle series loaded")

	switch strings.ToLower(*mode) {
	case "simulate":
		err = runSimulate(cfg, series, runID)
	case "genetic":
		err = runSearch(ctx, cfg, series, runID, optimize.NewGenetic())
	case "adaptive":
		err = runSearch(ctx, cfg, series, runID, optimize.NewAdaptive())
	case "analyze":
		err = runAnalyze(cfg, series, runID)
	default:
		err = fmt.Errorf("unknown mode %q (available: simulate, genetic, adaptive, analyze)", *mode)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Run failed")
	}

	log.Info().Str("run_id", runID).Msg("Run completed")
}

// ============================================================================
// DATA LOADING
// ============================================================================

func loadSeries(ctx context.Context, cfg *config.Config) (*gridsim.Series, error) {
	if *csvPath != "" {
		return candlefile.ReadSeries(*csvPath)
	}
	if !*useDB {
		return nil, fmt.Errorf("no data source: pass -csv or -db")
	}

	if *startDate == "" || *endDate == "" {
		return nil, fmt.Errorf("-start and -end are required with -db")
	}
	from, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date (use YYYY-MM-DD): %w", err)
	}
	to, err := time.Parse("2006-01-02", *endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date (use YYYY-MM-DD): %w", err)
	}

	store, err := candledb.Open(ctx, cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open candle store: %w", err)
	}
	defer store.Close()

	return store.LoadSeries(ctx, *symbol, *timeframe, from, to)
}

// ============================================================================
// MODES
// ============================================================================

func runSimulate(cfg *config.Config, series *gridsim.Series, runID string) error {
	res, err := gridsim.Simulate(series, cfg.Parameters())
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	fmt.Println(gridsim.FormatReport(res))

	return writeJSON(map[string]any{
		"run_id": runID,
		"mode":   "simulate",
		"result": exportResult(res),
	})
}

func runSearch(ctx context.Context, cfg *config.Config, series *gridsim.Series, runID string, strategy optimize.Strategy) error {
	searchCfg := cfg.SearchSettings()

	results, err := strategy.Search(ctx, series, searchCfg)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		return fmt.Errorf("search produced no results")
	}

	n := *topN
	if n > len(results) {
		n = len(results)
	}

	fmt.Printf("\nTop %d of %d evaluated candidates:\n\n", n, len(results))
	for i, r := range results[:n] {
		fmt.Printf("%2d. score=%8.2f  range=%5.1f%%  step=%4.2f%%  stop=%5.1f%%  bt=%7.2f%%  fwd=%7.2f%%\n",
			i+1, r.CombinedScore,
			r.Parameters.GridRangePct, r.Parameters.GridStepPct, r.Parameters.StopLossPct,
			r.Backtest.CombinedPnLPct, r.Forward.CombinedPnLPct)
	}

	best := results[0]
	if best.CombinedScore < searchCfg.MinScore {
		log.Warn().
			Float64("best_score", best.CombinedScore).
			Float64("min_score", searchCfg.MinScore).
			Msg("Search did not reach the configured minimum score; treat results as low quality")
	}
	fmt.Println(gridsim.FormatReport(best.Backtest))

	return writeJSON(map[string]any{
		"run_id":    runID,
		"mode":      strings.ToLower(*mode),
		"evaluated": len(results),
		"top":       exportCandidates(results[:n]),
	})
}

func runAnalyze(cfg *config.Config, series *gridsim.Series, runID string) error {
	est, err := analyzer.EstimateProfitability(
		series,
		cfg.Simulation.GridRangePct,
		cfg.Simulation.GridStepPct,
		cfg.Simulation.FeeRatePct,
	)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	fmt.Printf("\nGrid suitability for %s:\n", *symbol)
	fmt.Printf("  ATR:                  %.2f%%\n", est.ATRPct)
	fmt.Printf("  Recommended step:     %.2f%%\n", est.RecommendedStepPct)
	fmt.Printf("  Avg candle range:     %.2f%%\n", est.AvgDailyRangePct)
	fmt.Printf("  Est. monthly trades:  %.0f\n", est.ExpectedMonthlyTrades)
	fmt.Printf("  Est. monthly profit:  %.2f%%\n", est.PotentialMonthlyProfit)
	fmt.Printf("  Price spikes/month:   %.1f\n", est.PriceSpikesPerMonth)
	fmt.Printf("  Risk:                 %s\n", est.Risk)
	fmt.Printf("  Attractiveness:       %s\n", est.GridAttractiveness)

	return writeJSON(map[string]any{
		"run_id":   runID,
		"mode":     "analyze",
		"symbol":   *symbol,
		"estimate": est,
	})
}

// ============================================================================
// OUTPUT
// ============================================================================

// exportResult strips the bulky equity curve and clamps the profit factor so
// the JSON stays small and parseable.
func exportResult(res *gridsim.Result) map[string]any {
	m := res.Metrics
	m.ProfitFactor = gridsim.ClampProfitFactor(m.ProfitFactor, 999.99)

	return map[string]any{
		"parameters":              res.Parameters,
		"long_pnl_pct":            res.LongPnLPct,
		"short_pnl_pct":           res.ShortPnLPct,
		"combined_pnl_pct":        res.CombinedPnLPct,
		"trades":                  len(res.Trades),
		"range_breaks":            res.RangeBreakCount,
		"drawdown_stop_triggered": res.DrawdownStopTriggered,
		"metrics":                 m,
	}
}

func exportCandidates(results []*optimize.Result) []map[string]any {
	out := make([]map[string]any, len(results))
	for i, r := range results {
		out[i] = map[string]any{
			"rank":           i + 1,
			"combined_score": r.CombinedScore,
			"parameters":     r.Parameters,
			"backtest":       exportResult(r.Backtest),
			"forward":        exportResult(r.Forward),
		}
	}
	return out
}

func writeJSON(payload map[string]any) error {
	if *outputFile == "" {
		return nil
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	if err := os.WriteFile(*outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	log.Info().Str("file", *outputFile).Msg("Results written to file")
	return nil
}
