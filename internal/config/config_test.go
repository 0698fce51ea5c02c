// Configuration Loading Unit Tests
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: gridopt\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gridopt", cfg.App.Name)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)

	assert.Equal(t, 20.0, cfg.Simulation.GridRangePct)
	assert.Equal(t, 1.0, cfg.Simulation.GridStepPct)
	assert.Equal(t, 10000.0, cfg.Simulation.InitialBalance)

	assert.Equal(t, 50, cfg.Search.PopulationSize)
	assert.Equal(t, 20, cfg.Search.Generations)
	assert.Equal(t, 0.7, cfg.Search.BacktestFraction)
	assert.Equal(t, 0.5, cfg.Search.Weights.Stability)
	assert.Equal(t, 0.0, cfg.Search.MinScore)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
app:
  log_level: debug
simulation:
  grid_range_pct: 30
  grid_step_pct: 2.5
  stop_loss_pct: 10
search:
  population_size: 24
  workers: 8
  weights:
    sharpe: 1.5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 30.0, cfg.Simulation.GridRangePct)
	assert.Equal(t, 2.5, cfg.Simulation.GridStepPct)
	assert.Equal(t, 24, cfg.Search.PopulationSize)
	assert.Equal(t, 8, cfg.Search.Workers)
	assert.Equal(t, 1.5, cfg.Search.Weights.Sharpe)
	// Untouched weights keep their defaults.
	assert.Equal(t, 0.2, cfg.Search.Weights.Drawdown)
}

func TestLoadRejectsInvalidSimulation(t *testing.T) {
	path := writeConfig(t, `
simulation:
  grid_range_pct: -5
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidSearch(t *testing.T) {
	path := writeConfig(t, `
search:
  backtest_fraction: 1.5
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestParametersFromConfig(t *testing.T) {
	path := writeConfig(t, `
simulation:
  grid_range_pct: 30
  grid_step_pct: 2
  fee_rate_pct: 0.2
  initial_balance: 5000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	params := cfg.Parameters()
	assert.Equal(t, 30.0, params.GridRangePct)
	assert.Equal(t, 2.0, params.GridStepPct)
	assert.Equal(t, 0.2, params.FeeRatePct)
	assert.Equal(t, 5000.0, params.InitialBalance)
	assert.NoError(t, params.Validate())
}

func TestSearchSettingsFromConfig(t *testing.T) {
	path := writeConfig(t, `
search:
  generations: 7
  min_score: 12.5
  seed: 42
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	searchCfg := cfg.SearchSettings()
	assert.Equal(t, 7, searchCfg.Generations)
	assert.Equal(t, 12.5, searchCfg.MinScore)
	assert.Equal(t, int64(42), searchCfg.Seed)
	assert.Equal(t, cfg.Parameters(), searchCfg.Base)
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "grid",
		Password: "secret",
		Database: "candles",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5433 user=grid password=secret dbname=candles sslmode=require",
		db.GetDSN())
}
