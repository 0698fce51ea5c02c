// Package config loads application configuration from YAML files and
// environment variables and wires it into the simulation and search layers.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/gridlabs/gridopt/pkg/gridsim"
	"github.com/gridlabs/gridopt/pkg/optimize"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Search     SearchConfig     `mapstructure:"search"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"` // "json" or "console"
}

// DatabaseConfig contains PostgreSQL settings for the candle store
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// SimulationConfig contains the base grid parameters
type SimulationConfig struct {
	GridRangePct   float64 `mapstructure:"grid_range_pct"`
	GridStepPct    float64 `mapstructure:"grid_step_pct"`
	StopLossPct    float64 `mapstructure:"stop_loss_pct"`
	FeeRatePct     float64 `mapstructure:"fee_rate_pct"`
	InitialBalance float64 `mapstructure:"initial_balance"`
	MaxDrawdownPct float64 `mapstructure:"max_drawdown_pct"`
	EquityStride   int     `mapstructure:"equity_stride"`
}

// SearchConfig contains optimizer settings
type SearchConfig struct {
	PopulationSize   int                  `mapstructure:"population_size"`
	Generations      int                  `mapstructure:"generations"`
	MutationRate     float64              `mapstructure:"mutation_rate"`
	EliteFraction    float64              `mapstructure:"elite_fraction"`
	Patience         int                  `mapstructure:"patience"`
	Rounds           int                  `mapstructure:"rounds"`
	PointsPerRound   int                  `mapstructure:"points_per_round"`
	BacktestFraction float64              `mapstructure:"backtest_fraction"`
	Workers          int                  `mapstructure:"workers"`
	Weights          optimize.ScoreWeights `mapstructure:"weights"`
	MinScore         float64              `mapstructure:"min_score"`
	Seed             int64                `mapstructure:"seed"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("GRIDOPT")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gridopt")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "console")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "gridopt")
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("simulation.grid_range_pct", 20.0)
	v.SetDefault("simulation.grid_step_pct", 1.0)
	v.SetDefault("simulation.stop_loss_pct", 5.0)
	v.SetDefault("simulation.fee_rate_pct", 0.1)
	v.SetDefault("simulation.initial_balance", 10000.0)
	v.SetDefault("simulation.max_drawdown_pct", 0.0)
	v.SetDefault("simulation.equity_stride", 1)

	v.SetDefault("search.population_size", optimize.DefaultPopulationSize)
	v.SetDefault("search.generations", optimize.DefaultGenerations)
	v.SetDefault("search.mutation_rate", optimize.DefaultMutationRate)
	v.SetDefault("search.elite_fraction", optimize.DefaultEliteFraction)
	v.SetDefault("search.patience", 0)
	v.SetDefault("search.rounds", optimize.DefaultRounds)
	v.SetDefault("search.points_per_round", optimize.DefaultPointsPerRound)
	v.SetDefault("search.backtest_fraction", optimize.DefaultBacktestSplit)
	v.SetDefault("search.workers", optimize.DefaultWorkers)
	v.SetDefault("search.weights.stability", 0.5)
	v.SetDefault("search.weights.drawdown", 0.2)
	v.SetDefault("search.weights.sharpe", 0.5)
	v.SetDefault("search.min_score", 0.0)
	v.SetDefault("search.seed", 0)
}

// Validate checks the loaded configuration for inconsistencies that would
// surface as confusing errors deeper in the run.
func (c *Config) Validate() error {
	if err := c.Parameters().Validate(); err != nil {
		return fmt.Errorf("simulation config: %w", err)
	}
	if c.Search.BacktestFraction <= 0 || c.Search.BacktestFraction >= 1 {
		return fmt.Errorf("search config: backtest fraction %f must be in (0, 1)", c.Search.BacktestFraction)
	}
	if c.Search.Workers < 1 {
		return fmt.Errorf("search config: workers %d must be at least 1", c.Search.Workers)
	}
	return nil
}

// Parameters builds the base simulation parameters from config.
func (c *Config) Parameters() gridsim.Parameters {
	return gridsim.Parameters{
		GridRangePct:   c.Simulation.GridRangePct,
		GridStepPct:    c.Simulation.GridStepPct,
		StopLossPct:    c.Simulation.StopLossPct,
		FeeRatePct:     c.Simulation.FeeRatePct,
		InitialBalance: c.Simulation.InitialBalance,
		MaxDrawdownPct: c.Simulation.MaxDrawdownPct,
		EquityStride:   c.Simulation.EquityStride,
	}
}

// SearchSettings builds the optimizer configuration from config.
func (c *Config) SearchSettings() optimize.SearchConfig {
	return optimize.SearchConfig{
		Base:             c.Parameters(),
		PopulationSize:   c.Search.PopulationSize,
		Generations:      c.Search.Generations,
		MutationRate:     c.Search.MutationRate,
		EliteFraction:    c.Search.EliteFraction,
		Patience:         c.Search.Patience,
		Rounds:           c.Search.Rounds,
		PointsPerRound:   c.Search.PointsPerRound,
		BacktestFraction: c.Search.BacktestFraction,
		Workers:          c.Search.Workers,
		Weights:          c.Search.Weights,
		MinScore:         c.Search.MinScore,
		Seed:             c.Search.Seed,
	}
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
