// Package candledb persists OHLCV candles in PostgreSQL so collected market
// data can be replayed into simulations without refetching.
package candledb

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/gridlabs/gridopt/pkg/gridsim"
)

// Store wraps the PostgreSQL connection pool behind the candle operations.
type Store struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS candles (
	symbol     TEXT        NOT NULL,
	timeframe  TEXT        NOT NULL,
	open_time  TIMESTAMPTZ NOT NULL,
	open       DOUBLE PRECISION NOT NULL,
	high       DOUBLE PRECISION NOT NULL,
	low        DOUBLE PRECISION NOT NULL,
	close      DOUBLE PRECISION NOT NULL,
	volume     DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (symbol, timeframe, open_time)
);
`

// Open connects to PostgreSQL, verifies connectivity and ensures the candle
// schema exists.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is not set")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure candle schema: %w", err)
	}

	log.Info().Msg("Candle store connected")

	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
		log.Info().Msg("Candle store closed")
	}
}

// Health checks database connectivity.
func (s *Store) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InsertCandles upserts candles for a symbol and timeframe in one batch.
// Re-inserting an open time overwrites the stored candle, so refreshed
// downloads win.
func (s *Store) InsertCandles(ctx context.Context, symbol, timeframe string, candles []gridsim.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range candles {
		batch.Queue(`
			INSERT INTO candles (symbol, timeframe, open_time, open, high, low, close, volume)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (symbol, timeframe, open_time)
			DO UPDATE SET open = EXCLUDED.open, high = EXCLUDED.high,
				low = EXCLUDED.low, close = EXCLUDED.close, volume = EXCLUDED.volume`,
			symbol, timeframe, c.OpenTime, c.Open, c.High, c.Low, c.Close, c.Volume)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range candles {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert candles for %s %s: %w", symbol, timeframe, err)
		}
	}

	log.Debug().
		Str("symbol", symbol).
		Str("timeframe", timeframe).
		Int("count", len(candles)).
		Msg("Candles stored")

	return nil
}

// LoadSeries reads the candles for a symbol and timeframe between from and
// to (inclusive), ordered by open time, as a validated series.
func (s *Store) LoadSeries(ctx context.Context, symbol, timeframe string, from, to time.Time) (*gridsim.Series, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT open_time, open, high, low, close, volume
		FROM candles
		WHERE symbol = $1 AND timeframe = $2 AND open_time BETWEEN $3 AND $4
		ORDER BY open_time`,
		symbol, timeframe, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles for %s %s: %w", symbol, timeframe, err)
	}
	defer rows.Close()

	var candles []gridsim.Candle
	for rows.Next() {
		var c gridsim.Candle
		if err := rows.Scan(&c.OpenTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle row: %w", err)
		}
		c.OpenTime = c.OpenTime.UTC()
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read candle rows: %w", err)
	}

	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles stored for %s %s in requested window", symbol, timeframe)
	}

	return gridsim.NewSeries(candles)
}

// Count returns the number of stored candles for a symbol and timeframe.
func (s *Store) Count(ctx context.Context, symbol, timeframe string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM candles WHERE symbol = $1 AND timeframe = $2`,
		symbol, timeframe).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count candles for %s %s: %w", symbol, timeframe, err)
	}
	return n, nil
}
