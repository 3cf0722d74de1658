package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"futures-trading-engine/internal/logging"
)

// DB wraps the connection pool and owns schema migration
type DB struct {
	Pool *pgxpool.Pool
	log  *logging.Logger
}

// ConnString builds a pgx connection string
func ConnString(host string, port int, user, password, dbname, sslmode string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		user, password, host, port, dbname, sslmode)
}

// New connects to PostgreSQL and applies migrations
func New(ctx context.Context, connString string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db := &DB{Pool: pool, log: logging.WithComponent("database")}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	db.log.Info("database ready")
	return db, nil
}

// Close releases the connection pool
func (db *DB) Close() {
	db.Pool.Close()
}

func (db *DB) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			id SERIAL PRIMARY KEY,
			api_key TEXT NOT NULL DEFAULT '',
			secret_key TEXT NOT NULL DEFAULT '',
			testnet BOOLEAN NOT NULL DEFAULT TRUE,
			trading_pairs TEXT[] NOT NULL DEFAULT '{}',
			auto_trading_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			ai_trading_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			advanced_strategies_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			trailing_stop_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			smart_position_sizing BOOLEAN NOT NULL DEFAULT TRUE,
			market_condition_filter BOOLEAN NOT NULL DEFAULT TRUE,
			account_protection_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			multi_timeframe_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			diversification_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			hedging_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			max_risk_per_trade DOUBLE PRECISION NOT NULL DEFAULT 2,
			risk_reward_ratio DOUBLE PRECISION NOT NULL DEFAULT 2,
			min_signal_strength DOUBLE PRECISION NOT NULL DEFAULT 50,
			ma_short_period INTEGER NOT NULL DEFAULT 20,
			ma_long_period INTEGER NOT NULL DEFAULT 50,
			rsi_period INTEGER NOT NULL DEFAULT 14,
			rsi_overbought DOUBLE PRECISION NOT NULL DEFAULT 70,
			rsi_oversold DOUBLE PRECISION NOT NULL DEFAULT 30,
			macd_fast INTEGER NOT NULL DEFAULT 12,
			macd_slow INTEGER NOT NULL DEFAULT 26,
			macd_signal INTEGER NOT NULL DEFAULT 9,
			trailing_stop_percent DOUBLE PRECISION NOT NULL DEFAULT 2,
			trailing_stop_activation_percent DOUBLE PRECISION NOT NULL DEFAULT 1,
			ai_min_confidence DOUBLE PRECISION NOT NULL DEFAULT 60,
			ai_min_signal_strength DOUBLE PRECISION NOT NULL DEFAULT 50,
			ai_required_signals INTEGER NOT NULL DEFAULT 2,
			enabled_strategies TEXT[] NOT NULL DEFAULT '{}',
			require_strategy_consensus BOOLEAN NOT NULL DEFAULT FALSE,
			strategy_min_confidence DOUBLE PRECISION NOT NULL DEFAULT 60,
			strategy_min_strength DOUBLE PRECISION NOT NULL DEFAULT 50,
			volume_multiplier DOUBLE PRECISION NOT NULL DEFAULT 1.5,
			swing_period INTEGER NOT NULL DEFAULT 10,
			atr_period INTEGER NOT NULL DEFAULT 14,
			atr_multiplier DOUBLE PRECISION NOT NULL DEFAULT 1.5,
			volatility_adjustment BOOLEAN NOT NULL DEFAULT TRUE,
			max_position_percent DOUBLE PRECISION NOT NULL DEFAULT 20,
			min_position_percent DOUBLE PRECISION NOT NULL DEFAULT 1,
			max_volatility_percent DOUBLE PRECISION NOT NULL DEFAULT 8,
			min_trend_strength DOUBLE PRECISION NOT NULL DEFAULT 25,
			avoid_ranging_market BOOLEAN NOT NULL DEFAULT TRUE,
			trend_filter_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			max_daily_loss_percent DOUBLE PRECISION NOT NULL DEFAULT 5,
			max_concurrent_trades INTEGER NOT NULL DEFAULT 3,
			max_daily_trades INTEGER NOT NULL DEFAULT 10,
			pause_after_consecutive_losses INTEGER NOT NULL DEFAULT 3,
			trade_cooldown_minutes INTEGER NOT NULL DEFAULT 30,
			timeframes TEXT[] NOT NULL DEFAULT '{15m,1h,4h}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id SERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			direction TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			entry_price DOUBLE PRECISION NOT NULL,
			exit_price DOUBLE PRECISION,
			quantity DOUBLE PRECISION NOT NULL,
			leverage INTEGER NOT NULL DEFAULT 10,
			stop_loss DOUBLE PRECISION NOT NULL DEFAULT 0,
			take_profit DOUBLE PRECISION NOT NULL DEFAULT 0,
			profit DOUBLE PRECISION,
			profit_percent DOUBLE PRECISION,
			entry_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			exit_time TIMESTAMPTZ,
			entry_signals TEXT[] NOT NULL DEFAULT '{}',
			exchange_order_id TEXT,
			trailing_stop_active BOOLEAN NOT NULL DEFAULT FALSE,
			trailing_stop_price DOUBLE PRECISION,
			highest_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			is_auto_trade BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_entry_time ON trades(entry_time)`,
		`CREATE TABLE IF NOT EXISTS signals (
			id SERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			type TEXT NOT NULL,
			indicator TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL DEFAULT 0,
			strength DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS activity_logs (
			id SERIAL PRIMARY KEY,
			level TEXT NOT NULL DEFAULT 'info',
			message TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_logs_created_at ON activity_logs(created_at DESC)`,
	}

	for i, stmt := range migrations {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
