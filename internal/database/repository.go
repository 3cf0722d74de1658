package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"futures-trading-engine/internal/errs"
)

// Repository is the persistence surface the engine and API depend on
type Repository struct {
	db *DB
}

// NewRepository creates a repository over the migrated database
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

const settingsColumns = `id, api_key, secret_key, testnet, trading_pairs,
	auto_trading_enabled, ai_trading_enabled, advanced_strategies_enabled,
	trailing_stop_enabled, smart_position_sizing, market_condition_filter,
	account_protection_enabled, multi_timeframe_enabled, diversification_enabled,
	hedging_enabled, max_risk_per_trade, risk_reward_ratio, min_signal_strength,
	ma_short_period, ma_long_period, rsi_period, rsi_overbought, rsi_oversold,
	macd_fast, macd_slow, macd_signal, trailing_stop_percent,
	trailing_stop_activation_percent, ai_min_confidence, ai_min_signal_strength,
	ai_required_signals, enabled_strategies, require_strategy_consensus,
	strategy_min_confidence, strategy_min_strength, volume_multiplier,
	swing_period, atr_period, atr_multiplier, volatility_adjustment,
	max_position_percent, min_position_percent, max_volatility_percent,
	min_trend_strength, avoid_ranging_market, trend_filter_enabled,
	max_daily_loss_percent, max_concurrent_trades, max_daily_trades,
	pause_after_consecutive_losses, trade_cooldown_minutes, timeframes,
	created_at, updated_at`

func scanSettings(row pgx.Row) (*Settings, error) {
	var s Settings
	err := row.Scan(
		&s.ID, &s.APIKey, &s.SecretKey, &s.Testnet, &s.TradingPairs,
		&s.AutoTradingEnabled, &s.AITradingEnabled, &s.AdvancedStrategiesEnabled,
		&s.TrailingStopEnabled, &s.SmartPositionSizing, &s.MarketConditionFilter,
		&s.AccountProtectionEnabled, &s.MultiTimeframeEnabled, &s.DiversificationEnabled,
		&s.HedgingEnabled, &s.MaxRiskPerTrade, &s.RiskRewardRatio, &s.MinSignalStrength,
		&s.MAShortPeriod, &s.MALongPeriod, &s.RSIPeriod, &s.RSIOverbought, &s.RSIOversold,
		&s.MACDFast, &s.MACDSlow, &s.MACDSignal, &s.TrailingStopPercent,
		&s.TrailingStopActivationPercent, &s.AIMinConfidence, &s.AIMinSignalStrength,
		&s.AIRequiredSignals, &s.EnabledStrategies, &s.RequireStrategyConsensus,
		&s.StrategyMinConfidence, &s.StrategyMinStrength, &s.VolumeMultiplier,
		&s.SwingPeriod, &s.ATRPeriod, &s.ATRMultiplier, &s.VolatilityAdjustment,
		&s.MaxPositionPercent, &s.MinPositionPercent, &s.MaxVolatilityPercent,
		&s.MinTrendStrength, &s.AvoidRangingMarket, &s.TrendFilterEnabled,
		&s.MaxDailyLossPercent, &s.MaxConcurrentTrades, &s.MaxDailyTrades,
		&s.PauseAfterConsecutiveLosses, &s.TradeCooldownMinutes, &s.Timeframes,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSettings returns the active settings row, creating defaults on first run
func (r *Repository) GetSettings(ctx context.Context) (*Settings, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+settingsColumns+` FROM settings ORDER BY id LIMIT 1`)
	s, err := scanSettings(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.CreateSettings(ctx, DefaultSettings())
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateSettings inserts a settings row and returns it with assigned fields
func (r *Repository) CreateSettings(ctx context.Context, s *Settings) (*Settings, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	row := r.db.Pool.QueryRow(ctx, `INSERT INTO settings (
		api_key, secret_key, testnet, trading_pairs,
		auto_trading_enabled, ai_trading_enabled, advanced_strategies_enabled,
		trailing_stop_enabled, smart_position_sizing, market_condition_filter,
		account_protection_enabled, multi_timeframe_enabled, diversification_enabled,
		hedging_enabled, max_risk_per_trade, risk_reward_ratio, min_signal_strength,
		ma_short_period, ma_long_period, rsi_period, rsi_overbought, rsi_oversold,
		macd_fast, macd_slow, macd_signal, trailing_stop_percent,
		trailing_stop_activation_percent, ai_min_confidence, ai_min_signal_strength,
		ai_required_signals, enabled_strategies, require_strategy_consensus,
		strategy_min_confidence, strategy_min_strength, volume_multiplier,
		swing_period, atr_period, atr_multiplier, volatility_adjustment,
		max_position_percent, min_position_percent, max_volatility_percent,
		min_trend_strength, avoid_ranging_market, trend_filter_enabled,
		max_daily_loss_percent, max_concurrent_trades, max_daily_trades,
		pause_after_consecutive_losses, trade_cooldown_minutes, timeframes
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
		$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,$35,$36,$37,$38,
		$39,$40,$41,$42,$43,$44,$45,$46,$47,$48,$49,$50,$51
	) RETURNING `+settingsColumns,
		s.APIKey, s.SecretKey, s.Testnet, s.TradingPairs,
		s.AutoTradingEnabled, s.AITradingEnabled, s.AdvancedStrategiesEnabled,
		s.TrailingStopEnabled, s.SmartPositionSizing, s.MarketConditionFilter,
		s.AccountProtectionEnabled, s.MultiTimeframeEnabled, s.DiversificationEnabled,
		s.HedgingEnabled, s.MaxRiskPerTrade, s.RiskRewardRatio, s.MinSignalStrength,
		s.MAShortPeriod, s.MALongPeriod, s.RSIPeriod, s.RSIOverbought, s.RSIOversold,
		s.MACDFast, s.MACDSlow, s.MACDSignal, s.TrailingStopPercent,
		s.TrailingStopActivationPercent, s.AIMinConfidence, s.AIMinSignalStrength,
		s.AIRequiredSignals, s.EnabledStrategies, s.RequireStrategyConsensus,
		s.StrategyMinConfidence, s.StrategyMinStrength, s.VolumeMultiplier,
		s.SwingPeriod, s.ATRPeriod, s.ATRMultiplier, s.VolatilityAdjustment,
		s.MaxPositionPercent, s.MinPositionPercent, s.MaxVolatilityPercent,
		s.MinTrendStrength, s.AvoidRangingMarket, s.TrendFilterEnabled,
		s.MaxDailyLossPercent, s.MaxConcurrentTrades, s.MaxDailyTrades,
		s.PauseAfterConsecutiveLosses, s.TradeCooldownMinutes, s.Timeframes,
	)
	return scanSettings(row)
}

// UpdateSettings replaces the mutable fields of the active settings row
func (r *Repository) UpdateSettings(ctx context.Context, s *Settings) (*Settings, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	row := r.db.Pool.QueryRow(ctx, `UPDATE settings SET
		api_key=$2, secret_key=$3, testnet=$4, trading_pairs=$5,
		auto_trading_enabled=$6, ai_trading_enabled=$7, advanced_strategies_enabled=$8,
		trailing_stop_enabled=$9, smart_position_sizing=$10, market_condition_filter=$11,
		account_protection_enabled=$12, multi_timeframe_enabled=$13, diversification_enabled=$14,
		hedging_enabled=$15, max_risk_per_trade=$16, risk_reward_ratio=$17, min_signal_strength=$18,
		ma_short_period=$19, ma_long_period=$20, rsi_period=$21, rsi_overbought=$22, rsi_oversold=$23,
		macd_fast=$24, macd_slow=$25, macd_signal=$26, trailing_stop_percent=$27,
		trailing_stop_activation_percent=$28, ai_min_confidence=$29, ai_min_signal_strength=$30,
		ai_required_signals=$31, enabled_strategies=$32, require_strategy_consensus=$33,
		strategy_min_confidence=$34, strategy_min_strength=$35, volume_multiplier=$36,
		swing_period=$37, atr_period=$38, atr_multiplier=$39, volatility_adjustment=$40,
		max_position_percent=$41, min_position_percent=$42, max_volatility_percent=$43,
		min_trend_strength=$44, avoid_ranging_market=$45, trend_filter_enabled=$46,
		max_daily_loss_percent=$47, max_concurrent_trades=$48, max_daily_trades=$49,
		pause_after_consecutive_losses=$50, trade_cooldown_minutes=$51, timeframes=$52,
		updated_at=NOW()
	WHERE id=$1 RETURNING `+settingsColumns,
		s.ID, s.APIKey, s.SecretKey, s.Testnet, s.TradingPairs,
		s.AutoTradingEnabled, s.AITradingEnabled, s.AdvancedStrategiesEnabled,
		s.TrailingStopEnabled, s.SmartPositionSizing, s.MarketConditionFilter,
		s.AccountProtectionEnabled, s.MultiTimeframeEnabled, s.DiversificationEnabled,
		s.HedgingEnabled, s.MaxRiskPerTrade, s.RiskRewardRatio, s.MinSignalStrength,
		s.MAShortPeriod, s.MALongPeriod, s.RSIPeriod, s.RSIOverbought, s.RSIOversold,
		s.MACDFast, s.MACDSlow, s.MACDSignal, s.TrailingStopPercent,
		s.TrailingStopActivationPercent, s.AIMinConfidence, s.AIMinSignalStrength,
		s.AIRequiredSignals, s.EnabledStrategies, s.RequireStrategyConsensus,
		s.StrategyMinConfidence, s.StrategyMinStrength, s.VolumeMultiplier,
		s.SwingPeriod, s.ATRPeriod, s.ATRMultiplier, s.VolatilityAdjustment,
		s.MaxPositionPercent, s.MinPositionPercent, s.MaxVolatilityPercent,
		s.MinTrendStrength, s.AvoidRangingMarket, s.TrendFilterEnabled,
		s.MaxDailyLossPercent, s.MaxConcurrentTrades, s.MaxDailyTrades,
		s.PauseAfterConsecutiveLosses, s.TradeCooldownMinutes, s.Timeframes,
	)
	return scanSettings(row)
}

const tradeColumns = `id, symbol, direction, status, entry_price, exit_price,
	quantity, leverage, stop_loss, take_profit, profit, profit_percent,
	entry_time, exit_time, entry_signals, exchange_order_id,
	trailing_stop_active, trailing_stop_price, highest_price, is_auto_trade,
	created_at, updated_at`

func scanTrade(row pgx.Row) (*Trade, error) {
	var t Trade
	err := row.Scan(
		&t.ID, &t.Symbol, &t.Direction, &t.Status, &t.EntryPrice, &t.ExitPrice,
		&t.Quantity, &t.Leverage, &t.StopLoss, &t.TakeProfit, &t.Profit, &t.ProfitPercent,
		&t.EntryTime, &t.ExitTime, &t.EntrySignals, &t.ExchangeOrderID,
		&t.TrailingStopActive, &t.TrailingStopPrice, &t.HighestPrice, &t.IsAutoTrade,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) queryTrades(ctx context.Context, query string, args ...interface{}) ([]*Trade, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// GetTrades lists trades, optionally filtered by status
func (r *Repository) GetTrades(ctx context.Context, status string) ([]*Trade, error) {
	if status == "" {
		return r.queryTrades(ctx,
			`SELECT `+tradeColumns+` FROM trades ORDER BY entry_time DESC`)
	}
	return r.queryTrades(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE status=$1 ORDER BY entry_time DESC`, status)
}

// GetActiveTrades lists trades with active status
func (r *Repository) GetActiveTrades(ctx context.Context) ([]*Trade, error) {
	return r.GetTrades(ctx, TradeStatusActive)
}

// GetTradeByID fetches one trade
func (r *Repository) GetTradeByID(ctx context.Context, id int) (*Trade, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE id=$1`, id)
	t, err := scanTrade(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "trade %d not found", id)
	}
	return t, err
}

// CreateTrade inserts a trade row and returns it with the assigned id
func (r *Repository) CreateTrade(ctx context.Context, t *Trade) (*Trade, error) {
	row := r.db.Pool.QueryRow(ctx, `INSERT INTO trades (
		symbol, direction, status, entry_price, quantity, leverage,
		stop_loss, take_profit, entry_time, entry_signals, exchange_order_id,
		trailing_stop_active, trailing_stop_price, highest_price, is_auto_trade
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	RETURNING `+tradeColumns,
		t.Symbol, t.Direction, t.Status, t.EntryPrice, t.Quantity, t.Leverage,
		t.StopLoss, t.TakeProfit, t.EntryTime, t.EntrySignals, t.ExchangeOrderID,
		t.TrailingStopActive, t.TrailingStopPrice, t.HighestPrice, t.IsAutoTrade,
	)
	return scanTrade(row)
}

// UpdateTrade rewrites the mutable trade fields
func (r *Repository) UpdateTrade(ctx context.Context, t *Trade) (*Trade, error) {
	row := r.db.Pool.QueryRow(ctx, `UPDATE trades SET
		status=$2, stop_loss=$3, take_profit=$4, profit=$5, profit_percent=$6,
		trailing_stop_active=$7, trailing_stop_price=$8, highest_price=$9,
		updated_at=NOW()
	WHERE id=$1 RETURNING `+tradeColumns,
		t.ID, t.Status, t.StopLoss, t.TakeProfit, t.Profit, t.ProfitPercent,
		t.TrailingStopActive, t.TrailingStopPrice, t.HighestPrice,
	)
	updated, err := scanTrade(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "trade %d not found", t.ID)
	}
	return updated, err
}

// UpdateTradeTrailingStop persists a trailing-stop advance in one statement
func (r *Repository) UpdateTradeTrailingStop(ctx context.Context, id int,
	stopLoss, highestProfit float64, trailingStopPrice float64) error {

	tag, err := r.db.Pool.Exec(ctx, `UPDATE trades SET
		stop_loss=$2, highest_price=$3, trailing_stop_price=$4,
		trailing_stop_active=TRUE, updated_at=NOW()
	WHERE id=$1`, id, stopLoss, highestProfit, trailingStopPrice)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.New(errs.NotFound, "trade %d not found", id)
	}
	return nil
}

// CloseTrade marks a trade closed with its exit fill and realized P/L
func (r *Repository) CloseTrade(ctx context.Context, id int,
	exitPrice, profit, profitPercent float64) (*Trade, error) {

	row := r.db.Pool.QueryRow(ctx, `UPDATE trades SET
		status=$2, exit_price=$3, profit=$4, profit_percent=$5,
		exit_time=NOW(), updated_at=NOW()
	WHERE id=$1 RETURNING `+tradeColumns,
		id, TradeStatusClosed, exitPrice, profit, profitPercent,
	)
	t, err := scanTrade(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "trade %d not found", id)
	}
	return t, err
}

// CloseAllTrades marks every active trade closed at the given prices.
// prices maps symbol to exit price; missing symbols close at entry.
func (r *Repository) CloseAllTrades(ctx context.Context, prices map[string]float64) (int, error) {
	active, err := r.GetActiveTrades(ctx)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, t := range active {
		exit, ok := prices[t.Symbol]
		if !ok {
			exit = t.EntryPrice
		}
		profit := (exit - t.EntryPrice) * t.Quantity
		if !t.IsLong() {
			profit = -profit
		}
		profitPercent := 0.0
		if t.EntryPrice > 0 {
			profitPercent = (exit - t.EntryPrice) / t.EntryPrice * 100 * float64(t.Leverage)
			if !t.IsLong() {
				profitPercent = -profitPercent
			}
		}
		if _, err := r.CloseTrade(ctx, t.ID, exit, profit, profitPercent); err != nil {
			return closed, err
		}
		closed++
	}
	return closed, nil
}

// GetTradeHistory lists the most recent closed trades
func (r *Repository) GetTradeHistory(ctx context.Context, limit int) ([]*Trade, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.queryTrades(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE status=$1
		 ORDER BY exit_time DESC NULLS LAST LIMIT $2`, TradeStatusClosed, limit)
}

// GetTradesInDateRange lists trades entered inside [from, to)
func (r *Repository) GetTradesInDateRange(ctx context.Context, from, to time.Time) ([]*Trade, error) {
	return r.queryTrades(ctx,
		`SELECT `+tradeColumns+` FROM trades
		 WHERE entry_time >= $1 AND entry_time < $2 ORDER BY entry_time DESC`, from, to)
}

// CreateSignal appends an immutable analyzer audit row
func (r *Repository) CreateSignal(ctx context.Context, s *Signal) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO signals (symbol, type, indicator, value, strength)
		 VALUES ($1,$2,$3,$4,$5)`,
		s.Symbol, s.Type, s.Indicator, s.Value, s.Strength)
	return err
}

// CreateLog appends an activity-log entry
func (r *Repository) CreateLog(ctx context.Context, level, message, details string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO activity_logs (level, message, details) VALUES ($1,$2,$3)`,
		level, message, details)
	return err
}

// GetLogs lists the most recent activity-log entries
func (r *Repository) GetLogs(ctx context.Context, limit int) ([]*ActivityLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, level, message, details, created_at FROM activity_logs
		 ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*ActivityLog
	for rows.Next() {
		var l ActivityLog
		if err := rows.Scan(&l.ID, &l.Level, &l.Message, &l.Details, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
