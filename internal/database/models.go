package database

import (
	"time"

	"futures-trading-engine/internal/errs"
)

// Trade status values
const (
	TradeStatusActive    = "active"
	TradeStatusClosed    = "closed"
	TradeStatusPending   = "pending"
	TradeStatusCancelled = "cancelled"
)

// Trade direction values
const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// Settings is the single runtime configuration record. Exactly one row is
// active per process; the operator mutates it through the API and every
// mutation is re-pushed to the engine.
type Settings struct {
	ID        int       `json:"id"`
	APIKey    string    `json:"apiKey"`
	SecretKey string    `json:"-"`
	Testnet   bool      `json:"testnet"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	TradingPairs []string `json:"tradingPairs"`

	AutoTradingEnabled        bool `json:"autoTradingEnabled"`
	AITradingEnabled          bool `json:"aiTradingEnabled"`
	AdvancedStrategiesEnabled bool `json:"advancedStrategiesEnabled"`
	TrailingStopEnabled       bool `json:"trailingStopEnabled"`
	SmartPositionSizing       bool `json:"smartPositionSizing"`
	MarketConditionFilter     bool `json:"marketConditionFilter"`
	AccountProtectionEnabled  bool `json:"accountProtectionEnabled"`
	MultiTimeframeEnabled     bool `json:"multiTimeframeEnabled"`
	DiversificationEnabled    bool `json:"diversificationEnabled"`
	HedgingEnabled            bool `json:"hedgingEnabled"`

	MaxRiskPerTrade   float64 `json:"maxRiskPerTrade"`
	RiskRewardRatio   float64 `json:"riskRewardRatio"`
	MinSignalStrength float64 `json:"minSignalStrength"`

	MAShortPeriod int     `json:"maShortPeriod"`
	MALongPeriod  int     `json:"maLongPeriod"`
	RSIPeriod     int     `json:"rsiPeriod"`
	RSIOverbought float64 `json:"rsiOverbought"`
	RSIOversold   float64 `json:"rsiOversold"`
	MACDFast      int     `json:"macdFast"`
	MACDSlow      int     `json:"macdSlow"`
	MACDSignal    int     `json:"macdSignal"`

	TrailingStopPercent           float64 `json:"trailingStopPercent"`
	TrailingStopActivationPercent float64 `json:"trailingStopActivationPercent"`

	AIMinConfidence     float64 `json:"aiMinConfidence"`
	AIMinSignalStrength float64 `json:"aiMinSignalStrength"`
	AIRequiredSignals   int     `json:"aiRequiredSignals"`

	EnabledStrategies        []string `json:"enabledStrategies"`
	RequireStrategyConsensus bool     `json:"requireStrategyConsensus"`
	StrategyMinConfidence    float64  `json:"strategyMinConfidence"`
	StrategyMinStrength      float64  `json:"strategyMinStrength"`
	VolumeMultiplier         float64  `json:"volumeMultiplier"`
	SwingPeriod              int      `json:"swingPeriod"`

	ATRPeriod            int     `json:"atrPeriod"`
	ATRMultiplier        float64 `json:"atrMultiplier"`
	VolatilityAdjustment bool    `json:"volatilityAdjustment"`
	MaxPositionPercent   float64 `json:"maxPositionPercent"`
	MinPositionPercent   float64 `json:"minPositionPercent"`

	MaxVolatilityPercent float64 `json:"maxVolatilityPercent"`
	MinTrendStrength     float64 `json:"minTrendStrength"`
	AvoidRangingMarket   bool    `json:"avoidRangingMarket"`
	TrendFilterEnabled   bool    `json:"trendFilterEnabled"`

	MaxDailyLossPercent         float64 `json:"maxDailyLossPercent"`
	MaxConcurrentTrades         int     `json:"maxConcurrentTrades"`
	MaxDailyTrades              int     `json:"maxDailyTrades"`
	PauseAfterConsecutiveLosses int     `json:"pauseAfterConsecutiveLosses"`
	TradeCooldownMinutes        int     `json:"tradeCooldownMinutes"`

	Timeframes []string `json:"timeframes"`
}

// DefaultSettings returns the settings row created on first run
func DefaultSettings() *Settings {
	return &Settings{
		Testnet:      true,
		TradingPairs: []string{"BTCUSDT", "ETHUSDT", "BNBUSDT"},

		AutoTradingEnabled:        false,
		AITradingEnabled:          false,
		AdvancedStrategiesEnabled: false,
		TrailingStopEnabled:       true,
		SmartPositionSizing:       true,
		MarketConditionFilter:     true,
		AccountProtectionEnabled:  true,
		MultiTimeframeEnabled:     false,
		DiversificationEnabled:    true,
		HedgingEnabled:            false,

		MaxRiskPerTrade:   2.0,
		RiskRewardRatio:   2.0,
		MinSignalStrength: 50,

		MAShortPeriod: 20,
		MALongPeriod:  50,
		RSIPeriod:     14,
		RSIOverbought: 70,
		RSIOversold:   30,
		MACDFast:      12,
		MACDSlow:      26,
		MACDSignal:    9,

		TrailingStopPercent:           2.0,
		TrailingStopActivationPercent: 1.0,

		AIMinConfidence:     60,
		AIMinSignalStrength: 50,
		AIRequiredSignals:   2,

		EnabledStrategies:        []string{"breakout", "momentum", "meanReversion"},
		RequireStrategyConsensus: false,
		StrategyMinConfidence:    60,
		StrategyMinStrength:      50,
		VolumeMultiplier:         1.5,
		SwingPeriod:              10,

		ATRPeriod:            14,
		ATRMultiplier:        1.5,
		VolatilityAdjustment: true,
		MaxPositionPercent:   20,
		MinPositionPercent:   1,

		MaxVolatilityPercent: 8,
		MinTrendStrength:     25,
		AvoidRangingMarket:   true,
		TrendFilterEnabled:   true,

		MaxDailyLossPercent:         5,
		MaxConcurrentTrades:         3,
		MaxDailyTrades:              10,
		PauseAfterConsecutiveLosses: 3,
		TradeCooldownMinutes:        30,

		Timeframes: []string{"15m", "1h", "4h"},
	}
}

var validStrategies = map[string]bool{
	"breakout": true, "scalping": true, "momentum": true,
	"meanReversion": true, "swing": true, "gridTrading": true,
}

var validTimeframes = map[string]bool{
	"1m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "4h": true, "1d": true,
}

type boundCheck struct {
	name     string
	value    float64
	min, max float64
}

// Validate enforces the documented numeric bounds and enumerations
func (s *Settings) Validate() error {
	checks := []boundCheck{
		{"maxRiskPerTrade", s.MaxRiskPerTrade, 0.5, 10},
		{"riskRewardRatio", s.RiskRewardRatio, 1, 5},
		{"maShortPeriod", float64(s.MAShortPeriod), 5, 100},
		{"maLongPeriod", float64(s.MALongPeriod), 50, 500},
		{"rsiPeriod", float64(s.RSIPeriod), 7, 28},
		{"rsiOverbought", s.RSIOverbought, 60, 90},
		{"rsiOversold", s.RSIOversold, 10, 40},
		{"macdFast", float64(s.MACDFast), 5, 20},
		{"macdSlow", float64(s.MACDSlow), 20, 50},
		{"macdSignal", float64(s.MACDSignal), 5, 15},
		{"trailingStopPercent", s.TrailingStopPercent, 0.1, 10},
		{"aiMinConfidence", s.AIMinConfidence, 30, 95},
		{"aiMinSignalStrength", s.AIMinSignalStrength, 20, 90},
		{"aiRequiredSignals", float64(s.AIRequiredSignals), 1, 5},
		{"strategyMinConfidence", s.StrategyMinConfidence, 30, 95},
		{"strategyMinStrength", s.StrategyMinStrength, 20, 90},
		{"atrPeriod", float64(s.ATRPeriod), 7, 50},
		{"atrMultiplier", s.ATRMultiplier, 0.5, 5},
		{"maxPositionPercent", s.MaxPositionPercent, 5, 50},
		{"minPositionPercent", s.MinPositionPercent, 0.5, 10},
		{"maxVolatilityPercent", s.MaxVolatilityPercent, 2, 15},
		{"minTrendStrength", s.MinTrendStrength, 10, 80},
		{"maxDailyLossPercent", s.MaxDailyLossPercent, 1, 20},
		{"maxConcurrentTrades", float64(s.MaxConcurrentTrades), 1, 10},
		{"pauseAfterConsecutiveLosses", float64(s.PauseAfterConsecutiveLosses), 2, 10},
	}

	for _, c := range checks {
		if c.value < c.min || c.value > c.max {
			return errs.New(errs.ValidationFailed,
				"%s must be between %g and %g, got %g", c.name, c.min, c.max, c.value)
		}
	}

	if s.MALongPeriod <= s.MAShortPeriod {
		return errs.New(errs.ValidationFailed,
			"maLongPeriod (%d) must exceed maShortPeriod (%d)", s.MALongPeriod, s.MAShortPeriod)
	}
	if s.MACDSlow <= s.MACDFast {
		return errs.New(errs.ValidationFailed,
			"macdSlow (%d) must exceed macdFast (%d)", s.MACDSlow, s.MACDFast)
	}

	for _, name := range s.EnabledStrategies {
		if !validStrategies[name] {
			return errs.New(errs.ValidationFailed, "unknown strategy %q", name)
		}
	}
	for _, tf := range s.Timeframes {
		if !validTimeframes[tf] {
			return errs.New(errs.ValidationFailed, "unknown timeframe %q", tf)
		}
	}

	return nil
}

// Trade is a single engine or adopted position. HighestPrice historically
// held a raw price but now stores the highest profit percent seen; values
// above 50 are treated as legacy prices and reset on read.
type Trade struct {
	ID                 int        `json:"id"`
	Symbol             string     `json:"symbol"`
	Direction          string     `json:"direction"`
	Status             string     `json:"status"`
	EntryPrice         float64    `json:"entryPrice"`
	ExitPrice          *float64   `json:"exitPrice,omitempty"`
	Quantity           float64    `json:"quantity"`
	Leverage           int        `json:"leverage"`
	StopLoss           float64    `json:"stopLoss"`
	TakeProfit         float64    `json:"takeProfit"`
	Profit             *float64   `json:"profit,omitempty"`
	ProfitPercent      *float64   `json:"profitPercent,omitempty"`
	EntryTime          time.Time  `json:"entryTime"`
	ExitTime           *time.Time `json:"exitTime,omitempty"`
	EntrySignals       []string   `json:"entrySignals"`
	ExchangeOrderID    *string    `json:"exchangeOrderId,omitempty"`
	TrailingStopActive bool       `json:"trailingStopActive"`
	TrailingStopPrice  *float64   `json:"trailingStopPrice,omitempty"`
	HighestPrice       float64    `json:"highestPrice"`
	IsAutoTrade        bool       `json:"isAutoTrade"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// IsLong reports whether the trade direction is long
func (t *Trade) IsLong() bool { return t.Direction == DirectionLong }

// Signal is an immutable audit row written on analyzer decisions
type Signal struct {
	ID        int       `json:"id"`
	Symbol    string    `json:"symbol"`
	Type      string    `json:"type"`
	Indicator string    `json:"indicator"`
	Value     float64   `json:"value"`
	Strength  float64   `json:"strength"`
	CreatedAt time.Time `json:"createdAt"`
}

// ActivityLog levels
const (
	LogLevelInfo    = "info"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
	LogLevelSuccess = "success"
)

// ActivityLog is an append-only operator-visible event record
type ActivityLog struct {
	ID        int       `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
