package risk

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"futures-trading-engine/internal/binance"
	"futures-trading-engine/internal/indicator"
	"futures-trading-engine/internal/logging"
)

// Market condition classifications
const (
	ConditionTrendingUp   = "trending_up"
	ConditionTrendingDown = "trending_down"
	ConditionRanging      = "ranging"
	ConditionVolatile     = "volatile"
	ConditionUnknown      = "unknown"
)

// Recommendations derived from the market-condition score
const (
	RecommendTrade   = "trade"
	RecommendCaution = "caution"
	RecommendAvoid   = "avoid"
)

// GateConfig carries the filter-related settings
type GateConfig struct {
	MaxVolatilityPercent float64
	MinTrendStrength     float64
	AvoidRangingMarket   bool
	TrendFilterEnabled   bool
}

// MarketAnalysis is the per-symbol condition verdict
type MarketAnalysis struct {
	Symbol         string   `json:"symbol"`
	Condition      string   `json:"condition"`
	ATRPercent     float64  `json:"atrPercent"`
	TrendStrength  float64  `json:"trendStrength"`
	Score          float64  `json:"score"`
	Recommendation string   `json:"recommendation"`
	Reasons        []string `json:"reasons,omitempty"`
}

// AnalyzeMarketCondition scores a symbol's tradability from volatility and
// trend structure. The score starts at 100 and penalties are subtracted.
func AnalyzeMarketCondition(symbol string, klines []binance.Kline, cfg GateConfig) MarketAnalysis {
	ma := MarketAnalysis{Symbol: symbol, Condition: ConditionUnknown, Score: 100}
	if len(klines) < 50 {
		ma.Recommendation = RecommendCaution
		ma.Reasons = append(ma.Reasons, "insufficient history")
		return ma
	}

	closes := indicator.Closes(klines)
	price := closes[len(closes)-1]
	atr := indicator.CalculateATR(klines, 14)
	if price > 0 {
		ma.ATRPercent = atr / price * 100
	}

	sma20 := indicator.CalculateSMA(closes, 20)
	sma50 := indicator.CalculateSMA(closes, 50)

	priceVsSMA20 := 0.0
	if sma20 > 0 {
		priceVsSMA20 = (price - sma20) / sma20 * 100
	}
	smaSpread := 0.0
	if sma50 > 0 {
		smaSpread = (sma20 - sma50) / sma50 * 100
	}

	// structural confirmation: 2-bar higher highs / lower lows in the
	// last 10 bars
	higherHighs, lowerLows := 0, 0
	n := len(klines)
	for i := n - 10; i < n; i++ {
		if i < 2 {
			continue
		}
		if klines[i].High > klines[i-2].High {
			higherHighs++
		}
		if klines[i].Low < klines[i-2].Low {
			lowerLows++
		}
	}

	structure := float64(higherHighs - lowerLows)
	ma.TrendStrength = math.Abs(priceVsSMA20)*3 + math.Abs(smaSpread)*3 + math.Abs(structure)*3

	extremeVol := ClassifyVolatility(ma.ATRPercent) == VolatilityExtreme
	switch {
	case extremeVol:
		ma.Condition = ConditionVolatile
	case priceVsSMA20 > 0 && smaSpread > 0 && structure > 0:
		ma.Condition = ConditionTrendingUp
	case priceVsSMA20 < 0 && smaSpread < 0 && structure < 0:
		ma.Condition = ConditionTrendingDown
	default:
		ma.Condition = ConditionRanging
	}

	if extremeVol {
		ma.Score -= 40
		ma.Reasons = append(ma.Reasons, "extreme volatility")
	}
	if ma.ATRPercent > cfg.MaxVolatilityPercent {
		ma.Score -= 30
		ma.Reasons = append(ma.Reasons, fmt.Sprintf("ATR %.2f%% above %.2f%% cap", ma.ATRPercent, cfg.MaxVolatilityPercent))
	}
	if ma.Condition == ConditionRanging && cfg.AvoidRangingMarket {
		ma.Score -= 25
		ma.Reasons = append(ma.Reasons, "ranging market")
	}
	if ma.TrendStrength < cfg.MinTrendStrength && cfg.TrendFilterEnabled {
		ma.Score -= 20
		ma.Reasons = append(ma.Reasons, fmt.Sprintf("trend strength %.1f below %.1f", ma.TrendStrength, cfg.MinTrendStrength))
	}

	switch {
	case ma.Score >= 70:
		ma.Recommendation = RecommendTrade
	case ma.Score >= 40:
		ma.Recommendation = RecommendCaution
	default:
		ma.Recommendation = RecommendAvoid
	}
	return ma
}

// ProtectionConfig carries the account-protection settings
type ProtectionConfig struct {
	MaxDailyLossPercent         float64
	MaxConcurrentTrades         int
	PauseAfterConsecutiveLosses int
}

// AccountStatus is the protection verdict for the current tick
type AccountStatus struct {
	CanTrade          bool     `json:"canTrade"`
	DailyPnL          float64  `json:"dailyPnL"`
	DailyPnLPercent   float64  `json:"dailyPnLPercent"`
	ConsecutiveLosses int      `json:"consecutiveLosses"`
	ActiveTrades      int      `json:"activeTrades"`
	Reasons           []string `json:"reasons,omitempty"`
}

// Clock abstracts time for day-rollover tests
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClock is the production clock
var RealClock Clock = realClock{}

// AccountProtection tracks day-scoped loss counters. Rollover compares local
// dates from the injected clock.
type AccountProtection struct {
	mu                sync.Mutex
	clock             Clock
	log               *logging.Logger
	dayAnchor         string
	dailyPnL          float64
	consecutiveLosses int
}

// NewAccountProtection creates the protection tracker
func NewAccountProtection(clock Clock) *AccountProtection {
	if clock == nil {
		clock = RealClock
	}
	ap := &AccountProtection{
		clock: clock,
		log:   logging.WithComponent("protection"),
	}
	ap.dayAnchor = localDate(clock.Now())
	return ap
}

func localDate(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

// rollDayLocked resets the day-scoped counters when the local date changed
func (ap *AccountProtection) rollDayLocked() {
	today := localDate(ap.clock.Now())
	if today == ap.dayAnchor {
		return
	}
	ap.log.Info("daily counters reset", "previous_day", ap.dayAnchor, "daily_pnl", ap.dailyPnL)
	ap.dayAnchor = today
	ap.dailyPnL = 0
}

// RollDay applies the local-date rollover; the engine calls this every tick
func (ap *AccountProtection) RollDay() {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	ap.rollDayLocked()
}

// RecordTradeResult is called exactly once per trade close
func (ap *AccountProtection) RecordTradeResult(profit float64) {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	ap.rollDayLocked()

	ap.dailyPnL += profit
	if profit < 0 {
		ap.consecutiveLosses++
	} else {
		ap.consecutiveLosses = 0
	}
}

// Status evaluates the protection rules against the live balance and active
// trade count.
func (ap *AccountProtection) Status(balance float64, activeTrades int, cfg ProtectionConfig) AccountStatus {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	ap.rollDayLocked()

	status := AccountStatus{
		CanTrade:          true,
		DailyPnL:          ap.dailyPnL,
		ConsecutiveLosses: ap.consecutiveLosses,
		ActiveTrades:      activeTrades,
	}
	if balance > 0 {
		status.DailyPnLPercent = ap.dailyPnL / balance * 100
	}

	if status.DailyPnLPercent < -cfg.MaxDailyLossPercent {
		status.CanTrade = false
		status.Reasons = append(status.Reasons,
			fmt.Sprintf("daily loss %.2f%% exceeds %.2f%% limit",
				-status.DailyPnLPercent, cfg.MaxDailyLossPercent))
	}
	if ap.consecutiveLosses >= cfg.PauseAfterConsecutiveLosses {
		status.CanTrade = false
		status.Reasons = append(status.Reasons,
			fmt.Sprintf("%d consecutive losses (pause at %d)",
				ap.consecutiveLosses, cfg.PauseAfterConsecutiveLosses))
	}
	if activeTrades >= cfg.MaxConcurrentTrades {
		status.CanTrade = false
		status.Reasons = append(status.Reasons,
			fmt.Sprintf("%d active trades at the %d cap", activeTrades, cfg.MaxConcurrentTrades))
	}
	return status
}

// GateResult combines the market and account verdicts for one symbol
type GateResult struct {
	Allowed        bool            `json:"allowed"`
	MarketAnalysis *MarketAnalysis `json:"marketAnalysis,omitempty"`
	AccountStatus  *AccountStatus  `json:"accountStatus,omitempty"`
}

// Reason joins all blocking reasons into one log-friendly string
func (g GateResult) Reason() string {
	var parts []string
	if g.MarketAnalysis != nil {
		parts = append(parts, g.MarketAnalysis.Reasons...)
	}
	if g.AccountStatus != nil {
		parts = append(parts, g.AccountStatus.Reasons...)
	}
	return strings.Join(parts, "; ")
}

// ShouldTrade combines the market filter and account protection. The market
// filter blocks only on an avoid recommendation; caution still trades.
func ShouldTrade(market MarketAnalysis, account AccountStatus, marketFilterEnabled bool) GateResult {
	allowed := account.CanTrade
	if marketFilterEnabled && market.Recommendation == RecommendAvoid {
		allowed = false
	}
	return GateResult{
		Allowed:        allowed,
		MarketAnalysis: &market,
		AccountStatus:  &account,
	}
}
