package engine

import (
	"context"
	"fmt"
	"math"

	"futures-trading-engine/internal/ai"
	"futures-trading-engine/internal/analysis"
	"futures-trading-engine/internal/binance"
	"futures-trading-engine/internal/database"
	"futures-trading-engine/internal/risk"
	"futures-trading-engine/internal/strategy"
)

// classicalFloor caps the classical path's strength threshold so a very high
// minSignalStrength setting never silences the fallback entirely.
const classicalFloor = 30.0

// decideSymbol walks one symbol through the decision chain: cooldown, gates,
// diversification, then the AI, strategy and classical paths in that order.
// The first path that produces a qualifying signal executes and ends the
// chain. Panics are contained so one bad symbol cannot abort the tick.
func (e *Engine) decideSymbol(ctx context.Context, settings *database.Settings, symbol string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("symbol evaluation panicked", "symbol", symbol, "panic", fmt.Sprint(r))
		}
	}()

	if e.inCooldown(symbol, settings.TradeCooldownMinutes) {
		return
	}

	active, err := e.store.GetActiveTrades(ctx)
	if err != nil {
		e.log.Error("active trades lookup failed", "symbol", symbol, "error", err)
		return
	}

	klines, err := e.client.GetKlines(symbol, analysisInterval, analysisLimit)
	if err != nil {
		e.log.Warn("kline fetch failed", "symbol", symbol, "error", err)
		return
	}

	if !e.passesGates(ctx, settings, symbol, klines, len(active)) {
		return
	}

	if settings.DiversificationEnabled {
		base := baseAsset(symbol)
		for _, t := range active {
			if baseAsset(t.Symbol) == base {
				e.log.Debug("diversification skip", "symbol", symbol, "held", t.Symbol)
				return
			}
		}
	}

	if settings.AITradingEnabled && e.tryAIPath(ctx, settings, symbol, klines) {
		return
	}
	if settings.AdvancedStrategiesEnabled && e.tryStrategyPath(ctx, settings, symbol, klines) {
		return
	}
	e.tryClassicalPath(ctx, settings, symbol, klines)
}

// passesGates applies the market-condition filter and account protection.
// The market filter blocks only on an avoid verdict; account protection
// blocks whenever any of its rules trip.
func (e *Engine) passesGates(ctx context.Context, settings *database.Settings, symbol string, klines []binance.Kline, activeCount int) bool {
	if !settings.MarketConditionFilter && !settings.AccountProtectionEnabled {
		return true
	}

	market := risk.MarketAnalysis{Recommendation: risk.RecommendTrade}
	if settings.MarketConditionFilter {
		market = risk.AnalyzeMarketCondition(symbol, klines, risk.GateConfig{
			MaxVolatilityPercent: settings.MaxVolatilityPercent,
			MinTrendStrength:     settings.MinTrendStrength,
			AvoidRangingMarket:   settings.AvoidRangingMarket,
			TrendFilterEnabled:   settings.TrendFilterEnabled,
		})
	}

	account := risk.AccountStatus{CanTrade: true}
	if settings.AccountProtectionEnabled {
		info, err := e.client.GetAccountInfo()
		if err != nil {
			e.log.Warn("account info fetch failed, blocking trade", "symbol", symbol, "error", err)
			return false
		}
		account = e.protection.Status(info.TotalWalletBalance, activeCount, risk.ProtectionConfig{
			MaxDailyLossPercent:         settings.MaxDailyLossPercent,
			MaxConcurrentTrades:         settings.MaxConcurrentTrades,
			PauseAfterConsecutiveLosses: settings.PauseAfterConsecutiveLosses,
		})
	}

	gate := risk.ShouldTrade(market, account, settings.MarketConditionFilter)
	if !gate.Allowed {
		e.log.Info("gate blocked symbol", "symbol", symbol, "reason", gate.Reason())
		e.activity(ctx, database.LogLevelInfo,
			fmt.Sprintf("Skipped %s: %s", symbol, gate.Reason()), "")
		return false
	}
	return true
}

// tryAIPath runs the ensemble predictor. It reports true when it executed a
// trade, ending the decision chain for this symbol.
func (e *Engine) tryAIPath(ctx context.Context, settings *database.Settings, symbol string, klines []binance.Kline) bool {
	pred, err := ai.Analyze(symbol, klines)
	if err != nil {
		e.log.Debug("ensemble analysis unavailable", "symbol", symbol, "error", err)
		return false
	}

	if pred.Signal != analysis.SignalBuy && pred.Signal != analysis.SignalSell {
		return false
	}
	if pred.Confidence < settings.AIMinConfidence ||
		pred.SignalStrength < settings.AIMinSignalStrength ||
		pred.AgreeingSignals < settings.AIRequiredSignals ||
		pred.RiskLevel == "high" {
		e.log.Debug("ensemble signal below thresholds", "symbol", symbol,
			"signal", string(pred.Signal), "confidence", pred.Confidence,
			"strength", pred.SignalStrength, "agreeing", pred.AgreeingSignals,
			"risk", pred.RiskLevel)
		return false
	}

	_ = e.store.CreateSignal(ctx, &database.Signal{
		Symbol:    symbol,
		Type:      string(pred.Signal),
		Indicator: "ensemble",
		Value:     pred.Confidence,
		Strength:  pred.SignalStrength,
	})

	source := fmt.Sprintf("ai:%s regime=%s agreeing=%d", pred.Signal, pred.MarketRegime, pred.AgreeingSignals)
	err = e.executeSignal(ctx, settings, symbol, directionOf(pred.Signal), pred.SignalStrength, []string{source}, nil)
	if err != nil {
		e.log.Error("ai trade execution failed", "symbol", symbol, "error", err)
	}
	return err == nil
}

// tryStrategyPath runs the strategy bank. With consensus required, two or
// more agreeing strategies must clear the strength floor; otherwise the best
// signal trades on its own confidence and strength.
func (e *Engine) tryStrategyPath(ctx context.Context, settings *database.Settings, symbol string, klines []binance.Kline) bool {
	result := strategy.Analyze(klines, strategy.Config{
		Enabled:           settings.EnabledStrategies,
		RSIOversold:       settings.RSIOversold,
		RSIOverbought:     settings.RSIOverbought,
		VolumeMultiplier:  settings.VolumeMultiplier,
		RiskRewardRatio:   settings.RiskRewardRatio,
		ATRMultiplier:     settings.ATRMultiplier,
		SwingPeriod:       settings.SwingPeriod,
		MomentumThreshold: 1.0,
	})

	var chosen *strategy.Signal
	var strength float64
	var sources []string

	if settings.RequireStrategyConsensus {
		if result.Consensus != analysis.SignalBuy && result.Consensus != analysis.SignalSell {
			return false
		}
		if result.ConsensusStrength < settings.StrategyMinStrength {
			return false
		}
		strength = result.ConsensusStrength
		// levels come from the strongest agreeing strategy that carries them
		for i := range result.Signals {
			s := &result.Signals[i]
			if s.Signal != result.Consensus || s.Levels == nil {
				continue
			}
			if chosen == nil || s.Strength*s.Confidence > chosen.Strength*chosen.Confidence {
				chosen = s
			}
			sources = append(sources, "strategy:"+s.Strategy)
		}
		if chosen == nil {
			return false
		}
	} else {
		if result.Best == nil ||
			result.Best.Confidence < settings.StrategyMinConfidence ||
			result.Best.Strength < settings.StrategyMinStrength {
			return false
		}
		chosen = result.Best
		strength = result.Best.Strength
		sources = []string{"strategy:" + result.Best.Strategy}
	}

	_ = e.store.CreateSignal(ctx, &database.Signal{
		Symbol:    symbol,
		Type:      string(chosen.Signal),
		Indicator: chosen.Strategy,
		Value:     chosen.Confidence,
		Strength:  strength,
	})

	err := e.executeSignal(ctx, settings, symbol, directionOf(chosen.Signal), strength, sources, chosen.Levels)
	if err != nil {
		e.log.Error("strategy trade execution failed", "symbol", symbol, "error", err)
	}
	return err == nil
}

// tryClassicalPath is the indicator-vote fallback, optionally across multiple
// timeframes.
func (e *Engine) tryClassicalPath(ctx context.Context, settings *database.Settings, symbol string, klines []binance.Kline) {
	cfg := analysisConfig(settings)

	var signal analysis.Signal
	var strength float64
	var source string

	if settings.MultiTimeframeEnabled && len(settings.Timeframes) > 0 {
		mtf := analysis.AnalyzeMultiTimeframe(func(interval string) ([]float64, error) {
			return e.client.GetKlineCloses(symbol, interval, analysisLimit)
		}, settings.Timeframes, cfg)
		signal, strength = mtf.OverallSignal, mtf.SignalStrength
		source = fmt.Sprintf("classical:mtf agreeing=%d", len(mtf.Agreeing))
	} else {
		closes := make([]float64, 0, len(klines))
		for _, k := range klines {
			closes = append(closes, k.Close)
		}
		r := analysis.Analyze(closes, cfg)
		signal, strength = r.OverallSignal, r.SignalStrength
		source = "classical:" + analysisInterval
	}

	if signal != analysis.SignalBuy && signal != analysis.SignalSell {
		return
	}
	if strength < math.Min(settings.MinSignalStrength, classicalFloor) {
		return
	}

	_ = e.store.CreateSignal(ctx, &database.Signal{
		Symbol:    symbol,
		Type:      string(signal),
		Indicator: "classical",
		Strength:  strength,
	})

	if err := e.executeSignal(ctx, settings, symbol, directionOf(signal), strength, []string{source}, nil); err != nil {
		e.log.Error("classical trade execution failed", "symbol", symbol, "error", err)
	}
}

func analysisConfig(s *database.Settings) analysis.Config {
	return analysis.Config{
		RSIPeriod:     s.RSIPeriod,
		RSIOverbought: s.RSIOverbought,
		RSIOversold:   s.RSIOversold,
		MACDFast:      s.MACDFast,
		MACDSlow:      s.MACDSlow,
		MACDSignal:    s.MACDSignal,
		MAShortPeriod: s.MAShortPeriod,
		MALongPeriod:  s.MALongPeriod,
	}
}

func directionOf(s analysis.Signal) string {
	if s == analysis.SignalSell {
		return database.DirectionShort
	}
	return database.DirectionLong
}
