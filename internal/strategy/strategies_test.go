package strategy

import (
	"math"
	"testing"

	"futures-trading-engine/internal/analysis"
	"futures-trading-engine/internal/binance"
)

// rangeBoundKlines oscillates between ~97 and ~100 so pivot highs cluster at
// 100 and pivot lows near 97.
func rangeBoundKlines(n int) []binance.Kline {
	klines := make([]binance.Kline, n)
	for i := range klines {
		high := 98.5 + 1.5*math.Sin(float64(i)*2*math.Pi/8)
		klines[i] = binance.Kline{
			Open:   high - 0.5,
			High:   high,
			Low:    high - 1,
			Close:  high - 0.3,
			Volume: 1000,
		}
	}
	return klines
}

func trendKlines(n int, start, step float64) []binance.Kline {
	klines := make([]binance.Kline, n)
	price := start
	for i := range klines {
		open := price
		close := price + step
		klines[i] = binance.Kline{
			Open:   open,
			High:   math.Max(open, close) + math.Abs(step)*0.3,
			Low:    math.Min(open, close) - math.Abs(step)*0.3,
			Close:  close,
			Volume: 1000,
		}
		price = close
	}
	return klines
}

func TestBreakoutBuyTriggersLong(t *testing.T) {
	klines := rangeBoundKlines(55)
	klines[54] = binance.Kline{
		Open: 99.5, High: 101.6, Low: 99.4, Close: 101.4, Volume: 2000,
	}

	sig := breakoutStrategy(klines, DefaultConfig())
	if sig.Signal != analysis.SignalBuy {
		t.Fatalf("breakout signal = %s (%s), want buy", sig.Signal, sig.Reason)
	}
	if sig.Levels == nil {
		t.Fatal("breakout buy must carry levels")
	}
	if sig.Levels.Entry != 101.4 {
		t.Errorf("entry = %v, want 101.4", sig.Levels.Entry)
	}
	if sig.Levels.StopLoss >= sig.Levels.Entry {
		t.Errorf("stop %v must be below entry %v", sig.Levels.StopLoss, sig.Levels.Entry)
	}
	if sig.Levels.TakeProfit <= sig.Levels.Entry {
		t.Errorf("target %v must be above entry %v", sig.Levels.TakeProfit, sig.Levels.Entry)
	}
}

func TestBreakoutRequiresVolume(t *testing.T) {
	klines := rangeBoundKlines(55)
	klines[54] = binance.Kline{
		Open: 99.5, High: 101.6, Low: 99.4, Close: 101.4, Volume: 1000, // no spike
	}

	sig := breakoutStrategy(klines, DefaultConfig())
	if sig.Signal != analysis.SignalHold {
		t.Errorf("breakout without volume = %s, want hold", sig.Signal)
	}
}

func TestScalpingCrossoverAtExtremeIsSuppressed(t *testing.T) {
	// a strong sustained rally drives RSI(7) overbought; even a fresh
	// bullish crossover must not fire into it
	klines := trendKlines(60, 100, 2)
	sig := scalpingStrategy(klines, DefaultConfig())
	if sig.Signal == analysis.SignalBuy && sig.Reason == "EMA9 crossed above EMA21" {
		// a steady trend has no fresh crossover anyway, but if one is
		// detected it must be suppressed at the extreme
		t.Errorf("scalping fired into overbought extreme: %+v", sig)
	}
}

func TestMomentumStrategyStrongUptrend(t *testing.T) {
	klines := trendKlines(80, 100, 2)
	sig := momentumStrategy(klines, DefaultConfig())
	if sig.Signal != analysis.SignalBuy {
		t.Fatalf("momentum in strong uptrend = %s (%s), want buy", sig.Signal, sig.Reason)
	}
	if sig.Levels == nil || sig.Levels.StopLoss >= sig.Levels.Entry {
		t.Errorf("momentum buy levels invalid: %+v", sig.Levels)
	}
}

func TestMomentumStrategyFlatMarketHolds(t *testing.T) {
	klines := rangeBoundKlines(80)
	sig := momentumStrategy(klines, DefaultConfig())
	if sig.Signal != analysis.SignalHold {
		t.Errorf("momentum in range = %s, want hold", sig.Signal)
	}
}

func TestMeanReversionTakesProfitAtMiddleBand(t *testing.T) {
	// flat history then a sharp drop pins price at the lower band
	klines := trendKlines(60, 100, 0)
	for i := 50; i < 60; i++ {
		drop := float64(i-49) * 1.5
		klines[i] = binance.Kline{
			Open: 100 - drop + 1.5, High: 100 - drop + 1.6,
			Low: 100 - drop - 0.2, Close: 100 - drop, Volume: 1000,
		}
	}

	sig := meanReversionStrategy(klines, DefaultConfig())
	if sig.Signal != analysis.SignalBuy {
		t.Fatalf("mean reversion at lower band = %s (%s), want buy", sig.Signal, sig.Reason)
	}
	if sig.Levels == nil || sig.Levels.TakeProfit <= sig.Levels.Entry {
		t.Errorf("target must be the middle band above entry, got %+v", sig.Levels)
	}
}

func TestGridEmitsBiasNearSupport(t *testing.T) {
	klines := rangeBoundKlines(55)
	// park price right on the 96 support cluster
	klines[54] = binance.Kline{
		Open: 96.8, High: 97.0, Low: 96.3, Close: 96.5, Volume: 1000,
	}

	sig := gridStrategy(klines, DefaultConfig())
	if sig.Signal != analysis.SignalBuy {
		t.Errorf("grid near support = %s (%s), want buy", sig.Signal, sig.Reason)
	}
	if sig.Strength > 50 {
		t.Errorf("grid bias should be modest, strength = %v", sig.Strength)
	}
}

func TestAnalyzeHonorsEnabledList(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = []string{Breakout}

	result := Analyze(rangeBoundKlines(55), cfg)
	if len(result.Signals) != 1 || result.Signals[0].Strategy != Breakout {
		t.Errorf("expected only breakout to run, got %+v", result.Signals)
	}
}

func TestAnalyzeBestRequiresConfidence(t *testing.T) {
	result := Analyze(rangeBoundKlines(55), DefaultConfig())
	if result.Best != nil && result.Best.Confidence < 50 {
		t.Errorf("best signal confidence %v below floor", result.Best.Confidence)
	}
}

func TestAnalyzeConsensusNeedsTwoAgreeing(t *testing.T) {
	klines := trendKlines(80, 100, 2)
	result := Analyze(klines, DefaultConfig())

	buys := 0
	for _, s := range result.Signals {
		if s.Signal == analysis.SignalBuy {
			buys++
		}
	}
	if buys < 2 && result.Consensus != analysis.SignalHold {
		t.Errorf("consensus %s with only %d agreeing strategies", result.Consensus, buys)
	}
	if buys >= 2 && result.Consensus != analysis.SignalBuy {
		t.Errorf("consensus = %s with %d buys", result.Consensus, buys)
	}
}

func TestAnalyzeShortHistory(t *testing.T) {
	result := Analyze(trendKlines(10, 100, 1), DefaultConfig())
	if len(result.Signals) != 0 || result.Best != nil {
		t.Errorf("short history should produce no signals, got %+v", result)
	}
}

func TestLevelHelpersRespectRiskReward(t *testing.T) {
	cfg := DefaultConfig()
	lv := longLevels(100, 2, 0, cfg) // stop = 100 - 1.5*2 = 97
	if lv.StopLoss != 97 {
		t.Errorf("long stop = %v, want 97", lv.StopLoss)
	}
	if lv.TakeProfit != 106 { // (100-97)*2 above entry
		t.Errorf("long target = %v, want 106", lv.TakeProfit)
	}

	sv := shortLevels(100, 2, 0, cfg)
	if sv.StopLoss != 103 || sv.TakeProfit != 94 {
		t.Errorf("short levels = %+v, want stop 103 target 94", sv)
	}
}

func TestLongLevelsUsesTighterFloor(t *testing.T) {
	cfg := DefaultConfig()
	lv := longLevels(100, 4, 98, cfg) // ATR stop would be 94; support 98 is tighter
	if lv.StopLoss != 98 {
		t.Errorf("stop = %v, want support floor 98", lv.StopLoss)
	}
}
