// Package strategy implements the bank of named trading strategies and the
// consensus combiner over their signals.
package strategy

import (
	"fmt"
	"math"

	"futures-trading-engine/internal/analysis"
	"futures-trading-engine/internal/binance"
	"futures-trading-engine/internal/indicator"
)

// Strategy names as stored in settings.enabledStrategies
const (
	Breakout      = "breakout"
	Scalping      = "scalping"
	Momentum      = "momentum"
	MeanReversion = "meanReversion"
	Swing         = "swing"
	GridTrading   = "gridTrading"
)

// AllStrategies lists every known strategy name
var AllStrategies = []string{Breakout, Scalping, Momentum, MeanReversion, Swing, GridTrading}

// MinBars is the minimum candle count the strategy bank accepts
const MinBars = 50

// Levels carries the strategy-supplied entry and protective prices
type Levels struct {
	Entry      float64 `json:"entry"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
}

// Signal is one strategy's output
type Signal struct {
	Strategy   string          `json:"strategy"`
	Signal     analysis.Signal `json:"signal"`
	Strength   float64         `json:"strength"`
	Confidence float64         `json:"confidence"`
	Reason     string          `json:"reason"`
	Levels     *Levels         `json:"levels,omitempty"`
}

func (s Signal) actionable() bool {
	return s.Signal == analysis.SignalBuy || s.Signal == analysis.SignalSell
}

// Config holds the strategy parameters taken from runtime settings
type Config struct {
	Enabled           []string
	RSIOversold       float64
	RSIOverbought     float64
	VolumeMultiplier  float64
	RiskRewardRatio   float64
	ATRMultiplier     float64
	SwingPeriod       int
	MomentumThreshold float64
}

// DefaultConfig mirrors the engine's default settings
func DefaultConfig() Config {
	return Config{
		Enabled:           AllStrategies,
		RSIOversold:       30,
		RSIOverbought:     70,
		VolumeMultiplier:  1.5,
		RiskRewardRatio:   2,
		ATRMultiplier:     1.5,
		SwingPeriod:       10,
		MomentumThreshold: 1.0,
	}
}

// Result is the combined strategy-bank output
type Result struct {
	Signals           []Signal        `json:"signals"`
	Best              *Signal         `json:"best,omitempty"`
	Consensus         analysis.Signal `json:"consensus"`
	ConsensusStrength float64         `json:"consensus_strength"`
}

// Analyze runs every enabled strategy, picks the best actionable signal by
// strength times confidence (confidence at least 50), and computes a
// consensus that requires two or more agreeing actionable strategies.
func Analyze(klines []binance.Kline, cfg Config) Result {
	result := Result{Consensus: analysis.SignalHold}
	if len(klines) < MinBars {
		return result
	}

	enabled := make(map[string]bool, len(cfg.Enabled))
	for _, name := range cfg.Enabled {
		enabled[name] = true
	}

	runners := []struct {
		name string
		run  func([]binance.Kline, Config) Signal
	}{
		{Breakout, breakoutStrategy},
		{Scalping, scalpingStrategy},
		{Momentum, momentumStrategy},
		{MeanReversion, meanReversionStrategy},
		{Swing, swingStrategy},
		{GridTrading, gridStrategy},
	}

	for _, r := range runners {
		if !enabled[r.name] {
			continue
		}
		result.Signals = append(result.Signals, r.run(klines, cfg))
	}

	for i := range result.Signals {
		s := &result.Signals[i]
		if !s.actionable() || s.Confidence < 50 {
			continue
		}
		if result.Best == nil ||
			s.Strength*s.Confidence > result.Best.Strength*result.Best.Confidence {
			result.Best = s
		}
	}

	buys, sells := 0, 0
	buyStrength, sellStrength := 0.0, 0.0
	for _, s := range result.Signals {
		switch s.Signal {
		case analysis.SignalBuy:
			buys++
			buyStrength += s.Strength
		case analysis.SignalSell:
			sells++
			sellStrength += s.Strength
		}
	}
	if buys >= 2 && buys > sells {
		result.Consensus = analysis.SignalBuy
		result.ConsensusStrength = buyStrength / float64(buys)
	} else if sells >= 2 && sells > buys {
		result.Consensus = analysis.SignalSell
		result.ConsensusStrength = sellStrength / float64(sells)
	}

	return result
}

func hold(name, reason string) Signal {
	return Signal{Strategy: name, Signal: analysis.SignalHold, Reason: reason}
}

// longLevels builds entry/stop/target for a long with an ATR-derived stop,
// never below the supplied floor when the floor is tighter.
func longLevels(entry, atr, floor float64, cfg Config) *Levels {
	stop := entry - cfg.ATRMultiplier*atr
	if floor > 0 && floor > stop && floor < entry {
		stop = floor
	}
	return &Levels{
		Entry:      entry,
		StopLoss:   stop,
		TakeProfit: entry + (entry-stop)*cfg.RiskRewardRatio,
	}
}

func shortLevels(entry, atr, ceiling float64, cfg Config) *Levels {
	stop := entry + cfg.ATRMultiplier*atr
	if ceiling > 0 && ceiling < stop && ceiling > entry {
		stop = ceiling
	}
	return &Levels{
		Entry:      entry,
		StopLoss:   stop,
		TakeProfit: entry - (stop-entry)*cfg.RiskRewardRatio,
	}
}

// breakoutStrategy fires when price closes just beyond a support or
// resistance level on elevated volume.
func breakoutStrategy(klines []binance.Kline, cfg Config) Signal {
	n := len(klines)
	price := klines[n-1].Close
	atr := indicator.CalculateATR(klines, 14)
	levels := indicator.FindSupportResistance(klines)
	avgVol := indicator.AverageVolume(klines[:n-1], 20)

	if avgVol <= 0 || klines[n-1].Volume < avgVol*cfg.VolumeMultiplier {
		return hold(Breakout, "volume below breakout threshold")
	}

	resistance := indicator.NearestLevel(levels.Resistance, price)
	if resistance > 0 && price > resistance &&
		(price-resistance)/resistance <= 0.015 {
		support := indicator.NearestLevel(levels.Support, price)
		return Signal{
			Strategy:   Breakout,
			Signal:     analysis.SignalBuy,
			Strength:   75,
			Confidence: 70,
			Reason:     fmt.Sprintf("breakout above resistance %.4f on %.1fx volume", resistance, klines[n-1].Volume/avgVol),
			Levels:     longLevels(price, atr, support, cfg),
		}
	}

	support := indicator.NearestLevel(levels.Support, price)
	if support > 0 && price < support &&
		(support-price)/support <= 0.015 {
		ceiling := indicator.NearestLevel(levels.Resistance, price)
		return Signal{
			Strategy:   Breakout,
			Signal:     analysis.SignalSell,
			Strength:   75,
			Confidence: 70,
			Reason:     fmt.Sprintf("breakdown below support %.4f on %.1fx volume", support, klines[n-1].Volume/avgVol),
			Levels:     shortLevels(price, atr, ceiling, cfg),
		}
	}

	return hold(Breakout, "no level break")
}

// scalpingStrategy trades EMA9/EMA21 crossovers confirmed by fast RSI and
// stochastic not sitting at the opposing extreme.
func scalpingStrategy(klines []binance.Kline, cfg Config) Signal {
	closes := indicator.Closes(klines)
	price := closes[len(closes)-1]
	atr := indicator.CalculateATR(klines, 14)

	ema9 := indicator.CalculateEMA(closes, 9)
	ema21 := indicator.CalculateEMA(closes, 21)
	prev := closes[:len(closes)-1]
	prevEMA9 := indicator.CalculateEMA(prev, 9)
	prevEMA21 := indicator.CalculateEMA(prev, 21)

	rsi7 := indicator.CalculateRSI(closes, 7)
	stochK, _ := indicator.CalculateStochastic(klines, 5, 3)

	if prevEMA9 <= prevEMA21 && ema9 > ema21 {
		if rsi7 >= cfg.RSIOverbought || stochK >= 80 {
			return hold(Scalping, "bullish cross at overbought extreme")
		}
		return Signal{
			Strategy:   Scalping,
			Signal:     analysis.SignalBuy,
			Strength:   65,
			Confidence: 60,
			Reason:     "EMA9 crossed above EMA21",
			Levels:     longLevels(price, atr, 0, cfg),
		}
	}
	if prevEMA9 >= prevEMA21 && ema9 < ema21 {
		if rsi7 <= cfg.RSIOversold || stochK <= 20 {
			return hold(Scalping, "bearish cross at oversold extreme")
		}
		return Signal{
			Strategy:   Scalping,
			Signal:     analysis.SignalSell,
			Strength:   65,
			Confidence: 60,
			Reason:     "EMA9 crossed below EMA21",
			Levels:     shortLevels(price, atr, 0, cfg),
		}
	}

	return hold(Scalping, "no EMA crossover")
}

// momentumStrategy requires momentum beyond the threshold plus ADX trend
// confirmation with DI agreement.
func momentumStrategy(klines []binance.Kline, cfg Config) Signal {
	closes := indicator.Closes(klines)
	price := closes[len(closes)-1]
	atr := indicator.CalculateATR(klines, 14)

	mom := indicator.CalculateMomentum(closes, 10)
	adx := indicator.CalculateADX(klines, 14)
	trending := adx.Trend == "strong" || adx.Trend == "moderate"

	if mom > cfg.MomentumThreshold && trending && adx.PlusDI > adx.MinusDI {
		return Signal{
			Strategy:   Momentum,
			Signal:     analysis.SignalBuy,
			Strength:   math.Min(100, 50+mom*5),
			Confidence: math.Min(90, 40+adx.ADX),
			Reason:     fmt.Sprintf("momentum %.2f%% with %s trend", mom, adx.Trend),
			Levels:     longLevels(price, atr, 0, cfg),
		}
	}
	if mom < -cfg.MomentumThreshold && trending && adx.MinusDI > adx.PlusDI {
		return Signal{
			Strategy:   Momentum,
			Signal:     analysis.SignalSell,
			Strength:   math.Min(100, 50-mom*5),
			Confidence: math.Min(90, 40+adx.ADX),
			Reason:     fmt.Sprintf("momentum %.2f%% with %s trend", mom, adx.Trend),
			Levels:     shortLevels(price, atr, 0, cfg),
		}
	}

	return hold(Momentum, "momentum below threshold or no trend")
}

// meanReversionStrategy buys deep-oversold band touches and sells the
// opposite, targeting the Bollinger middle.
func meanReversionStrategy(klines []binance.Kline, cfg Config) Signal {
	closes := indicator.Closes(klines)
	price := closes[len(closes)-1]
	atr := indicator.CalculateATR(klines, 14)

	bb := indicator.CalculateBollingerBands(closes, 20, 2)
	rsi := indicator.CalculateRSI(closes, 14)

	if bb.PercentB < 0.1 && rsi < cfg.RSIOversold {
		return Signal{
			Strategy:   MeanReversion,
			Signal:     analysis.SignalBuy,
			Strength:   70,
			Confidence: 60,
			Reason:     fmt.Sprintf("%%B %.2f with RSI %.1f", bb.PercentB, rsi),
			Levels: &Levels{
				Entry:      price,
				StopLoss:   price - cfg.ATRMultiplier*atr,
				TakeProfit: bb.Middle,
			},
		}
	}
	if bb.PercentB > 0.9 && rsi > cfg.RSIOverbought {
		return Signal{
			Strategy:   MeanReversion,
			Signal:     analysis.SignalSell,
			Strength:   70,
			Confidence: 60,
			Reason:     fmt.Sprintf("%%B %.2f with RSI %.1f", bb.PercentB, rsi),
			Levels: &Levels{
				Entry:      price,
				StopLoss:   price + cfg.ATRMultiplier*atr,
				TakeProfit: bb.Middle,
			},
		}
	}

	return hold(MeanReversion, "price not at band extreme")
}

// swingStrategy trades bounces off the most recent swing extreme with DI
// agreement.
func swingStrategy(klines []binance.Kline, cfg Config) Signal {
	n := len(klines)
	price := klines[n-1].Close
	atr := indicator.CalculateATR(klines, 14)
	period := cfg.SwingPeriod
	if period <= 0 || period >= n {
		period = 10
	}

	swingLow, swingHigh := klines[n-1-period].Low, klines[n-1-period].High
	for _, k := range klines[n-1-period : n-1] {
		if k.Low < swingLow {
			swingLow = k.Low
		}
		if k.High > swingHigh {
			swingHigh = k.High
		}
	}

	adx := indicator.CalculateADX(klines, 14)

	if swingLow > 0 && (price-swingLow)/swingLow <= 0.015 && adx.PlusDI > adx.MinusDI {
		return Signal{
			Strategy:   Swing,
			Signal:     analysis.SignalBuy,
			Strength:   60,
			Confidence: 55,
			Reason:     fmt.Sprintf("bounce near swing low %.4f", swingLow),
			Levels:     longLevels(price, atr, swingLow*0.995, cfg),
		}
	}
	if swingHigh > 0 && (swingHigh-price)/swingHigh <= 0.015 && adx.MinusDI > adx.PlusDI {
		return Signal{
			Strategy:   Swing,
			Signal:     analysis.SignalSell,
			Strength:   60,
			Confidence: 55,
			Reason:     fmt.Sprintf("rejection near swing high %.4f", swingHigh),
			Levels:     shortLevels(price, atr, swingHigh*1.005, cfg),
		}
	}

	return hold(Swing, "price away from swing extremes")
}

// gridStrategy emits a modest bias whenever price sits within 1% of a
// support or resistance level.
func gridStrategy(klines []binance.Kline, cfg Config) Signal {
	n := len(klines)
	price := klines[n-1].Close
	atr := indicator.CalculateATR(klines, 14)
	levels := indicator.FindSupportResistance(klines)

	support := indicator.NearestLevel(levels.Support, price)
	resistance := indicator.NearestLevel(levels.Resistance, price)

	if support > 0 && math.Abs(price-support)/support <= 0.01 {
		return Signal{
			Strategy:   GridTrading,
			Signal:     analysis.SignalBuy,
			Strength:   45,
			Confidence: 50,
			Reason:     fmt.Sprintf("grid level near support %.4f", support),
			Levels:     longLevels(price, atr, support*0.99, cfg),
		}
	}
	if resistance > 0 && math.Abs(price-resistance)/resistance <= 0.01 {
		return Signal{
			Strategy:   GridTrading,
			Signal:     analysis.SignalSell,
			Strength:   45,
			Confidence: 50,
			Reason:     fmt.Sprintf("grid level near resistance %.4f", resistance),
			Levels:     shortLevels(price, atr, resistance*1.01, cfg),
		}
	}

	return hold(GridTrading, "no grid level nearby")
}
