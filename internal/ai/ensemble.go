// Package ai implements a rule-based ensemble predictor: five orthogonal
// sub-analyzers vote with weights on candlestick data. There is no trained
// model here; the name reflects the operator-facing feature flag.
package ai

import (
	"math"

	"futures-trading-engine/internal/analysis"
	"futures-trading-engine/internal/binance"
	"futures-trading-engine/internal/errs"
	"futures-trading-engine/internal/indicator"
)

// MinBars is the minimum candle count the ensemble accepts
const MinBars = 30

// Sub-analyzer weights. They sum to 1.
var weights = map[string]float64{
	"pattern":      0.25,
	"momentum":     0.20,
	"volatility":   0.15,
	"trend":        0.25,
	"price_action": 0.15,
}

// SubSignal is one sub-analyzer's weighted vote
type SubSignal struct {
	Name       string          `json:"name"`
	Signal     analysis.Signal `json:"signal"`
	Strength   float64         `json:"strength"`   // 0-100
	Confidence float64         `json:"confidence"` // 0-100
	Reason     string          `json:"reason"`
}

// Prediction is the aggregated ensemble output for one symbol
type Prediction struct {
	Symbol               string          `json:"symbol"`
	Signal               analysis.Signal `json:"signal"`
	SignalStrength       float64         `json:"signal_strength"`
	Confidence           float64         `json:"confidence"`
	AgreeingSignals      int             `json:"agreeing_signals"`
	MarketRegime         string          `json:"market_regime"` // trending_up, trending_down, ranging, volatile
	RiskLevel            string          `json:"risk_level"`    // low, medium, high
	ShortTermPrediction  analysis.Signal `json:"short_term_prediction"`
	MediumTermPrediction analysis.Signal `json:"medium_term_prediction"`
	SubSignals           []SubSignal     `json:"sub_signals"`
}

// Analyze runs the full ensemble over the candle history (oldest first)
func Analyze(symbol string, klines []binance.Kline) (*Prediction, error) {
	if len(klines) < MinBars {
		return nil, errs.New(errs.NoData, "ensemble needs %d bars for %s, have %d",
			MinBars, symbol, len(klines))
	}

	closes := indicator.Closes(klines)

	subs := []SubSignal{
		analyzePatterns(klines),
		analyzeMomentum(closes),
		analyzeVolatility(closes),
		analyzeTrendStrength(closes),
		analyzePriceAction(klines),
	}

	p := &Prediction{Symbol: symbol, SubSignals: subs}

	buyScore, sellScore := 0.0, 0.0
	confSum := 0.0
	for _, s := range subs {
		w := weights[s.Name]
		contribution := (s.Strength / 100) * w * (s.Confidence / 100)
		switch s.Signal {
		case analysis.SignalBuy:
			buyScore += contribution
		case analysis.SignalSell:
			sellScore += contribution
		}
		confSum += s.Confidence * w
	}
	p.Confidence = confSum

	switch {
	case buyScore-sellScore > 0.15:
		p.Signal = analysis.SignalBuy
	case sellScore-buyScore > 0.15:
		p.Signal = analysis.SignalSell
	default:
		p.Signal = analysis.SignalHold
	}
	p.SignalStrength = math.Min(math.Max(buyScore, sellScore)*200, 100)

	for _, s := range subs {
		if s.Signal == p.Signal && p.Signal != analysis.SignalHold {
			p.AgreeingSignals++
		}
	}

	volRatio := volatilityRatio(klines)
	p.MarketRegime = classifyRegime(closes, volRatio)
	p.RiskLevel = classifyRisk(volRatio)
	p.ShortTermPrediction = p.Signal
	p.MediumTermPrediction = subs[3].Signal // trend-strength sub

	return p, nil
}

// analyzePatterns scans the last few candles for reversal patterns
func analyzePatterns(klines []binance.Kline) SubSignal {
	sig := SubSignal{Name: "pattern", Signal: analysis.SignalHold, Confidence: 40, Reason: "no pattern"}

	n := len(klines)
	cur, prev := klines[n-1], klines[n-2]

	body := math.Abs(cur.Close - cur.Open)
	candleRange := cur.High - cur.Low
	if candleRange <= 0 {
		return sig
	}

	upperWick := cur.High - math.Max(cur.Open, cur.Close)
	lowerWick := math.Min(cur.Open, cur.Close) - cur.Low

	// doji: tiny body relative to range, indecision
	if body < candleRange*0.1 {
		sig.Reason = "doji"
		sig.Confidence = 50
		return sig
	}

	// engulfing: current body fully covers the previous opposite body
	if cur.Close > cur.Open && prev.Close < prev.Open &&
		cur.Open <= prev.Close && cur.Close >= prev.Open {
		return SubSignal{Name: "pattern", Signal: analysis.SignalBuy,
			Strength: 75, Confidence: 70, Reason: "bullish engulfing"}
	}
	if cur.Close < cur.Open && prev.Close > prev.Open &&
		cur.Open >= prev.Close && cur.Close <= prev.Open {
		return SubSignal{Name: "pattern", Signal: analysis.SignalSell,
			Strength: 75, Confidence: 70, Reason: "bearish engulfing"}
	}

	// hammer: long lower wick after a decline
	if lowerWick > body*2 && upperWick < body && declined(klines, 5) {
		return SubSignal{Name: "pattern", Signal: analysis.SignalBuy,
			Strength: 65, Confidence: 60, Reason: "hammer"}
	}
	// shooting star: long upper wick after a rally
	if upperWick > body*2 && lowerWick < body && advanced(klines, 5) {
		return SubSignal{Name: "pattern", Signal: analysis.SignalSell,
			Strength: 65, Confidence: 60, Reason: "shooting star"}
	}

	if dt, _ := doubleTop(klines); dt {
		return SubSignal{Name: "pattern", Signal: analysis.SignalSell,
			Strength: 70, Confidence: 65, Reason: "double top"}
	}
	if db, _ := doubleBottom(klines); db {
		return SubSignal{Name: "pattern", Signal: analysis.SignalBuy,
			Strength: 70, Confidence: 65, Reason: "double bottom"}
	}

	return sig
}

func declined(klines []binance.Kline, bars int) bool {
	n := len(klines)
	if n < bars+1 {
		return false
	}
	return klines[n-1].Close < klines[n-1-bars].Close
}

func advanced(klines []binance.Kline, bars int) bool {
	n := len(klines)
	if n < bars+1 {
		return false
	}
	return klines[n-1].Close > klines[n-1-bars].Close
}

// doubleTop looks for two highs within 1% of each other in the last 20 bars
// with a trough between them, price currently below the second high.
func doubleTop(klines []binance.Kline) (bool, float64) {
	n := len(klines)
	window := klines[n-20:]

	firstIdx, secondIdx := -1, -1
	for i := 1; i < len(window)-1; i++ {
		if window[i].High > window[i-1].High && window[i].High > window[i+1].High {
			if firstIdx == -1 {
				firstIdx = i
			} else {
				secondIdx = i
			}
		}
	}
	if firstIdx == -1 || secondIdx == -1 || secondIdx-firstIdx < 3 {
		return false, 0
	}

	h1, h2 := window[firstIdx].High, window[secondIdx].High
	if math.Abs(h1-h2)/h1 > 0.01 {
		return false, 0
	}
	last := window[len(window)-1].Close
	if last >= h2 {
		return false, 0
	}
	return true, math.Max(h1, h2)
}

func doubleBottom(klines []binance.Kline) (bool, float64) {
	n := len(klines)
	window := klines[n-20:]

	firstIdx, secondIdx := -1, -1
	for i := 1; i < len(window)-1; i++ {
		if window[i].Low < window[i-1].Low && window[i].Low < window[i+1].Low {
			if firstIdx == -1 {
				firstIdx = i
			} else {
				secondIdx = i
			}
		}
	}
	if firstIdx == -1 || secondIdx == -1 || secondIdx-firstIdx < 3 {
		return false, 0
	}

	l1, l2 := window[firstIdx].Low, window[secondIdx].Low
	if math.Abs(l1-l2)/l1 > 0.01 {
		return false, 0
	}
	last := window[len(window)-1].Close
	if last <= l2 {
		return false, 0
	}
	return true, math.Min(l1, l2)
}

// analyzeMomentum compares short and medium momentum plus ROC
func analyzeMomentum(closes []float64) SubSignal {
	sig := SubSignal{Name: "momentum", Signal: analysis.SignalHold, Confidence: 40, Reason: "momentum flat"}

	short := indicator.CalculateMomentum(closes, 5)
	medium := indicator.CalculateMomentum(closes, 10)
	roc := indicator.CalculateROC(closes, 12)

	if short > 0 && medium > 0 && short > medium/2 {
		strength := math.Min(100, 40+math.Abs(short)*10)
		return SubSignal{Name: "momentum", Signal: analysis.SignalBuy,
			Strength: strength, Confidence: math.Min(90, 50+math.Abs(roc)*5),
			Reason: "accelerating upward momentum"}
	}
	if short < 0 && medium < 0 && short < medium/2 {
		strength := math.Min(100, 40+math.Abs(short)*10)
		return SubSignal{Name: "momentum", Signal: analysis.SignalSell,
			Strength: strength, Confidence: math.Min(90, 50+math.Abs(roc)*5),
			Reason: "accelerating downward momentum"}
	}
	return sig
}

// analyzeVolatility reads Bollinger %B for band reversals and bandwidth for
// squeezes.
func analyzeVolatility(closes []float64) SubSignal {
	bb := indicator.CalculateBollingerBands(closes, 20, 2)

	// recent bandwidth trend: compare against the bands 5 bars ago
	prevBB := indicator.CalculateBollingerBands(closes[:len(closes)-5], 20, 2)
	expanding := bb.Bandwidth > prevBB.Bandwidth

	if bb.Bandwidth > 0 && bb.Bandwidth < 0.04 {
		return SubSignal{Name: "volatility", Signal: analysis.SignalHold,
			Strength: 30, Confidence: 60, Reason: "bollinger squeeze, breakout pending"}
	}

	if bb.PercentB < 0.05 && expanding {
		return SubSignal{Name: "volatility", Signal: analysis.SignalBuy,
			Strength: 70, Confidence: 65, Reason: "oversold at lower band with expansion"}
	}
	if bb.PercentB > 0.95 && expanding {
		return SubSignal{Name: "volatility", Signal: analysis.SignalSell,
			Strength: 70, Confidence: 65, Reason: "overbought at upper band with expansion"}
	}

	return SubSignal{Name: "volatility", Signal: analysis.SignalHold,
		Confidence: 40, Reason: "price inside bands"}
}

// analyzeTrendStrength is a four-way vote over moving-average alignment
func analyzeTrendStrength(closes []float64) SubSignal {
	price := closes[len(closes)-1]
	sma10 := indicator.CalculateSMA(closes, 10)
	sma20 := indicator.CalculateSMA(closes, 20)
	sma50 := sma20
	if len(closes) >= 50 {
		sma50 = indicator.CalculateSMA(closes, 50)
	}

	votes := 0
	if price > sma10 {
		votes++
	} else if price < sma10 {
		votes--
	}
	if price > sma20 {
		votes++
	} else if price < sma20 {
		votes--
	}
	if sma10 > sma20 {
		votes++
	} else if sma10 < sma20 {
		votes--
	}
	if sma20 > sma50 {
		votes++
	} else if sma20 < sma50 {
		votes--
	}

	strength := math.Abs(float64(votes)) / 4 * 100
	confidence := 40 + math.Abs(float64(votes))*12

	switch {
	case votes >= 3:
		return SubSignal{Name: "trend", Signal: analysis.SignalBuy,
			Strength: strength, Confidence: confidence, Reason: "aligned uptrend"}
	case votes <= -3:
		return SubSignal{Name: "trend", Signal: analysis.SignalSell,
			Strength: strength, Confidence: confidence, Reason: "aligned downtrend"}
	}
	return SubSignal{Name: "trend", Signal: analysis.SignalHold,
		Strength: strength, Confidence: 40, Reason: "mixed moving averages"}
}

// analyzePriceAction reads the current candle direction and relative volume
func analyzePriceAction(klines []binance.Kline) SubSignal {
	n := len(klines)
	cur := klines[n-1]
	avgVol := indicator.AverageVolume(klines[:n-1], 20)

	volSpike := avgVol > 0 && cur.Volume > avgVol*1.5
	bullish := cur.Close > cur.Open

	strength := 40.0
	confidence := 45.0
	reason := "normal volume"
	if volSpike {
		strength = 70
		confidence = 65
		reason = "volume spike"
	}

	if bullish {
		return SubSignal{Name: "price_action", Signal: analysis.SignalBuy,
			Strength: strength, Confidence: confidence, Reason: "bullish candle, " + reason}
	}
	if cur.Close < cur.Open {
		return SubSignal{Name: "price_action", Signal: analysis.SignalSell,
			Strength: strength, Confidence: confidence, Reason: "bearish candle, " + reason}
	}
	return SubSignal{Name: "price_action", Signal: analysis.SignalHold,
		Confidence: 40, Reason: "flat candle"}
}

// volatilityRatio compares recent to longer-term average true range
func volatilityRatio(klines []binance.Kline) float64 {
	recent := indicator.CalculateATR(klines, 5)
	longer := indicator.CalculateATR(klines, 20)
	if longer == 0 {
		return 1
	}
	return recent / longer
}

func classifyRegime(closes []float64, volRatio float64) string {
	n := len(closes)
	change := 0.0
	if n >= 21 && closes[n-21] != 0 {
		change = (closes[n-1] - closes[n-21]) / closes[n-21] * 100
	}

	switch {
	case volRatio > 1.5:
		return "volatile"
	case change > 3:
		return "trending_up"
	case change < -3:
		return "trending_down"
	default:
		return "ranging"
	}
}

func classifyRisk(volRatio float64) string {
	switch {
	case volRatio > 1.3:
		return "high"
	case volRatio < 0.8:
		return "low"
	default:
		return "medium"
	}
}
