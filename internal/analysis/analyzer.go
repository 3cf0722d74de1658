// Package analysis combines classical technical indicators into a single
// directional signal per symbol and timeframe.
package analysis

import (
	"math"

	"futures-trading-engine/internal/indicator"
)

// Signal is a directional trading signal
type Signal string

const (
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
	SignalHold Signal = "hold"
)

// Config holds the indicator parameters taken from runtime settings
type Config struct {
	RSIPeriod     int
	RSIOverbought float64
	RSIOversold   float64
	MACDFast      int
	MACDSlow      int
	MACDSignal    int
	MAShortPeriod int
	MALongPeriod  int
}

// DefaultConfig mirrors the engine's default settings
func DefaultConfig() Config {
	return Config{
		RSIPeriod:     14,
		RSIOverbought: 70,
		RSIOversold:   30,
		MACDFast:      12,
		MACDSlow:      26,
		MACDSignal:    9,
		MAShortPeriod: 20,
		MALongPeriod:  50,
	}
}

// IndicatorSignal is one indicator's vote
type IndicatorSignal struct {
	Name     string  `json:"name"`
	Signal   Signal  `json:"signal"`
	Strength float64 `json:"strength"`
	Value    float64 `json:"value"`
}

// Result is the combined classical analysis for one timeframe
type Result struct {
	OverallSignal    Signal            `json:"overall_signal"`
	SignalStrength   float64           `json:"signal_strength"`
	ConfirmedSignals []string          `json:"confirmed_signals"`
	Indicators       []IndicatorSignal `json:"indicators"`
}

// Analyze combines RSI, MACD crossover and MA-cross votes. A single
// confirming indicator suffices; the classical 2-of-3 rule is intentionally
// relaxed here.
func Analyze(prices []float64, cfg Config) Result {
	result := Result{OverallSignal: SignalHold}
	if len(prices) < cfg.MALongPeriod {
		return result
	}

	lastPrice := prices[len(prices)-1]

	rsiSig := analyzeRSI(prices, cfg)
	macdSig := analyzeMACD(prices, cfg, lastPrice)
	maSig := analyzeMACross(prices, cfg)
	result.Indicators = []IndicatorSignal{rsiSig, macdSig, maSig}

	buys, sells := 0, 0
	buyStrength, sellStrength := 0.0, 0.0
	for _, sig := range result.Indicators {
		switch sig.Signal {
		case SignalBuy:
			buys++
			buyStrength += sig.Strength
			result.ConfirmedSignals = append(result.ConfirmedSignals, sig.Name)
		case SignalSell:
			sells++
			sellStrength += sig.Strength
			result.ConfirmedSignals = append(result.ConfirmedSignals, sig.Name)
		}
	}

	var confirmed int
	var avgStrength float64
	switch {
	case buys > sells:
		result.OverallSignal = SignalBuy
		confirmed = buys
		avgStrength = buyStrength / float64(buys)
	case sells > buys:
		result.OverallSignal = SignalSell
		confirmed = sells
		avgStrength = sellStrength / float64(sells)
	default:
		return result
	}

	result.SignalStrength = math.Min(100, float64(confirmed)/3.0*100+avgStrength*0.5)
	return result
}

func analyzeRSI(prices []float64, cfg Config) IndicatorSignal {
	rsi := indicator.CalculateRSI(prices, cfg.RSIPeriod)
	sig := IndicatorSignal{Name: "RSI", Signal: SignalHold, Value: rsi}

	switch {
	case rsi <= cfg.RSIOversold:
		sig.Signal = SignalBuy
		sig.Strength = math.Min(100, 50+(cfg.RSIOversold-rsi)*2)
	case rsi >= cfg.RSIOverbought:
		sig.Signal = SignalSell
		sig.Strength = math.Min(100, 50+(rsi-cfg.RSIOverbought)*2)
	}
	return sig
}

func analyzeMACD(prices []float64, cfg Config, lastPrice float64) IndicatorSignal {
	macd := indicator.CalculateMACD(prices, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	sig := IndicatorSignal{Name: "MACD", Signal: SignalHold, Value: macd.Histogram}

	crossedUp := macd.PrevMACD <= macd.PrevSignal && macd.MACD > macd.Signal
	crossedDown := macd.PrevMACD >= macd.PrevSignal && macd.MACD < macd.Signal

	strength := 60.0
	if lastPrice > 0 {
		strength = math.Min(100, 60+math.Abs(macd.Histogram)/lastPrice*10000)
	}

	if crossedUp {
		sig.Signal = SignalBuy
		sig.Strength = strength
	} else if crossedDown {
		sig.Signal = SignalSell
		sig.Strength = strength
	}
	return sig
}

func analyzeMACross(prices []float64, cfg Config) IndicatorSignal {
	shortMA := indicator.CalculateSMA(prices, cfg.MAShortPeriod)
	longMA := indicator.CalculateSMA(prices, cfg.MALongPeriod)
	sig := IndicatorSignal{Name: "MA_CROSS", Signal: SignalHold, Value: shortMA - longMA}
	if longMA == 0 {
		return sig
	}

	prev := prices[:len(prices)-1]
	prevShort := indicator.CalculateSMA(prev, cfg.MAShortPeriod)
	prevLong := indicator.CalculateSMA(prev, cfg.MALongPeriod)

	spread := math.Abs(shortMA-longMA) / longMA * 100
	strength := math.Min(100, 50+spread*20)

	if prevShort <= prevLong && shortMA > longMA {
		sig.Signal = SignalBuy
		sig.Strength = strength
	} else if prevShort >= prevLong && shortMA < longMA {
		sig.Signal = SignalSell
		sig.Strength = strength
	}
	return sig
}

// TimeframeResult is one timeframe's contribution to a multi-timeframe scan
type TimeframeResult struct {
	Timeframe string `json:"timeframe"`
	Result    Result `json:"result"`
}

// MultiTimeframeResult aggregates classical analysis across timeframes
type MultiTimeframeResult struct {
	OverallSignal  Signal            `json:"overall_signal"`
	SignalStrength float64           `json:"signal_strength"`
	Agreeing       []string          `json:"agreeing_timeframes"`
	PerTimeframe   []TimeframeResult `json:"per_timeframe"`
}

// CloseFetcher loads closing prices for an interval
type CloseFetcher func(interval string) ([]float64, error)

// AnalyzeMultiTimeframe runs the classical analyzer on each timeframe and
// requires at least one agreeing timeframe in the dominant direction. The
// overall strength is the average of the agreeing timeframes.
func AnalyzeMultiTimeframe(fetch CloseFetcher, timeframes []string, cfg Config) MultiTimeframeResult {
	out := MultiTimeframeResult{OverallSignal: SignalHold}

	buyVotes, sellVotes := 0, 0
	for _, tf := range timeframes {
		prices, err := fetch(tf)
		if err != nil || len(prices) == 0 {
			continue
		}
		r := Analyze(prices, cfg)
		out.PerTimeframe = append(out.PerTimeframe, TimeframeResult{Timeframe: tf, Result: r})
		switch r.OverallSignal {
		case SignalBuy:
			buyVotes++
		case SignalSell:
			sellVotes++
		}
	}

	var direction Signal
	switch {
	case buyVotes > sellVotes:
		direction = SignalBuy
	case sellVotes > buyVotes:
		direction = SignalSell
	default:
		return out
	}

	total := 0.0
	for _, tf := range out.PerTimeframe {
		if tf.Result.OverallSignal == direction {
			out.Agreeing = append(out.Agreeing, tf.Timeframe)
			total += tf.Result.SignalStrength
		}
	}
	if len(out.Agreeing) == 0 {
		return out
	}

	out.OverallSignal = direction
	out.SignalStrength = total / float64(len(out.Agreeing))
	return out
}
