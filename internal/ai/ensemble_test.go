package ai

import (
	"math"
	"testing"

	"futures-trading-engine/internal/analysis"
	"futures-trading-engine/internal/binance"
	"futures-trading-engine/internal/errs"
)

func trendingKlines(n int, start, step float64) []binance.Kline {
	klines := make([]binance.Kline, n)
	price := start
	for i := range klines {
		open := price
		close := price + step
		high := math.Max(open, close) + math.Abs(step)*0.2
		low := math.Min(open, close) - math.Abs(step)*0.2
		klines[i] = binance.Kline{Open: open, High: high, Low: low, Close: close, Volume: 1000}
		price = close
	}
	return klines
}

func TestAnalyzeRejectsShortHistory(t *testing.T) {
	_, err := Analyze("BTCUSDT", trendingKlines(10, 100, 1))
	if err == nil || !errs.Is(err, errs.NoData) {
		t.Fatalf("expected no_data error, got %v", err)
	}
}

func TestAnalyzeUptrendLeansBuy(t *testing.T) {
	p, err := Analyze("BTCUSDT", trendingKlines(60, 100, 1))
	if err != nil {
		t.Fatal(err)
	}
	if p.Signal == analysis.SignalSell {
		t.Errorf("steady uptrend produced sell signal: %+v", p.SubSignals)
	}
	if p.MediumTermPrediction != analysis.SignalBuy {
		t.Errorf("trend sub should see the uptrend, got %s", p.MediumTermPrediction)
	}
	if p.MarketRegime != "trending_up" {
		t.Errorf("regime = %s, want trending_up", p.MarketRegime)
	}
}

func TestAnalyzeDowntrendLeansSell(t *testing.T) {
	p, err := Analyze("ETHUSDT", trendingKlines(60, 300, -2))
	if err != nil {
		t.Fatal(err)
	}
	if p.Signal == analysis.SignalBuy {
		t.Errorf("steady downtrend produced buy signal")
	}
	if p.MarketRegime != "trending_down" {
		t.Errorf("regime = %s, want trending_down", p.MarketRegime)
	}
}

func TestSignalStrengthBounds(t *testing.T) {
	p, err := Analyze("BTCUSDT", trendingKlines(60, 100, 1))
	if err != nil {
		t.Fatal(err)
	}
	if p.SignalStrength < 0 || p.SignalStrength > 100 {
		t.Errorf("signal strength out of range: %v", p.SignalStrength)
	}
	if p.Confidence < 0 || p.Confidence > 100 {
		t.Errorf("confidence out of range: %v", p.Confidence)
	}
}

func TestAgreeingSignalsCountsOnlyMatchingSubs(t *testing.T) {
	p, err := Analyze("BTCUSDT", trendingKlines(60, 100, 1))
	if err != nil {
		t.Fatal(err)
	}
	want := 0
	for _, s := range p.SubSignals {
		if p.Signal != analysis.SignalHold && s.Signal == p.Signal {
			want++
		}
	}
	if p.AgreeingSignals != want {
		t.Errorf("AgreeingSignals = %d, want %d", p.AgreeingSignals, want)
	}
}

func TestWeightsSumToOne(t *testing.T) {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("weights sum to %v, want 1", sum)
	}
}

func TestBullishEngulfingDetected(t *testing.T) {
	klines := trendingKlines(40, 100, -0.5) // decline sets the stage
	n := len(klines)
	klines[n-2] = binance.Kline{Open: 82, High: 82.5, Low: 80.5, Close: 81, Volume: 1000}
	klines[n-1] = binance.Kline{Open: 80.8, High: 83.5, Low: 80.5, Close: 83, Volume: 2500}

	sig := analyzePatterns(klines)
	if sig.Signal != analysis.SignalBuy || sig.Reason != "bullish engulfing" {
		t.Errorf("got %+v, want bullish engulfing buy", sig)
	}
}

func TestDojiProducesHold(t *testing.T) {
	klines := trendingKlines(40, 100, 1)
	n := len(klines)
	klines[n-1] = binance.Kline{Open: 140, High: 141, Low: 139, Close: 140.05, Volume: 1000}

	sig := analyzePatterns(klines)
	if sig.Signal != analysis.SignalHold || sig.Reason != "doji" {
		t.Errorf("got %+v, want doji hold", sig)
	}
}

func TestVolumeSpikeRaisesPriceActionConfidence(t *testing.T) {
	quiet := trendingKlines(40, 100, 1)
	spiked := trendingKlines(40, 100, 1)
	spiked[len(spiked)-1].Volume = 5000 // > 1.5x the 1000 average

	q := analyzePriceAction(quiet)
	s := analyzePriceAction(spiked)
	if s.Confidence <= q.Confidence {
		t.Errorf("volume spike confidence %v should exceed quiet %v", s.Confidence, q.Confidence)
	}
}

func TestClassifyRisk(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0.5, "low"},
		{1.0, "medium"},
		{1.5, "high"},
	}
	for _, tt := range tests {
		if got := classifyRisk(tt.ratio); got != tt.want {
			t.Errorf("classifyRisk(%v) = %s, want %s", tt.ratio, got, tt.want)
		}
	}
}
