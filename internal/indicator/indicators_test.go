package indicator

import (
	"math"
	"testing"

	"futures-trading-engine/internal/binance"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func risingKlines(n int, start, step float64) []binance.Kline {
	klines := make([]binance.Kline, n)
	price := start
	for i := range klines {
		klines[i] = binance.Kline{
			Open:   price,
			High:   price + step,
			Low:    price - step/2,
			Close:  price + step*0.8,
			Volume: 1000,
		}
		price += step
	}
	return klines
}

func TestCalculateSMA(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}
	if got := CalculateSMA(prices, 5); got != 3 {
		t.Errorf("SMA(1..5, 5) = %v, want 3", got)
	}
	if got := CalculateSMA(prices, 2); got != 4.5 {
		t.Errorf("SMA last 2 = %v, want 4.5", got)
	}
	if got := CalculateSMA(prices, 10); got != 0 {
		t.Errorf("SMA with short input = %v, want 0", got)
	}
}

func TestCalculateEMAConstantSeries(t *testing.T) {
	prices := make([]float64, 50)
	for i := range prices {
		prices[i] = 42
	}
	if got := CalculateEMA(prices, 10); !almostEqual(got, 42, 1e-9) {
		t.Errorf("EMA of constant series = %v, want 42", got)
	}
}

func TestCalculateRSINeutralOnShortInput(t *testing.T) {
	if got := CalculateRSI([]float64{1, 2, 3}, 14); got != 50 {
		t.Errorf("RSI with insufficient data = %v, want 50", got)
	}
}

func TestCalculateRSIExtremes(t *testing.T) {
	up := make([]float64, 30)
	down := make([]float64, 30)
	for i := range up {
		up[i] = 100 + float64(i)
		down[i] = 100 - float64(i)
	}
	if got := CalculateRSI(up, 14); got != 100 {
		t.Errorf("RSI of pure uptrend = %v, want 100", got)
	}
	if got := CalculateRSI(down, 14); got > 1 {
		t.Errorf("RSI of pure downtrend = %v, want ~0", got)
	}
}

func TestCalculateRSIDeterministic(t *testing.T) {
	prices := []float64{44, 44.3, 44.1, 43.6, 44.3, 44.8, 45.1, 45.4, 45.8, 46.1,
		45.9, 46.3, 46.1, 46.0, 46.4, 46.2, 45.6, 46.2, 46.2, 46.0}
	a := CalculateRSI(prices, 14)
	b := CalculateRSI(prices, 14)
	if a != b {
		t.Errorf("RSI not deterministic: %v vs %v", a, b)
	}
	if a < 0 || a > 100 {
		t.Errorf("RSI out of range: %v", a)
	}
}

func TestCalculateMACDCrossoverFields(t *testing.T) {
	prices := make([]float64, 80)
	for i := range prices {
		prices[i] = 100 + 5*math.Sin(float64(i)/8)
	}
	r := CalculateMACD(prices, 12, 26, 9)
	if r.Histogram != r.MACD-r.Signal {
		t.Errorf("histogram %v != macd-signal %v", r.Histogram, r.MACD-r.Signal)
	}
	again := CalculateMACD(prices, 12, 26, 9)
	if r != again {
		t.Error("MACD not deterministic")
	}
}

func TestCalculateMACDInsufficientData(t *testing.T) {
	r := CalculateMACD([]float64{1, 2, 3}, 12, 26, 9)
	if r.MACD != 0 || r.Signal != 0 {
		t.Errorf("MACD with short input should be zero, got %+v", r)
	}
}

func TestCalculateATRPositiveAndDeterministic(t *testing.T) {
	klines := risingKlines(40, 100, 1)
	a := CalculateATR(klines, 14)
	if a <= 0 {
		t.Fatalf("ATR = %v, want > 0", a)
	}
	if b := CalculateATR(klines, 14); a != b {
		t.Error("ATR not deterministic")
	}
}

func TestBollingerPercentBExact(t *testing.T) {
	prices := []float64{98, 99, 100, 101, 102, 101, 100, 99, 98, 100,
		101, 102, 103, 102, 101, 100, 99, 100, 101, 103}
	r := CalculateBollingerBands(prices, 20, 2)
	price := prices[len(prices)-1]
	want := (price - r.Lower) / (r.Upper - r.Lower)
	if !almostEqual(r.PercentB, want, 1e-12) {
		t.Errorf("%%B = %v, want exact %v", r.PercentB, want)
	}
	if r.Upper <= r.Middle || r.Middle <= r.Lower {
		t.Errorf("band ordering violated: %+v", r)
	}
}

func TestBollingerBandwidth(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 100
	}
	r := CalculateBollingerBands(prices, 20, 2)
	if r.Bandwidth != 0 {
		t.Errorf("bandwidth of flat series = %v, want 0", r.Bandwidth)
	}
	if r.PercentB != 0.5 {
		t.Errorf("%%B of flat series = %v, want 0.5", r.PercentB)
	}
}

func TestCalculateStochasticBounds(t *testing.T) {
	klines := risingKlines(30, 100, 1)
	k, d := CalculateStochastic(klines, 14, 3)
	if k < 0 || k > 100 || d < 0 || d > 100 {
		t.Errorf("stochastic out of bounds: k=%v d=%v", k, d)
	}
	// strong uptrend closes near the top of the range
	if k < 60 {
		t.Errorf("uptrend %%K = %v, want high", k)
	}
}

func TestCalculateADXTrendingMarket(t *testing.T) {
	klines := risingKlines(80, 100, 2)
	r := CalculateADX(klines, 14)
	if r.ADX <= 0 {
		t.Fatalf("ADX = %v, want > 0 for trending series", r.ADX)
	}
	if r.PlusDI <= r.MinusDI {
		t.Errorf("uptrend should have +DI (%v) > -DI (%v)", r.PlusDI, r.MinusDI)
	}
	if r.Trend == "none" {
		t.Errorf("steady uptrend classified as %q", r.Trend)
	}
}

func TestCalculateADXInsufficientData(t *testing.T) {
	r := CalculateADX(risingKlines(5, 100, 1), 14)
	if r.ADX != 0 || r.Trend != "none" {
		t.Errorf("short input should yield zero ADX, got %+v", r)
	}
}

func TestFindSupportResistance(t *testing.T) {
	// a clear pivot high at 110 and pivot low at 90 in the middle
	klines := []binance.Kline{
		{High: 101, Low: 99, Close: 100},
		{High: 102, Low: 100, Close: 101},
		{High: 110, Low: 104, Close: 108},
		{High: 105, Low: 95, Close: 96},
		{High: 96, Low: 90, Close: 92},
		{High: 98, Low: 93, Close: 97},
		{High: 100, Low: 96, Close: 99},
	}
	lv := FindSupportResistance(klines)
	if len(lv.Resistance) == 0 || !almostEqual(lv.Resistance[0], 110, 1e-9) {
		t.Errorf("expected resistance at 110, got %v", lv.Resistance)
	}
	if len(lv.Support) == 0 || !almostEqual(lv.Support[0], 90, 1e-9) {
		t.Errorf("expected support at 90, got %v", lv.Support)
	}
}

func TestAppendClusteredMergesNearbyLevels(t *testing.T) {
	levels := appendClustered(nil, 100)
	levels = appendClustered(levels, 100.3) // within 0.5%
	if len(levels) != 1 {
		t.Fatalf("nearby levels not merged: %v", levels)
	}
	levels = appendClustered(levels, 103) // outside tolerance
	if len(levels) != 2 {
		t.Errorf("distinct level wrongly merged: %v", levels)
	}
}

func TestCalculateMomentum(t *testing.T) {
	prices := []float64{100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110}
	got := CalculateMomentum(prices, 10)
	if !almostEqual(got, 10, 1e-9) {
		t.Errorf("momentum = %v, want 10", got)
	}
	if CalculateMomentum(prices[:3], 10) != 0 {
		t.Error("momentum with short input should be 0")
	}
}

func TestNearestLevel(t *testing.T) {
	levels := []float64{90, 100, 110}
	if got := NearestLevel(levels, 98); got != 100 {
		t.Errorf("NearestLevel = %v, want 100", got)
	}
	if got := NearestLevel(nil, 98); got != 0 {
		t.Errorf("NearestLevel of empty = %v, want 0", got)
	}
}
