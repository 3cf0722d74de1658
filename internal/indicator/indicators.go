// Package indicator provides pure technical-indicator functions on price
// series. All functions are deterministic and treat input slices as
// oldest-first.
package indicator

import (
	"math"

	"futures-trading-engine/internal/binance"
)

// CalculateSMA returns the simple moving average of the last period prices.
// Returns 0 when there is not enough data.
func CalculateSMA(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return 0
	}
	sum := 0.0
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}
	return sum / float64(period)
}

// emaSeries computes a full-length EMA series seeded with the SMA of the
// first period values. Indices before period-1 are zero and must not be read.
func emaSeries(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	if period <= 0 || len(prices) < period {
		return out
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	out[period-1] = sum / float64(period)

	mult := 2.0 / (float64(period) + 1.0)
	for i := period; i < len(prices); i++ {
		out[i] = prices[i]*mult + out[i-1]*(1.0-mult)
	}
	return out
}

// CalculateEMA returns the SMA-seeded exponential moving average
func CalculateEMA(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return 0
	}
	series := emaSeries(prices, period)
	return series[len(series)-1]
}

// CalculateRSI returns the Wilder-smoothed relative strength index in 0-100.
// Fewer than period+1 samples yields the neutral value 50.
func CalculateRSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACDResult carries the current and previous-bar MACD values so callers can
// detect signal-line crossovers.
type MACDResult struct {
	MACD       float64
	Signal     float64
	Histogram  float64
	PrevMACD   float64
	PrevSignal float64
}

// CalculateMACD computes the MACD line (fast EMA minus slow EMA), its
// signal-period EMA, and the histogram.
func CalculateMACD(prices []float64, fast, slow, signalPeriod int) MACDResult {
	var r MACDResult
	if fast <= 0 || slow <= fast || signalPeriod <= 0 {
		return r
	}
	if len(prices) < slow+signalPeriod {
		return r
	}

	fastEMA := emaSeries(prices, fast)
	slowEMA := emaSeries(prices, slow)

	macdLine := make([]float64, 0, len(prices)-slow+1)
	for i := slow - 1; i < len(prices); i++ {
		macdLine = append(macdLine, fastEMA[i]-slowEMA[i])
	}

	signalLine := emaSeries(macdLine, signalPeriod)

	n := len(macdLine)
	r.MACD = macdLine[n-1]
	r.Signal = signalLine[n-1]
	r.Histogram = r.MACD - r.Signal
	if n >= 2 && n-2 >= signalPeriod-1 {
		r.PrevMACD = macdLine[n-2]
		r.PrevSignal = signalLine[n-2]
	}
	return r
}

// trueRange returns the true range of candle i against its predecessor
func trueRange(klines []binance.Kline, i int) float64 {
	if i == 0 {
		return klines[0].High - klines[0].Low
	}
	hl := klines[i].High - klines[i].Low
	hc := math.Abs(klines[i].High - klines[i-1].Close)
	lc := math.Abs(klines[i].Low - klines[i-1].Close)
	return math.Max(hl, math.Max(hc, lc))
}

// CalculateATR returns the Wilder-smoothed average true range
func CalculateATR(klines []binance.Kline, period int) float64 {
	if period <= 0 || len(klines) < period+1 {
		return 0
	}

	atr := 0.0
	for i := 1; i <= period; i++ {
		atr += trueRange(klines, i)
	}
	atr /= float64(period)

	for i := period + 1; i < len(klines); i++ {
		atr = (atr*float64(period-1) + trueRange(klines, i)) / float64(period)
	}
	return atr
}

// BollingerResult is the band set plus the derived %B and bandwidth
type BollingerResult struct {
	Upper     float64
	Middle    float64
	Lower     float64
	PercentB  float64
	Bandwidth float64
}

// CalculateBollingerBands computes middle SMA plus/minus k standard
// deviations, with %B for the latest price and the relative bandwidth.
func CalculateBollingerBands(prices []float64, period int, k float64) BollingerResult {
	var r BollingerResult
	if period <= 0 || len(prices) < period {
		return r
	}

	window := prices[len(prices)-period:]
	mean := 0.0
	for _, p := range window {
		mean += p
	}
	mean /= float64(period)

	variance := 0.0
	for _, p := range window {
		variance += (p - mean) * (p - mean)
	}
	stdDev := math.Sqrt(variance / float64(period))

	r.Middle = mean
	r.Upper = mean + k*stdDev
	r.Lower = mean - k*stdDev

	price := prices[len(prices)-1]
	if r.Upper != r.Lower {
		r.PercentB = (price - r.Lower) / (r.Upper - r.Lower)
	} else {
		r.PercentB = 0.5
	}
	if r.Middle != 0 {
		r.Bandwidth = (r.Upper - r.Lower) / r.Middle
	}
	return r
}

// CalculateStochastic returns %K over kPeriod and %D as the dPeriod SMA of
// the %K series.
func CalculateStochastic(klines []binance.Kline, kPeriod, dPeriod int) (k, d float64) {
	if kPeriod <= 0 || dPeriod <= 0 || len(klines) < kPeriod+dPeriod-1 {
		return 50, 50
	}

	kValues := make([]float64, 0, dPeriod)
	for offset := dPeriod - 1; offset >= 0; offset-- {
		end := len(klines) - offset
		window := klines[end-kPeriod : end]

		highest, lowest := window[0].High, window[0].Low
		for _, c := range window[1:] {
			if c.High > highest {
				highest = c.High
			}
			if c.Low < lowest {
				lowest = c.Low
			}
		}

		kv := 50.0
		if highest != lowest {
			kv = (window[len(window)-1].Close - lowest) / (highest - lowest) * 100
		}
		kValues = append(kValues, kv)
	}

	k = kValues[len(kValues)-1]
	sum := 0.0
	for _, v := range kValues {
		sum += v
	}
	d = sum / float64(len(kValues))
	return k, d
}

// ADXResult carries the directional movement readings and a trend category
type ADXResult struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64
	Trend   string // strong, moderate, weak, none
}

// CalculateADX computes Wilder's average directional index with +DI and -DI
func CalculateADX(klines []binance.Kline, period int) ADXResult {
	var r ADXResult
	r.Trend = "none"
	if period <= 0 || len(klines) < 2*period+1 {
		return r
	}

	n := len(klines)
	trs := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		trs[i] = trueRange(klines, i)
		upMove := klines[i].High - klines[i-1].High
		downMove := klines[i-1].Low - klines[i].Low
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
	}

	smTR, smPlus, smMinus := 0.0, 0.0, 0.0
	for i := 1; i <= period; i++ {
		smTR += trs[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	dxValues := make([]float64, 0, n-period)
	appendDX := func() {
		if smTR == 0 {
			dxValues = append(dxValues, 0)
			return
		}
		pDI := 100 * smPlus / smTR
		mDI := 100 * smMinus / smTR
		r.PlusDI = pDI
		r.MinusDI = mDI
		if pDI+mDI == 0 {
			dxValues = append(dxValues, 0)
			return
		}
		dxValues = append(dxValues, 100*math.Abs(pDI-mDI)/(pDI+mDI))
	}
	appendDX()

	for i := period + 1; i < n; i++ {
		smTR = smTR - smTR/float64(period) + trs[i]
		smPlus = smPlus - smPlus/float64(period) + plusDM[i]
		smMinus = smMinus - smMinus/float64(period) + minusDM[i]
		appendDX()
	}

	if len(dxValues) < period {
		return r
	}
	adx := 0.0
	for _, dx := range dxValues[:period] {
		adx += dx
	}
	adx /= float64(period)
	for _, dx := range dxValues[period:] {
		adx = (adx*float64(period-1) + dx) / float64(period)
	}
	r.ADX = adx

	switch {
	case adx >= 50:
		r.Trend = "strong"
	case adx >= 25:
		r.Trend = "moderate"
	case adx >= 15:
		r.Trend = "weak"
	default:
		r.Trend = "none"
	}
	return r
}

// Levels is a set of support and resistance prices, strongest-confirmed last
type Levels struct {
	Support    []float64
	Resistance []float64
}

const (
	pivotWing        = 2 // bars on each side of a pivot, 5-bar confirmation
	clusterTolerance = 0.005
	maxLevels        = 5
)

// FindSupportResistance detects pivot highs and lows with 5-bar confirmation,
// clusters levels within 0.5% of each other, and keeps the 5 most recent of
// each kind.
func FindSupportResistance(klines []binance.Kline) Levels {
	var lv Levels
	if len(klines) < 2*pivotWing+1 {
		return lv
	}

	for i := pivotWing; i < len(klines)-pivotWing; i++ {
		isHigh, isLow := true, true
		for j := i - pivotWing; j <= i+pivotWing; j++ {
			if j == i {
				continue
			}
			if klines[j].High >= klines[i].High {
				isHigh = false
			}
			if klines[j].Low <= klines[i].Low {
				isLow = false
			}
		}
		if isHigh {
			lv.Resistance = appendClustered(lv.Resistance, klines[i].High)
		}
		if isLow {
			lv.Support = appendClustered(lv.Support, klines[i].Low)
		}
	}

	if len(lv.Resistance) > maxLevels {
		lv.Resistance = lv.Resistance[len(lv.Resistance)-maxLevels:]
	}
	if len(lv.Support) > maxLevels {
		lv.Support = lv.Support[len(lv.Support)-maxLevels:]
	}
	return lv
}

// appendClustered merges a new level into an existing one within tolerance
// instead of recording a near-duplicate.
func appendClustered(levels []float64, price float64) []float64 {
	for i, existing := range levels {
		if existing != 0 && math.Abs(price-existing)/existing < clusterTolerance {
			levels[i] = (existing + price) / 2
			return levels
		}
	}
	return append(levels, price)
}

// NearestLevel returns the level closest to price, or 0 when none exist
func NearestLevel(levels []float64, price float64) float64 {
	best, bestDist := 0.0, math.MaxFloat64
	for _, lv := range levels {
		d := math.Abs(price - lv)
		if d < bestDist {
			best, bestDist = lv, d
		}
	}
	return best
}

// CalculateMomentum returns the percent change over the lookback period
func CalculateMomentum(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 0
	}
	past := prices[len(prices)-1-period]
	if past == 0 {
		return 0
	}
	return (prices[len(prices)-1] - past) / past * 100
}

// CalculateROC is the rate of change, identical in form to momentum
func CalculateROC(prices []float64, period int) float64 {
	return CalculateMomentum(prices, period)
}

// AverageVolume returns the mean volume of the last period candles
func AverageVolume(klines []binance.Kline, period int) float64 {
	if period <= 0 || len(klines) < period {
		return 0
	}
	sum := 0.0
	for _, k := range klines[len(klines)-period:] {
		sum += k.Volume
	}
	return sum / float64(period)
}

// Closes extracts closing prices oldest-first
func Closes(klines []binance.Kline) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		out[i] = k.Close
	}
	return out
}
