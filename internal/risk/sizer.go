// Package risk holds position sizing, the market-condition and
// account-protection gates, and the trailing-stop ratchet.
package risk

import (
	"math"

	"futures-trading-engine/internal/errs"
)

// Volatility levels used by smart sizing
const (
	VolatilityLow     = "low"
	VolatilityMedium  = "medium"
	VolatilityHigh    = "high"
	VolatilityExtreme = "extreme"
)

// ClassifyVolatility buckets an ATR percent of price
func ClassifyVolatility(atrPercent float64) string {
	switch {
	case atrPercent < 1.5:
		return VolatilityLow
	case atrPercent < 3.5:
		return VolatilityMedium
	case atrPercent < 6:
		return VolatilityHigh
	default:
		return VolatilityExtreme
	}
}

// SizerConfig carries the sizing-related settings
type SizerConfig struct {
	MaxRiskPerTrade      float64
	RiskRewardRatio      float64
	VolatilityAdjustment bool
	MaxPositionPercent   float64
	MinPositionPercent   float64
}

// ClassicalQuantity sizes a position from the risk amount and stop distance,
// capped at half the leveraged balance as a margin-safety measure.
func ClassicalQuantity(balance, entry, stop float64, leverage int, maxRiskPercent float64) (float64, error) {
	if entry <= 0 || balance <= 0 {
		return 0, errs.New(errs.InvalidQuantity, "balance %.2f and entry %.4f must be positive", balance, entry)
	}
	stopDistance := math.Abs(entry - stop)
	if stopDistance <= 0 {
		return 0, errs.New(errs.InvalidQuantity, "stop %.4f equals entry %.4f", stop, entry)
	}

	riskAmount := balance * maxRiskPercent / 100
	byRisk := riskAmount / stopDistance
	byMargin := 0.5 * balance * float64(leverage) / entry
	return math.Min(byRisk, byMargin), nil
}

// SmartSizePercent computes the volatility- and strength-adjusted position
// size as a percent of equity, clamped to the configured bounds.
func SmartSizePercent(cfg SizerConfig, volatilityLevel string, signalStrength float64) float64 {
	riskPercent := cfg.MaxRiskPerTrade

	if cfg.VolatilityAdjustment {
		switch volatilityLevel {
		case VolatilityLow:
			riskPercent *= 1.2
		case VolatilityMedium:
			// unchanged
		case VolatilityHigh:
			riskPercent *= 0.7
		case VolatilityExtreme:
			riskPercent *= 0.4
		}
	}

	if signalStrength >= 85 {
		riskPercent *= 1.15
	} else if signalStrength < 60 {
		riskPercent *= 0.7
	}

	return math.Min(math.Max(riskPercent, cfg.MinPositionPercent), cfg.MaxPositionPercent)
}

// SmartQuantity converts a size percent of equity into a leveraged quantity
func SmartQuantity(balance, entry, sizePercent float64, leverage int) (float64, error) {
	if entry <= 0 || balance <= 0 {
		return 0, errs.New(errs.InvalidQuantity, "balance %.2f and entry %.4f must be positive", balance, entry)
	}
	notional := balance * sizePercent / 100 * float64(leverage)
	return notional / entry, nil
}

// DeriveLevels computes stop and target from a percent risk distance when no
// strategy-supplied levels exist.
func DeriveLevels(entry float64, long bool, riskPercent, riskReward float64) (stop, target float64) {
	distance := entry * riskPercent / 100
	if long {
		return entry - distance, entry + distance*riskReward
	}
	return entry + distance, entry - distance*riskReward
}

// DeriveATRLevels computes stop and target from an ATR multiple
func DeriveATRLevels(entry float64, long bool, atr, multiplier, riskReward float64) (stop, target float64) {
	distance := atr * multiplier
	if long {
		return entry - distance, entry + distance*riskReward
	}
	return entry + distance, entry - distance*riskReward
}
