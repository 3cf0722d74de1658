package risk

import (
	"futures-trading-engine/internal/database"
)

// TrailingConfig carries the trailing-stop settings
type TrailingConfig struct {
	Percent           float64 // locked distance below the highest profit, in percent of entry
	ActivationPercent float64 // profit percent required before the ratchet arms
}

// legacyHighestCutoff detects stored highest-profit values that are actually
// raw prices from older rows. A profit percent never plausibly exceeds this.
const legacyHighestCutoff = 50

// SanitizeHighestProfit resets legacy price-valued highest-profit fields
func SanitizeHighestProfit(stored float64) float64 {
	if stored > legacyHighestCutoff || stored < 0 {
		return 0
	}
	return stored
}

// ProfitPercent derives the unleveraged profit percent from price movement
func ProfitPercent(t *database.Trade, price float64) float64 {
	if t.EntryPrice <= 0 {
		return 0
	}
	pct := (price - t.EntryPrice) / t.EntryPrice * 100
	if !t.IsLong() {
		pct = -pct
	}
	return pct
}

// TrailingUpdate is the outcome of one trailing-stop evaluation
type TrailingUpdate struct {
	ProfitPercent     float64
	HighestProfitSeen float64
	HighestAdvanced   bool
	Activated         bool
	NewStop           float64 // 0 when no stop is set
	RatchetMoved      bool
	StopHit           bool
	ExitPrice         float64
}

// EvaluateTrailing applies the profit-percent ratchet to one active trade.
// exchangeProfitPct, when available, takes precedence over the price-derived
// percent. The stop only ever moves in the profit-locking direction, and a
// stop is never placed on the losing side of the entry.
func EvaluateTrailing(t *database.Trade, price float64, exchangeProfitPct *float64, cfg TrailingConfig) TrailingUpdate {
	up := TrailingUpdate{}

	up.ProfitPercent = ProfitPercent(t, price)
	if exchangeProfitPct != nil {
		up.ProfitPercent = *exchangeProfitPct
	}

	highest := SanitizeHighestProfit(t.HighestPrice)
	up.HighestProfitSeen = highest
	if up.ProfitPercent > highest {
		up.HighestProfitSeen = up.ProfitPercent
		up.HighestAdvanced = true
	}

	var existing float64
	if t.TrailingStopPrice != nil {
		existing = *t.TrailingStopPrice
		up.NewStop = existing
	}

	// a previously-set stop crossed by price closes the trade; equality is
	// not a hit, the price must move through the stop
	if existing > 0 {
		if t.IsLong() && price < existing {
			up.StopHit = true
			up.ExitPrice = price
			return up
		}
		if !t.IsLong() && price > existing {
			up.StopHit = true
			up.ExitPrice = price
			return up
		}
	}

	if up.HighestProfitSeen < cfg.ActivationPercent {
		return up
	}
	up.Activated = true

	locked := up.HighestProfitSeen - cfg.Percent
	if locked <= 0 {
		// the ratchet never places a stop at or below break-even
		return up
	}

	var candidate float64
	if t.IsLong() {
		candidate = t.EntryPrice * (1 + locked/100)
		if existing == 0 || candidate > existing {
			up.NewStop = candidate
			up.RatchetMoved = true
		}
	} else {
		candidate = t.EntryPrice * (1 - locked/100)
		if existing == 0 || candidate < existing {
			up.NewStop = candidate
			up.RatchetMoved = true
		}
	}
	return up
}
