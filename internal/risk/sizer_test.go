package risk

import (
	"math"
	"testing"

	"futures-trading-engine/internal/errs"
)

func TestClassicalQuantityRiskDriven(t *testing.T) {
	// balance 10000, 2% risk = 200; stop distance 4 -> 50 units
	qty, err := ClassicalQuantity(10000, 100, 96, 10, 2)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(qty-50) > 1e-9 {
		t.Errorf("quantity = %v, want 50", qty)
	}
}

func TestClassicalQuantityMarginCap(t *testing.T) {
	// a tight stop would size 2000 units; the margin cap limits it to
	// 0.5 * 10000 * 10 / 100 = 500
	qty, err := ClassicalQuantity(10000, 100, 99.9, 10, 2)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(qty-500) > 1e-9 {
		t.Errorf("quantity = %v, want margin-capped 500", qty)
	}
}

func TestClassicalQuantityRejectsZeroStopDistance(t *testing.T) {
	_, err := ClassicalQuantity(10000, 100, 100, 10, 2)
	if err == nil || !errs.Is(err, errs.InvalidQuantity) {
		t.Errorf("expected invalid_quantity, got %v", err)
	}
}

func TestSmartSizePercentMultipliers(t *testing.T) {
	cfg := SizerConfig{
		MaxRiskPerTrade:      2,
		VolatilityAdjustment: true,
		MaxPositionPercent:   20,
		MinPositionPercent:   0.5,
	}

	tests := []struct {
		name       string
		volatility string
		strength   float64
		want       float64
	}{
		{"low vol strong signal", VolatilityLow, 90, 2 * 1.2 * 1.15},
		{"medium vol mid signal", VolatilityMedium, 70, 2},
		{"high vol mid signal", VolatilityHigh, 70, 2 * 0.7},
		{"extreme vol weak signal", VolatilityExtreme, 50, 2 * 0.4 * 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SmartSizePercent(cfg, tt.volatility, tt.strength)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("SmartSizePercent = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSmartSizePercentClamped(t *testing.T) {
	cfg := SizerConfig{
		MaxRiskPerTrade:      2,
		VolatilityAdjustment: true,
		MaxPositionPercent:   2.1,
		MinPositionPercent:   1,
	}
	if got := SmartSizePercent(cfg, VolatilityLow, 90); got != 2.1 {
		t.Errorf("upper clamp failed: %v", got)
	}

	cfg.MinPositionPercent = 1.5
	cfg.MaxPositionPercent = 20
	if got := SmartSizePercent(cfg, VolatilityExtreme, 40); got != 1.5 {
		t.Errorf("lower clamp failed: %v", got)
	}
}

func TestSmartQuantity(t *testing.T) {
	// 10% of 10000 at 10x leverage = 10000 notional -> 100 units at price 100
	qty, err := SmartQuantity(10000, 100, 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(qty-100) > 1e-9 {
		t.Errorf("quantity = %v, want 100", qty)
	}
}

func TestDeriveLevels(t *testing.T) {
	stop, target := DeriveLevels(100, true, 2, 2)
	if stop != 98 || target != 104 {
		t.Errorf("long levels = %v/%v, want 98/104", stop, target)
	}

	stop, target = DeriveLevels(100, false, 2, 2)
	if stop != 102 || target != 96 {
		t.Errorf("short levels = %v/%v, want 102/96", stop, target)
	}
}

func TestDeriveATRLevels(t *testing.T) {
	stop, target := DeriveATRLevels(100, true, 2, 1.5, 2)
	if stop != 97 || target != 106 {
		t.Errorf("ATR long levels = %v/%v, want 97/106", stop, target)
	}
}

func TestClassifyVolatility(t *testing.T) {
	tests := []struct {
		atrPercent float64
		want       string
	}{
		{0.5, VolatilityLow},
		{2, VolatilityMedium},
		{4, VolatilityHigh},
		{7, VolatilityExtreme},
	}
	for _, tt := range tests {
		if got := ClassifyVolatility(tt.atrPercent); got != tt.want {
			t.Errorf("ClassifyVolatility(%v) = %s, want %s", tt.atrPercent, got, tt.want)
		}
	}
}
