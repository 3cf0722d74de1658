package risk

import (
	"math"
	"testing"

	"futures-trading-engine/internal/database"
)

func applyUpdate(t *database.Trade, up TrailingUpdate) {
	t.HighestPrice = up.HighestProfitSeen
	if up.NewStop > 0 {
		stop := up.NewStop
		t.TrailingStopPrice = &stop
	}
}

func TestTrailingRatchetLocksProfit(t *testing.T) {
	trade := &database.Trade{
		Symbol:     "BTCUSDT",
		Direction:  database.DirectionLong,
		EntryPrice: 100,
	}
	cfg := TrailingConfig{Percent: 2, ActivationPercent: 1}

	// price 100: no profit, no stop
	up := EvaluateTrailing(trade, 100, nil, cfg)
	if up.RatchetMoved || up.NewStop != 0 || up.StopHit {
		t.Fatalf("at entry price expected no action, got %+v", up)
	}
	applyUpdate(trade, up)

	// price 103: +3%, lock 1% -> stop 101
	up = EvaluateTrailing(trade, 103, nil, cfg)
	if !up.RatchetMoved || math.Abs(up.NewStop-101) > 1e-9 {
		t.Fatalf("at 103 expected stop 101, got %+v", up)
	}
	applyUpdate(trade, up)

	// price 108: +8%, lock 6% -> stop 106
	up = EvaluateTrailing(trade, 108, nil, cfg)
	if !up.RatchetMoved || math.Abs(up.NewStop-106) > 1e-9 {
		t.Fatalf("at 108 expected stop 106, got %+v", up)
	}
	applyUpdate(trade, up)

	// price 106: profit fell back, ratchet must hold at 106, no hit at equality
	up = EvaluateTrailing(trade, 106, nil, cfg)
	if up.StopHit {
		t.Fatal("price equal to stop must not trigger a hit")
	}
	if up.RatchetMoved || math.Abs(up.NewStop-106) > 1e-9 {
		t.Fatalf("stop must stay at 106, got %+v", up)
	}
	applyUpdate(trade, up)

	// price 106 again: still holding
	up = EvaluateTrailing(trade, 106, nil, cfg)
	if up.StopHit || up.RatchetMoved {
		t.Fatalf("repeat price at stop must be a no-op, got %+v", up)
	}

	// price 105.5: below the stop, trade closes at 105.5
	up = EvaluateTrailing(trade, 105.5, nil, cfg)
	if !up.StopHit || up.ExitPrice != 105.5 {
		t.Fatalf("expected stop hit at 105.5, got %+v", up)
	}
}

func TestTrailingShortRatchet(t *testing.T) {
	trade := &database.Trade{
		Symbol:     "ETHUSDT",
		Direction:  database.DirectionShort,
		EntryPrice: 200,
	}
	cfg := TrailingConfig{Percent: 2, ActivationPercent: 1}

	// price 190: +5% for a short, lock 3% -> stop 194
	up := EvaluateTrailing(trade, 190, nil, cfg)
	if !up.RatchetMoved || math.Abs(up.NewStop-194) > 1e-9 {
		t.Fatalf("short at 190 expected stop 194, got %+v", up)
	}
	applyUpdate(trade, up)

	// price rebounds above the stop: hit
	up = EvaluateTrailing(trade, 195, nil, cfg)
	if !up.StopHit || up.ExitPrice != 195 {
		t.Fatalf("short rebound through stop should hit, got %+v", up)
	}
}

func TestTrailingStopNeverRetreats(t *testing.T) {
	stop := 106.0
	trade := &database.Trade{
		Direction:         database.DirectionLong,
		EntryPrice:        100,
		HighestPrice:      8,
		TrailingStopPrice: &stop,
	}
	cfg := TrailingConfig{Percent: 2, ActivationPercent: 1}

	up := EvaluateTrailing(trade, 107, nil, cfg)
	if up.RatchetMoved {
		t.Errorf("profit below previous highest must not move the stop: %+v", up)
	}
	if up.NewStop != 106 {
		t.Errorf("stop retreated to %v", up.NewStop)
	}
}

func TestTrailingNeverArmsBelowBreakEven(t *testing.T) {
	trade := &database.Trade{
		Direction:  database.DirectionLong,
		EntryPrice: 100,
	}
	// activation at 1% but lock distance 3% would place the stop below entry
	cfg := TrailingConfig{Percent: 3, ActivationPercent: 1}

	up := EvaluateTrailing(trade, 102, nil, cfg)
	if up.NewStop != 0 || up.RatchetMoved {
		t.Errorf("stop below break-even must not be set, got %+v", up)
	}
	if !up.Activated || !up.HighestAdvanced {
		t.Errorf("activation and highest tracking should still advance: %+v", up)
	}
}

func TestTrailingPrefersExchangeProfit(t *testing.T) {
	trade := &database.Trade{
		Direction:  database.DirectionLong,
		EntryPrice: 100,
	}
	cfg := TrailingConfig{Percent: 2, ActivationPercent: 1}

	exchange := 10.0 // exchange reports +10% even though price says +3%
	up := EvaluateTrailing(trade, 103, &exchange, cfg)
	if math.Abs(up.NewStop-108) > 1e-9 {
		t.Errorf("exchange profit should drive the ratchet, stop = %v want 108", up.NewStop)
	}
}

func TestSanitizeHighestProfitLegacyValues(t *testing.T) {
	tests := []struct {
		stored float64
		want   float64
	}{
		{8, 8},
		{0, 0},
		{50, 50},
		{51, 0},      // legacy raw price
		{65432.1, 0}, // legacy raw price
		{-3, 0},
	}
	for _, tt := range tests {
		if got := SanitizeHighestProfit(tt.stored); got != tt.want {
			t.Errorf("SanitizeHighestProfit(%v) = %v, want %v", tt.stored, got, tt.want)
		}
	}
}

func TestProfitPercentDirections(t *testing.T) {
	long := &database.Trade{Direction: database.DirectionLong, EntryPrice: 100}
	short := &database.Trade{Direction: database.DirectionShort, EntryPrice: 100}

	if got := ProfitPercent(long, 105); math.Abs(got-5) > 1e-9 {
		t.Errorf("long profit = %v, want 5", got)
	}
	if got := ProfitPercent(short, 95); math.Abs(got-5) > 1e-9 {
		t.Errorf("short profit = %v, want 5", got)
	}
	if got := ProfitPercent(long, 95); math.Abs(got+5) > 1e-9 {
		t.Errorf("long drawdown = %v, want -5", got)
	}
}
