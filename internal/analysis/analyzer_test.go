package analysis

import (
	"errors"
	"testing"
)

// crashSeries drops sharply at the end so RSI goes deep oversold
func crashSeries() []float64 {
	prices := make([]float64, 80)
	for i := 0; i < 60; i++ {
		prices[i] = 100
	}
	for i := 60; i < 80; i++ {
		prices[i] = 100 - float64(i-59)*2
	}
	return prices
}

func rallySeries() []float64 {
	prices := make([]float64, 80)
	for i := 0; i < 60; i++ {
		prices[i] = 100
	}
	for i := 60; i < 80; i++ {
		prices[i] = 100 + float64(i-59)*2
	}
	return prices
}

func TestAnalyzeOversoldYieldsBuy(t *testing.T) {
	r := Analyze(crashSeries(), DefaultConfig())
	if r.OverallSignal != SignalBuy {
		t.Fatalf("crash series signal = %s, want buy", r.OverallSignal)
	}
	if len(r.ConfirmedSignals) < 1 {
		t.Error("expected at least one confirming indicator")
	}
	if r.SignalStrength <= 0 || r.SignalStrength > 100 {
		t.Errorf("strength out of range: %v", r.SignalStrength)
	}
}

func TestAnalyzeOverboughtYieldsSell(t *testing.T) {
	r := Analyze(rallySeries(), DefaultConfig())
	if r.OverallSignal != SignalSell {
		t.Fatalf("rally series signal = %s, want sell", r.OverallSignal)
	}
}

func TestAnalyzeFlatSeriesHolds(t *testing.T) {
	prices := make([]float64, 80)
	for i := range prices {
		prices[i] = 100
	}
	r := Analyze(prices, DefaultConfig())
	if r.OverallSignal != SignalHold {
		t.Errorf("flat series signal = %s, want hold", r.OverallSignal)
	}
	if r.SignalStrength != 0 {
		t.Errorf("hold strength = %v, want 0", r.SignalStrength)
	}
}

func TestAnalyzeInsufficientDataHolds(t *testing.T) {
	r := Analyze([]float64{1, 2, 3}, DefaultConfig())
	if r.OverallSignal != SignalHold {
		t.Errorf("short input signal = %s, want hold", r.OverallSignal)
	}
}

func TestSingleIndicatorSuffices(t *testing.T) {
	// the relaxed rule: one confirming indicator is enough for a direction
	r := Analyze(crashSeries(), DefaultConfig())
	if r.OverallSignal == SignalHold {
		t.Error("one confirming indicator should produce an actionable signal")
	}
}

func TestMultiTimeframeSingleAgreementSuffices(t *testing.T) {
	fetch := func(interval string) ([]float64, error) {
		if interval == "1h" {
			return crashSeries(), nil
		}
		flat := make([]float64, 80)
		for i := range flat {
			flat[i] = 100
		}
		return flat, nil
	}

	r := AnalyzeMultiTimeframe(fetch, []string{"15m", "1h", "4h"}, DefaultConfig())
	if r.OverallSignal != SignalBuy {
		t.Fatalf("signal = %s, want buy with one agreeing timeframe", r.OverallSignal)
	}
	if len(r.Agreeing) != 1 || r.Agreeing[0] != "1h" {
		t.Errorf("agreeing = %v, want [1h]", r.Agreeing)
	}
}

func TestMultiTimeframeStrengthIsAverageOfAgreeing(t *testing.T) {
	fetch := func(interval string) ([]float64, error) {
		return crashSeries(), nil
	}

	r := AnalyzeMultiTimeframe(fetch, []string{"15m", "1h"}, DefaultConfig())
	if r.OverallSignal != SignalBuy {
		t.Fatalf("signal = %s, want buy", r.OverallSignal)
	}
	single := Analyze(crashSeries(), DefaultConfig())
	if r.SignalStrength != single.SignalStrength {
		t.Errorf("average of identical strengths %v != single strength %v",
			r.SignalStrength, single.SignalStrength)
	}
}

func TestMultiTimeframeFetchErrorsAreSkipped(t *testing.T) {
	fetch := func(interval string) ([]float64, error) {
		if interval == "4h" {
			return nil, errors.New("exchange unavailable")
		}
		return crashSeries(), nil
	}

	r := AnalyzeMultiTimeframe(fetch, []string{"1h", "4h"}, DefaultConfig())
	if r.OverallSignal != SignalBuy {
		t.Errorf("fetch error should not block remaining timeframes, got %s", r.OverallSignal)
	}
	if len(r.PerTimeframe) != 1 {
		t.Errorf("expected 1 analyzed timeframe, got %d", len(r.PerTimeframe))
	}
}

func TestMultiTimeframeConflictHolds(t *testing.T) {
	fetch := func(interval string) ([]float64, error) {
		if interval == "15m" {
			return crashSeries(), nil
		}
		return rallySeries(), nil
	}

	r := AnalyzeMultiTimeframe(fetch, []string{"15m", "1h"}, DefaultConfig())
	if r.OverallSignal != SignalHold {
		t.Errorf("tied votes should hold, got %s", r.OverallSignal)
	}
}
