package risk

import (
	"math"
	"strings"
	"testing"
	"time"

	"futures-trading-engine/internal/binance"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func defaultProtection() ProtectionConfig {
	return ProtectionConfig{
		MaxDailyLossPercent:         5,
		MaxConcurrentTrades:         3,
		PauseAfterConsecutiveLosses: 3,
	}
}

func TestDailyLossProtection(t *testing.T) {
	ap := NewAccountProtection(&fakeClock{now: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)})

	ap.RecordTradeResult(-300)
	ap.RecordTradeResult(-300)

	status := ap.Status(10000, 0, defaultProtection())
	if status.CanTrade {
		t.Fatal("-6% daily loss must block trading")
	}
	found := false
	for _, r := range status.Reasons {
		if strings.Contains(r, "daily loss") {
			found = true
		}
	}
	if !found {
		t.Errorf("reasons %v should mention daily loss", status.Reasons)
	}
	if math.Abs(status.DailyPnLPercent+6) > 1e-9 {
		t.Errorf("daily P/L percent = %v, want -6", status.DailyPnLPercent)
	}
}

func TestConsecutiveLossPauseAndRecovery(t *testing.T) {
	ap := NewAccountProtection(&fakeClock{now: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)})
	cfg := defaultProtection()

	ap.RecordTradeResult(-10)
	ap.RecordTradeResult(-10)
	if !ap.Status(100000, 0, cfg).CanTrade {
		t.Fatal("two losses should not pause yet")
	}

	ap.RecordTradeResult(-10)
	if ap.Status(100000, 0, cfg).CanTrade {
		t.Fatal("three consecutive losses must pause trading")
	}

	// a single win resets the counter and re-enables trading
	ap.RecordTradeResult(25)
	status := ap.Status(100000, 0, cfg)
	if !status.CanTrade {
		t.Fatalf("winning close must reset the pause, got %+v", status)
	}
	if status.ConsecutiveLosses != 0 {
		t.Errorf("consecutive losses = %d, want 0", status.ConsecutiveLosses)
	}
}

func TestConcurrentTradeCap(t *testing.T) {
	ap := NewAccountProtection(&fakeClock{now: time.Now()})
	status := ap.Status(10000, 3, defaultProtection())
	if status.CanTrade {
		t.Error("active trades at the cap must block new entries")
	}
}

func TestDailyCountersResetAtLocalDateRollover(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 25, 23, 50, 0, 0, time.Local)}
	ap := NewAccountProtection(clock)

	ap.RecordTradeResult(-600)
	if ap.Status(10000, 0, defaultProtection()).CanTrade {
		t.Fatal("-6% should block before midnight")
	}

	clock.now = time.Date(2026, 8, 26, 0, 5, 0, 0, time.Local)
	status := ap.Status(10000, 0, defaultProtection())
	if !status.CanTrade {
		t.Fatalf("daily P/L must reset after rollover, got %+v", status)
	}
	if status.DailyPnL != 0 {
		t.Errorf("daily P/L = %v after rollover, want 0", status.DailyPnL)
	}
}

func TestRolloverKeepsConsecutiveLosses(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 25, 23, 0, 0, 0, time.Local)}
	ap := NewAccountProtection(clock)

	for i := 0; i < 3; i++ {
		ap.RecordTradeResult(-10)
	}
	clock.now = clock.now.Add(4 * time.Hour)

	// the loss streak spans days; only the P/L counter is day-scoped
	status := ap.Status(100000, 0, defaultProtection())
	if status.ConsecutiveLosses != 3 || status.CanTrade {
		t.Errorf("loss streak must survive rollover, got %+v", status)
	}
}

func rangingKlines(n int) []binance.Kline {
	klines := make([]binance.Kline, n)
	for i := range klines {
		base := 100.0
		if i%2 == 0 {
			base = 100.5
		}
		klines[i] = binance.Kline{Open: base, High: base + 0.5, Low: base - 0.5, Close: base, Volume: 1000}
	}
	return klines
}

func trendingUpKlines(n int) []binance.Kline {
	klines := make([]binance.Kline, n)
	price := 100.0
	for i := range klines {
		klines[i] = binance.Kline{Open: price, High: price + 1.2, Low: price - 0.3, Close: price + 1, Volume: 1000}
		price++
	}
	return klines
}

func TestMarketConditionTrendingScoresHigh(t *testing.T) {
	cfg := GateConfig{MaxVolatilityPercent: 8, MinTrendStrength: 25, AvoidRangingMarket: true, TrendFilterEnabled: true}
	ma := AnalyzeMarketCondition("BTCUSDT", trendingUpKlines(60), cfg)
	if ma.Condition != ConditionTrendingUp {
		t.Errorf("condition = %s, want trending_up", ma.Condition)
	}
	if ma.Recommendation == RecommendAvoid {
		t.Errorf("clean uptrend scored %v (%v)", ma.Score, ma.Reasons)
	}
}

func TestMarketConditionRangingPenalized(t *testing.T) {
	cfg := GateConfig{MaxVolatilityPercent: 8, MinTrendStrength: 25, AvoidRangingMarket: true, TrendFilterEnabled: true}
	ma := AnalyzeMarketCondition("BTCUSDT", rangingKlines(60), cfg)
	if ma.Condition != ConditionRanging {
		t.Errorf("condition = %s, want ranging", ma.Condition)
	}
	// ranging (-25) plus weak trend (-20) lands in the avoid band
	if ma.Score > 60 {
		t.Errorf("ranging weak-trend score = %v, want penalized", ma.Score)
	}
}

func TestMarketConditionShortHistory(t *testing.T) {
	ma := AnalyzeMarketCondition("BTCUSDT", rangingKlines(10), GateConfig{})
	if ma.Recommendation != RecommendCaution {
		t.Errorf("short history = %s, want caution", ma.Recommendation)
	}
}

func TestShouldTradeCombinesGates(t *testing.T) {
	market := MarketAnalysis{Recommendation: RecommendAvoid, Reasons: []string{"ranging market"}}
	account := AccountStatus{CanTrade: true}

	if ShouldTrade(market, account, true).Allowed {
		t.Error("avoid recommendation with filter on must block")
	}
	if !ShouldTrade(market, account, false).Allowed {
		t.Error("market filter off must ignore the recommendation")
	}

	market.Recommendation = RecommendCaution
	if !ShouldTrade(market, account, true).Allowed {
		t.Error("caution must still allow trading")
	}

	account.CanTrade = false
	account.Reasons = []string{"daily loss 6.00% exceeds 5.00% limit"}
	g := ShouldTrade(market, account, true)
	if g.Allowed {
		t.Error("account protection must always block")
	}
	if !strings.Contains(g.Reason(), "daily loss") {
		t.Errorf("combined reason %q should carry account reasons", g.Reason())
	}
}
