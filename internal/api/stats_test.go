package api

import (
	"math"
	"testing"
	"time"

	"futures-trading-engine/internal/database"
)

func closedTrade(symbol string, profit float64) *database.Trade {
	p := profit
	return &database.Trade{
		Symbol:    symbol,
		Direction: database.DirectionLong,
		Status:    database.TradeStatusClosed,
		Profit:    &p,
	}
}

func TestComputeStats(t *testing.T) {
	trades := []*database.Trade{
		closedTrade("BTCUSDT", 100),
		closedTrade("BTCUSDT", -40),
		closedTrade("ETHUSDT", 60),
		closedTrade("ETHUSDT", -20),
		closedTrade("BTCUSDT", 30),
	}

	stats := computeStats(trades)

	if stats.TotalTrades != 5 {
		t.Fatalf("total = %d, want 5", stats.TotalTrades)
	}
	if stats.WinningTrades != 3 || stats.LosingTrades != 2 {
		t.Fatalf("wins/losses = %d/%d, want 3/2", stats.WinningTrades, stats.LosingTrades)
	}
	if stats.WinRate != 60 {
		t.Errorf("win rate = %.2f, want 60", stats.WinRate)
	}
	if stats.TotalProfit != 130 {
		t.Errorf("total profit = %.2f, want 130", stats.TotalProfit)
	}
	if stats.BestTrade != 100 || stats.WorstTrade != -40 {
		t.Errorf("best/worst = %.2f/%.2f, want 100/-40", stats.BestTrade, stats.WorstTrade)
	}
	// gross win 190, gross loss 60
	if math.Abs(stats.ProfitFactor-190.0/60.0) > 1e-9 {
		t.Errorf("profit factor = %.4f, want %.4f", stats.ProfitFactor, 190.0/60.0)
	}
	// drawdown: equity path 100, 60, 120, 100, 130; peak-to-trough 40
	if stats.MaxDrawdown != 40 {
		t.Errorf("max drawdown = %.2f, want 40", stats.MaxDrawdown)
	}

	btc := stats.BySymbol["BTCUSDT"]
	if btc.Trades != 3 || btc.Wins != 2 || btc.Profit != 90 {
		t.Errorf("BTCUSDT slice = %+v", btc)
	}
}

func TestComputeStatsSkipsOpenTrades(t *testing.T) {
	open := &database.Trade{Symbol: "BTCUSDT", Status: database.TradeStatusActive}
	stats := computeStats([]*database.Trade{open, closedTrade("BTCUSDT", 10)})
	if stats.TotalTrades != 1 {
		t.Fatalf("total = %d, want 1 (open trades excluded)", stats.TotalTrades)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := computeStats(nil)
	if stats.TotalTrades != 0 || stats.WinRate != 0 || stats.ProfitFactor != 0 {
		t.Fatalf("empty input should produce zeroed stats, got %+v", stats)
	}
}

func TestRangeStart(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	if got := rangeStart("week", now); !got.Equal(now.AddDate(0, 0, -7)) {
		t.Errorf("week start = %v", got)
	}
	if got := rangeStart("year", now); !got.Equal(now.AddDate(-1, 0, 0)) {
		t.Errorf("year start = %v", got)
	}
	if got := rangeStart("all", now); !got.IsZero() {
		t.Errorf("all should start at the zero time, got %v", got)
	}
	if got := rangeStart("bogus", now); !got.IsZero() {
		t.Errorf("unknown range should fall back to all, got %v", got)
	}
}
