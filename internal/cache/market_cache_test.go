package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryFallbackSetGet(t *testing.T) {
	mc := New("", "", 0)
	if !mc.Degraded() {
		t.Fatal("empty address must run memory-only")
	}

	ctx := context.Background()
	mc.Set(ctx, Snapshot{Symbol: "BTCUSDT", Price: 65000, ChangePercent24h: 1.2})

	snap, ok := mc.Get(ctx, "BTCUSDT")
	if !ok {
		t.Fatal("snapshot missing after set")
	}
	if snap.Price != 65000 || snap.Symbol != "BTCUSDT" {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Timestamp.IsZero() {
		t.Error("set must stamp the snapshot")
	}
}

func TestMemoryMiss(t *testing.T) {
	mc := New("", "", 0)
	if _, ok := mc.Get(context.Background(), "ETHUSDT"); ok {
		t.Error("unknown symbol must miss")
	}
}

func TestMemoryExpiry(t *testing.T) {
	mc := New("", "", 0)
	mc.ttl = 10 * time.Millisecond

	ctx := context.Background()
	mc.Set(ctx, Snapshot{Symbol: "BTCUSDT", Price: 65000})
	time.Sleep(20 * time.Millisecond)

	if _, ok := mc.Get(ctx, "BTCUSDT"); ok {
		t.Error("expired snapshot must miss")
	}
}

func TestOverwriteKeepsLatest(t *testing.T) {
	mc := New("", "", 0)
	ctx := context.Background()

	mc.Set(ctx, Snapshot{Symbol: "BTCUSDT", Price: 65000})
	mc.Set(ctx, Snapshot{Symbol: "BTCUSDT", Price: 66000})

	snap, ok := mc.Get(ctx, "BTCUSDT")
	if !ok || snap.Price != 66000 {
		t.Errorf("expected latest price 66000, got %+v", snap)
	}
}
