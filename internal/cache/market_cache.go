// Package cache stores short-lived market snapshots in Redis, degrading to
// an in-process map when Redis is absent or unreachable.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Snapshot is one symbol's cached market state
type Snapshot struct {
	Symbol           string    `json:"symbol"`
	Price            float64   `json:"price"`
	High24h          float64   `json:"high_24h"`
	Low24h           float64   `json:"low_24h"`
	Volume24h        float64   `json:"volume_24h"`
	ChangePercent24h float64   `json:"change_percent_24h"`
	Timestamp        time.Time `json:"timestamp"`
}

const defaultTTL = 30 * time.Second

type memoryEntry struct {
	snapshot Snapshot
	expires  time.Time
}

// MarketCache caches snapshots with a short TTL. A nil or unreachable Redis
// client silently degrades to the in-memory map; trading never blocks on the
// cache.
type MarketCache struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger

	mu       sync.RWMutex
	memory   map[string]memoryEntry
	degraded bool
}

// New creates a market cache. addr may be empty to run memory-only.
func New(addr, password string, db int) *MarketCache {
	mc := &MarketCache{
		ttl:    defaultTTL,
		memory: make(map[string]memoryEntry),
		log:    zerolog.New(os.Stdout).With().Timestamp().Str("component", "cache").Logger(),
	}

	if addr == "" {
		mc.degraded = true
		mc.log.Info().Msg("no redis address configured, using in-memory cache")
		return mc
	}

	mc.rdb = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := mc.rdb.Ping(ctx).Err(); err != nil {
		mc.log.Warn().Err(err).Msg("redis unreachable, degrading to in-memory cache")
		mc.degraded = true
	}
	return mc
}

func key(symbol string) string {
	return fmt.Sprintf("market:snapshot:%s", symbol)
}

// Set stores a snapshot
func (mc *MarketCache) Set(ctx context.Context, snap Snapshot) {
	snap.Timestamp = time.Now()

	if mc.rdb != nil && !mc.Degraded() {
		data, err := json.Marshal(snap)
		if err == nil {
			if err := mc.rdb.Set(ctx, key(snap.Symbol), data, mc.ttl).Err(); err != nil {
				mc.log.Warn().Err(err).Str("symbol", snap.Symbol).Msg("redis set failed, degrading")
				mc.degrade()
			} else {
				return
			}
		}
	}

	mc.mu.Lock()
	mc.memory[snap.Symbol] = memoryEntry{snapshot: snap, expires: time.Now().Add(mc.ttl)}
	mc.mu.Unlock()
}

// Get returns a fresh snapshot, or false when missing or expired
func (mc *MarketCache) Get(ctx context.Context, symbol string) (Snapshot, bool) {
	if mc.rdb != nil && !mc.Degraded() {
		data, err := mc.rdb.Get(ctx, key(symbol)).Bytes()
		if err == nil {
			var snap Snapshot
			if json.Unmarshal(data, &snap) == nil {
				return snap, true
			}
		} else if err != redis.Nil {
			mc.log.Warn().Err(err).Str("symbol", symbol).Msg("redis get failed, degrading")
			mc.degrade()
		} else {
			return Snapshot{}, false
		}
	}

	mc.mu.RLock()
	entry, ok := mc.memory[symbol]
	mc.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return Snapshot{}, false
	}
	return entry.snapshot, true
}

func (mc *MarketCache) degrade() {
	mc.mu.Lock()
	mc.degraded = true
	mc.mu.Unlock()
}

// Degraded reports whether the cache has fallen back to memory
func (mc *MarketCache) Degraded() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.degraded
}

// Close releases the Redis connection if one exists
func (mc *MarketCache) Close() error {
	if mc.rdb != nil {
		return mc.rdb.Close()
	}
	return nil
}
