// Package engine runs the autonomous trading loop: every tick it reconciles
// database trades against exchange positions, evaluates each configured pair
// through the analyzer chain, executes qualifying signals, and sweeps the
// trailing-stop ratchet over active trades.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"futures-trading-engine/internal/database"
	"futures-trading-engine/internal/errs"
	"futures-trading-engine/internal/events"
	"futures-trading-engine/internal/logging"
	"futures-trading-engine/internal/notification"
	"futures-trading-engine/internal/risk"
)

const (
	tickInterval = 60 * time.Second
	startupDelay = 10 * time.Second

	// analysisInterval and analysisLimit define the candle window every
	// analyzer path works from.
	analysisInterval = "1h"
	analysisLimit    = 100

	defaultLeverage = 10
)

// Engine owns the tick loop and all trading decisions
type Engine struct {
	client     ExchangeClient
	store      Store
	bus        *events.Bus
	notifier   *notification.Manager
	protection *risk.AccountProtection
	clock      risk.Clock
	log        *logging.Logger

	mu              sync.Mutex
	running         bool
	cancel          context.CancelFunc
	done            chan struct{}
	lastTradeTime   map[string]time.Time
	dailyTradeCount int
	dayAnchor       string

	// trade IDs whose entry filled but whose protective orders were
	// rejected; the bracket is re-placed on the next tick
	pendingProtection map[int]bool
}

// New creates an engine. The clock is injectable for day-rollover tests; nil
// means the real clock.
func New(client ExchangeClient, store Store, bus *events.Bus, notifier *notification.Manager, clock risk.Clock) *Engine {
	if clock == nil {
		clock = risk.RealClock
	}
	return &Engine{
		client:            client,
		store:             store,
		bus:               bus,
		notifier:          notifier,
		protection:        risk.NewAccountProtection(clock),
		clock:             clock,
		log:               logging.WithComponent("engine"),
		lastTradeTime:     make(map[string]time.Time),
		dayAnchor:         clock.Now().Local().Format("2006-01-02"),
		pendingProtection: make(map[int]bool),
	}
}

// Start launches the tick loop. The first tick runs after a short startup
// delay so the process finishes wiring before touching the exchange.
func (e *Engine) Start(ctx context.Context) error {
	if !e.client.IsConfigured() {
		return errs.New(errs.NotConfigured, "exchange API credentials are not configured")
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errs.New(errs.NotActive, "engine is already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.running = true
	e.cancel = cancel
	e.done = make(chan struct{})
	e.mu.Unlock()

	if settings, err := e.store.GetSettings(ctx); err == nil {
		e.syncPositionMode(ctx, settings)
	}

	e.log.Info("engine started", "tick_interval", tickInterval.String())
	e.activity(ctx, database.LogLevelInfo, "Trading engine started", "")
	e.bus.Publish(events.EventStatsUpdate, map[string]bool{"engineRunning": true})

	go e.loop(runCtx)
	return nil
}

// Stop cancels the loop and waits for the in-flight tick to finish
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	done := e.done
	e.running = false
	e.mu.Unlock()

	cancel()
	<-done

	e.log.Info("engine stopped")
	e.activity(context.Background(), database.LogLevelInfo, "Trading engine stopped", "")
	e.bus.Publish(events.EventStatsUpdate, map[string]bool{"engineRunning": false})
}

// IsRunning reports whether the tick loop is active
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine) loop(ctx context.Context) {
	defer close(e.done)

	select {
	case <-ctx.Done():
		return
	case <-time.After(startupDelay):
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	e.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// tick is one full pass: settings reload, daily rollover, reconciliation,
// per-symbol decisions, trailing sweep. Per-symbol failures are logged and
// never abort the rest of the tick.
func (e *Engine) tick(ctx context.Context) {
	settings, err := e.store.GetSettings(ctx)
	if err != nil {
		e.log.Error("settings reload failed", "error", err)
		return
	}

	e.rollDay()
	e.protection.RollDay()

	e.reconcile(ctx, settings)
	e.repairProtection(ctx)

	if settings.AutoTradingEnabled {
		if e.underDailyTradeLimit(settings) {
			for _, symbol := range settings.TradingPairs {
				if ctx.Err() != nil {
					return
				}
				e.decideSymbol(ctx, settings, symbol)
			}
		} else {
			e.log.Info("daily trade limit reached, skipping analysis",
				"count", e.dailyCount(), "limit", settings.MaxDailyTrades)
		}
	}

	e.sweepTrailing(ctx, settings)
}

// rollDay resets the engine's own daily trade counter on a local-date change
func (e *Engine) rollDay() {
	e.mu.Lock()
	defer e.mu.Unlock()
	today := e.clock.Now().Local().Format("2006-01-02")
	if today != e.dayAnchor {
		e.dayAnchor = today
		e.dailyTradeCount = 0
	}
}

func (e *Engine) underDailyTradeLimit(s *database.Settings) bool {
	if s.MaxDailyTrades <= 0 {
		return true
	}
	return e.dailyCount() < s.MaxDailyTrades
}

func (e *Engine) dailyCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dailyTradeCount
}

func (e *Engine) recordTradeOpened(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastTradeTime[symbol] = e.clock.Now()
	e.dailyTradeCount++
}

func (e *Engine) inCooldown(symbol string, minutes int) bool {
	if minutes <= 0 {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	last, ok := e.lastTradeTime[symbol]
	if !ok {
		return false
	}
	return e.clock.Now().Sub(last) < time.Duration(minutes)*time.Minute
}

// baseAsset strips the quote currency for the diversification check
func baseAsset(symbol string) string {
	for _, quote := range []string{"USDT", "BUSD", "USDC"} {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return strings.TrimSuffix(symbol, quote)
		}
	}
	return symbol
}

// syncPositionMode pushes the configured hedging preference to the exchange.
// The exchange refuses the switch while positions are open, so a mismatch is
// reported rather than forced.
func (e *Engine) syncPositionMode(ctx context.Context, settings *database.Settings) {
	mode, err := e.client.GetPositionMode()
	if err != nil || mode == settings.HedgingEnabled {
		return
	}
	if err := e.client.SetPositionMode(settings.HedgingEnabled); err != nil {
		e.log.Warn("position mode change rejected", "hedging", settings.HedgingEnabled, "error", err)
		e.activity(ctx, database.LogLevelWarning,
			"Exchange refused the position mode change", err.Error())
		return
	}
	e.log.Info("position mode aligned with settings", "hedging", settings.HedgingEnabled)
}

// activity persists an operator-visible log line and pushes it over the
// realtime stream
func (e *Engine) activity(ctx context.Context, level, message, details string) {
	if err := e.store.CreateLog(ctx, level, message, details); err != nil {
		e.log.Error("activity log write failed", "error", err)
	}
	e.bus.Publish(events.EventNewLog, map[string]string{
		"level": level, "message": message, "details": details,
	})
}

// closeTradeRecord finalizes a trade row, updates the loss counters and fires
// the close-side hooks. Shared by the trailing sweep, reconciliation and the
// operator close endpoints.
func (e *Engine) closeTradeRecord(ctx context.Context, t *database.Trade, exitPrice float64) (*database.Trade, error) {
	profit := (exitPrice - t.EntryPrice) * t.Quantity
	if !t.IsLong() {
		profit = -profit
	}
	pct := 0.0
	if t.EntryPrice > 0 {
		pct = (exitPrice - t.EntryPrice) / t.EntryPrice * 100 * float64(t.Leverage)
		if !t.IsLong() {
			pct = -pct
		}
	}

	closed, err := e.store.CloseTrade(ctx, t.ID, exitPrice, profit, pct)
	if err != nil {
		return nil, err
	}

	e.protection.RecordTradeResult(profit)
	e.notifier.TradeClosed(closed)
	e.bus.Publish(events.EventTradeClosed, closed)
	e.activity(ctx, closeLogLevel(profit),
		fmt.Sprintf("Closed %s %s at %.4f", closed.Direction, closed.Symbol, exitPrice),
		fmt.Sprintf("P/L %.2f USDT (%.2f%%)", profit, pct))
	return closed, nil
}

func closeLogLevel(profit float64) string {
	if profit < 0 {
		return database.LogLevelWarning
	}
	return database.LogLevelSuccess
}
