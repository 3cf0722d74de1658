// Package notification fans trade lifecycle events out to configured sinks.
// Sink failures are swallowed; notifications never affect trading.
package notification

import (
	"fmt"

	"futures-trading-engine/internal/database"
	"futures-trading-engine/internal/logging"
)

// Notifier receives trade lifecycle hooks. Implementations must not block
// for long and must never panic into the engine.
type Notifier interface {
	Name() string
	OnTradeOpen(trade *database.Trade)
	OnTradeClose(trade *database.Trade)
	OnSignal(symbol, direction string, strength float64, source string)
	OnTrailingUpdate(trade *database.Trade, newStop float64)
}

// Manager dispatches hooks to every registered notifier in its own goroutine
type Manager struct {
	notifiers []Notifier
	log       *logging.Logger
}

// NewManager creates an empty notification manager
func NewManager() *Manager {
	return &Manager{log: logging.WithComponent("notification")}
}

// Register adds a notifier
func (m *Manager) Register(n Notifier) {
	m.notifiers = append(m.notifiers, n)
	m.log.Info("notifier registered", "name", n.Name())
}

func (m *Manager) dispatch(fn func(Notifier)) {
	for _, n := range m.notifiers {
		n := n
		go func() {
			defer func() {
				if r := recover(); r != nil {
					m.log.Error("notifier panic", "name", n.Name(), "panic", fmt.Sprint(r))
				}
			}()
			fn(n)
		}()
	}
}

// TradeOpened fires the trade-open hook
func (m *Manager) TradeOpened(trade *database.Trade) {
	m.dispatch(func(n Notifier) { n.OnTradeOpen(trade) })
}

// TradeClosed fires the trade-close hook
func (m *Manager) TradeClosed(trade *database.Trade) {
	m.dispatch(func(n Notifier) { n.OnTradeClose(trade) })
}

// SignalDetected fires the signal hook
func (m *Manager) SignalDetected(symbol, direction string, strength float64, source string) {
	m.dispatch(func(n Notifier) { n.OnSignal(symbol, direction, strength, source) })
}

// TrailingUpdated fires the trailing-stop hook
func (m *Manager) TrailingUpdated(trade *database.Trade, newStop float64) {
	m.dispatch(func(n Notifier) { n.OnTrailingUpdate(trade, newStop) })
}

// formatTradeOpen renders a trade-open message shared by the chat sinks
func formatTradeOpen(t *database.Trade) string {
	return fmt.Sprintf("Opened %s %s: qty %.6f @ %.4f (SL %.4f / TP %.4f, %dx)",
		t.Direction, t.Symbol, t.Quantity, t.EntryPrice, t.StopLoss, t.TakeProfit, t.Leverage)
}

func formatTradeClose(t *database.Trade) string {
	profit, pct := 0.0, 0.0
	if t.Profit != nil {
		profit = *t.Profit
	}
	if t.ProfitPercent != nil {
		pct = *t.ProfitPercent
	}
	exit := 0.0
	if t.ExitPrice != nil {
		exit = *t.ExitPrice
	}
	return fmt.Sprintf("Closed %s %s @ %.4f: P/L %.2f USDT (%.2f%%)",
		t.Direction, t.Symbol, exit, profit, pct)
}
