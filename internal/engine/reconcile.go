package engine

import (
	"context"
	"fmt"

	"futures-trading-engine/internal/binance"
	"futures-trading-engine/internal/database"
	"futures-trading-engine/internal/events"
	"futures-trading-engine/internal/risk"
)

// positionKey identifies one exchange position slot. One-way positions carry
// side BOTH; hedging positions carry LONG or SHORT.
type positionKey struct {
	symbol string
	long   bool
}

// reconcile aligns the trade table with the exchange before any new
// decisions: trades whose position vanished are closed out, and open
// positions the table does not know about are adopted as tracked trades.
func (e *Engine) reconcile(ctx context.Context, settings *database.Settings) {
	positions, err := e.client.GetPositions()
	if err != nil {
		e.log.Warn("position fetch failed, skipping reconciliation", "error", err)
		return
	}

	active, err := e.store.GetActiveTrades(ctx)
	if err != nil {
		e.log.Error("active trades lookup failed, skipping reconciliation", "error", err)
		return
	}

	open := make(map[positionKey]*binance.Position)
	for i := range positions {
		p := &positions[i]
		if !p.IsOpen() {
			continue
		}
		open[positionKey{p.Symbol, positionIsLong(p)}] = p
	}

	tracked := make(map[positionKey]bool)
	for _, t := range active {
		key := positionKey{t.Symbol, t.IsLong()}
		if _, exists := open[key]; exists {
			tracked[key] = true
			continue
		}
		// position is gone: closed by the exchange stop, take-profit or a
		// manual action outside the engine
		exitPrice, perr := e.client.GetPrice(t.Symbol)
		if perr != nil || exitPrice <= 0 {
			exitPrice = t.EntryPrice
		}
		if _, cerr := e.closeTradeRecord(ctx, t, exitPrice); cerr != nil {
			e.log.Error("reconcile close failed", "trade", t.ID, "symbol", t.Symbol, "error", cerr)
			continue
		}
		e.log.Info("trade closed by reconciliation", "trade", t.ID, "symbol", t.Symbol, "exit", exitPrice)
	}

	for key, p := range open {
		if tracked[key] {
			continue
		}
		e.adoptPosition(ctx, settings, p, key.long)
	}
}

// adoptPosition creates a tracked trade for a position opened outside the
// engine, with levels derived from the configured risk distance.
func (e *Engine) adoptPosition(ctx context.Context, settings *database.Settings, p *binance.Position, long bool) {
	direction := database.DirectionShort
	if long {
		direction = database.DirectionLong
	}

	quantity := p.PositionAmt
	if quantity < 0 {
		quantity = -quantity
	}
	leverage := int(p.Leverage)
	if leverage <= 0 {
		leverage = defaultLeverage
	}

	stop, target := risk.DeriveLevels(p.EntryPrice, long, settings.MaxRiskPerTrade, settings.RiskRewardRatio)

	trade, err := e.store.CreateTrade(ctx, &database.Trade{
		Symbol:             p.Symbol,
		Direction:          direction,
		Status:             database.TradeStatusActive,
		EntryPrice:         p.EntryPrice,
		Quantity:           quantity,
		Leverage:           leverage,
		StopLoss:           stop,
		TakeProfit:         target,
		EntryTime:          e.clock.Now(),
		EntrySignals:       []string{"adopted"},
		TrailingStopActive: settings.TrailingStopEnabled,
		IsAutoTrade:        false,
	})
	if err != nil {
		e.log.Error("position adoption failed", "symbol", p.Symbol, "error", err)
		return
	}

	e.bus.Publish(events.EventNewTrade, trade)
	e.activity(ctx, database.LogLevelWarning,
		fmt.Sprintf("Adopted untracked %s position on %s", direction, p.Symbol),
		fmt.Sprintf("qty %.6f @ %.4f, derived SL %.4f / TP %.4f", quantity, p.EntryPrice, stop, target))
	e.log.Info("untracked position adopted", "symbol", p.Symbol, "direction", direction,
		"quantity", quantity, "entry", p.EntryPrice)
}

// positionIsLong derives the direction from the hedging side or, in one-way
// mode, from the sign of the position amount.
func positionIsLong(p *binance.Position) bool {
	switch p.PositionSide {
	case string(binance.PositionLong):
		return true
	case string(binance.PositionShort):
		return false
	default:
		return p.PositionAmt > 0
	}
}
