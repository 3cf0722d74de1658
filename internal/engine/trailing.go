package engine

import (
	"context"
	"fmt"

	"futures-trading-engine/internal/binance"
	"futures-trading-engine/internal/database"
	"futures-trading-engine/internal/events"
	"futures-trading-engine/internal/risk"
)

// sweepTrailing applies the profit-percent ratchet to every trailing-enabled
// active trade. The exchange position's own entry price wins over the stored
// one when the position is found, so partial fills and fee-adjusted entries
// trail against reality.
func (e *Engine) sweepTrailing(ctx context.Context, settings *database.Settings) {
	if !settings.TrailingStopEnabled {
		return
	}

	active, err := e.store.GetActiveTrades(ctx)
	if err != nil {
		e.log.Error("active trades lookup failed, skipping trailing sweep", "error", err)
		return
	}
	if len(active) == 0 {
		return
	}

	// a failed position fetch degrades to price-derived evaluation against
	// the stored entry instead of skipping the sweep
	positions, err := e.client.GetPositions()
	if err != nil {
		e.log.Warn("position fetch failed, trailing on last price", "error", err)
		positions = nil
	}
	open := make(map[positionKey]*binance.Position)
	for i := range positions {
		p := &positions[i]
		if p.IsOpen() {
			open[positionKey{p.Symbol, positionIsLong(p)}] = p
		}
	}

	hedging, err := e.client.GetPositionMode()
	if err != nil {
		hedging = false
	}

	cfg := risk.TrailingConfig{
		Percent:           settings.TrailingStopPercent,
		ActivationPercent: settings.TrailingStopActivationPercent,
	}

	for _, t := range active {
		if !t.TrailingStopActive {
			continue
		}
		e.trailOne(ctx, t, open[positionKey{t.Symbol, t.IsLong()}], hedging, cfg)
	}
}

func (e *Engine) trailOne(ctx context.Context, t *database.Trade, pos *binance.Position, hedging bool, cfg risk.TrailingConfig) {
	var price float64
	eval := *t
	if pos != nil {
		price = pos.MarkPrice
		if pos.EntryPrice > 0 {
			eval.EntryPrice = pos.EntryPrice
		}
	}
	if price <= 0 {
		p, err := e.client.GetPrice(t.Symbol)
		if err != nil || p <= 0 {
			e.log.Warn("price unavailable for trailing evaluation", "symbol", t.Symbol, "error", err)
			return
		}
		price = p
	}

	up := risk.EvaluateTrailing(&eval, price, nil, cfg)

	if up.StopHit {
		posSide := binance.PositionLong
		if !t.IsLong() {
			posSide = binance.PositionShort
		}
		if _, err := e.client.ClosePosition(t.Symbol, posSide, t.Quantity, hedging); err != nil {
			e.log.Error("trailing stop close failed", "trade", t.ID, "symbol", t.Symbol, "error", err)
			e.activity(ctx, database.LogLevelError,
				fmt.Sprintf("Trailing stop close failed for %s", t.Symbol), err.Error())
			return
		}
		if _, err := e.closeTradeRecord(ctx, t, up.ExitPrice); err != nil {
			e.log.Error("trailing stop close not recorded", "trade", t.ID, "error", err)
			return
		}
		e.log.Info("trailing stop hit", "trade", t.ID, "symbol", t.Symbol, "exit", up.ExitPrice)
		return
	}

	if up.RatchetMoved {
		if _, err := e.client.UpdateStopLossOrder(t.Symbol, positionSideOf(t), t.Quantity, up.NewStop, hedging); err != nil {
			// the row still advances so the next sweep resumes from the
			// ratcheted level instead of re-locking a stale one
			e.log.Error("exchange stop update failed", "trade", t.ID, "symbol", t.Symbol, "error", err)
			e.activity(ctx, database.LogLevelWarning,
				fmt.Sprintf("Exchange stop update failed for %s, stop tracked internally at %.4f", t.Symbol, up.NewStop),
				err.Error())
		}
		if err := e.store.UpdateTradeTrailingStop(ctx, t.ID, up.NewStop, up.HighestProfitSeen, up.NewStop); err != nil {
			e.log.Error("trailing stop persistence failed", "trade", t.ID, "error", err)
			return
		}
		e.notifier.TrailingUpdated(t, up.NewStop)
		e.bus.Publish(events.EventTradeUpdate, map[string]interface{}{
			"id": t.ID, "symbol": t.Symbol, "trailingStopPrice": up.NewStop,
			"highestProfit": up.HighestProfitSeen,
		})
		e.log.Info("trailing stop ratcheted", "trade", t.ID, "symbol", t.Symbol,
			"stop", up.NewStop, "highest_profit", up.HighestProfitSeen)
		return
	}

	if up.HighestAdvanced {
		t.HighestPrice = up.HighestProfitSeen
		if _, err := e.store.UpdateTrade(ctx, t); err != nil {
			e.log.Error("highest-profit persistence failed", "trade", t.ID, "error", err)
		}
	}
}

func positionSideOf(t *database.Trade) binance.PositionSide {
	if t.IsLong() {
		return binance.PositionLong
	}
	return binance.PositionShort
}
