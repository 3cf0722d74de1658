package engine

import (
	"context"
	"fmt"
	"strconv"

	"futures-trading-engine/internal/binance"
	"futures-trading-engine/internal/database"
	"futures-trading-engine/internal/errs"
	"futures-trading-engine/internal/events"
	"futures-trading-engine/internal/indicator"
	"futures-trading-engine/internal/risk"
	"futures-trading-engine/internal/strategy"
)

// manualSignalStrength feeds the sizer for operator-initiated trades; it
// lands in the band where smart sizing neither boosts nor cuts.
const manualSignalStrength = 75

// executeSignal announces a qualifying signal, opens the automated trade and
// bumps the cooldown and daily counters. The signal hook fires before
// execution so operators hear about signals even when placement fails.
func (e *Engine) executeSignal(ctx context.Context, settings *database.Settings, symbol, direction string, strength float64, sources []string, levels *strategy.Levels) error {
	e.notifier.SignalDetected(symbol, direction, strength, sources[0])
	if _, err := e.openPosition(ctx, settings, symbol, direction, strength, sources, levels, true); err != nil {
		return err
	}
	e.recordTradeOpened(symbol)
	return nil
}

// OpenManualTrade opens a position on operator request, sized by the current
// settings. Manual trades skip the cooldown and daily counters.
func (e *Engine) OpenManualTrade(ctx context.Context, symbol, direction string) (*database.Trade, error) {
	if direction != database.DirectionLong && direction != database.DirectionShort {
		return nil, errs.New(errs.ValidationFailed, "direction must be long or short, got %q", direction)
	}
	settings, err := e.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	return e.openPosition(ctx, settings, symbol, direction, manualSignalStrength, []string{"manual"}, nil, false)
}

// openPosition derives levels and quantity, places the bracket, and records
// the trade. A full placement failure leaves no trade row; an entry that
// filled with rejected protective orders is still recorded so the position
// stays tracked.
func (e *Engine) openPosition(ctx context.Context, settings *database.Settings, symbol, direction string, strength float64, sources []string, levels *strategy.Levels, isAuto bool) (*database.Trade, error) {
	if !e.client.IsConfigured() {
		return nil, errs.New(errs.NotConfigured, "exchange API credentials are not configured")
	}
	long := direction == database.DirectionLong

	hedging, err := e.client.GetPositionMode()
	if err != nil {
		e.log.Warn("position mode lookup failed, assuming one-way", "symbol", symbol, "error", err)
		hedging = false
	}

	active, err := e.store.GetActiveTrades(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range active {
		if t.Symbol != symbol {
			continue
		}
		if !hedging {
			return nil, errs.New(errs.NotActive,
				"%s already has an active %s trade and hedging is off", symbol, t.Direction)
		}
		if t.Direction == direction {
			return nil, errs.New(errs.NotActive,
				"%s already has an active %s trade", symbol, direction)
		}
	}

	price, err := e.client.GetPrice(symbol)
	if err != nil {
		return nil, err
	}
	entry := price
	if levels != nil && levels.Entry > 0 {
		entry = levels.Entry
	}

	// ATR backs both smart level derivation and volatility bucketing
	var atr float64
	if settings.SmartPositionSizing {
		klines, kerr := e.client.GetKlines(symbol, analysisInterval, analysisLimit)
		if kerr != nil {
			return nil, kerr
		}
		atr = indicator.CalculateATR(klines, settings.ATRPeriod)
	}

	var stop, target float64
	switch {
	case levels != nil:
		stop, target = levels.StopLoss, levels.TakeProfit
	case settings.SmartPositionSizing && atr > 0:
		stop, target = risk.DeriveATRLevels(entry, long, atr, settings.ATRMultiplier, settings.RiskRewardRatio)
	default:
		stop, target = risk.DeriveLevels(entry, long, settings.MaxRiskPerTrade, settings.RiskRewardRatio)
	}

	info, err := e.client.GetAccountInfo()
	if err != nil {
		return nil, err
	}
	balance := info.TotalWalletBalance

	leverage := defaultLeverage
	var quantity float64
	if settings.SmartPositionSizing {
		volLevel := risk.ClassifyVolatility(atr / entry * 100)
		sizePercent := risk.SmartSizePercent(risk.SizerConfig{
			MaxRiskPerTrade:      settings.MaxRiskPerTrade,
			RiskRewardRatio:      settings.RiskRewardRatio,
			VolatilityAdjustment: settings.VolatilityAdjustment,
			MaxPositionPercent:   settings.MaxPositionPercent,
			MinPositionPercent:   settings.MinPositionPercent,
		}, volLevel, strength)
		quantity, err = risk.SmartQuantity(balance, entry, sizePercent, leverage)
	} else {
		quantity, err = risk.ClassicalQuantity(balance, entry, stop, leverage, settings.MaxRiskPerTrade)
	}
	if err != nil {
		return nil, err
	}

	side := binance.SideBuy
	posSide := binance.PositionLong
	if !long {
		side = binance.SideSell
		posSide = binance.PositionShort
	}

	result, err := e.client.PlaceBracketOrder(binance.BracketParams{
		Symbol:               symbol,
		Side:                 side,
		Quantity:             quantity,
		StopLoss:             stop,
		TakeProfit:           target,
		Leverage:             leverage,
		HedgingMode:          hedging,
		PositionSideOverride: posSide,
	})
	if err != nil {
		e.activity(ctx, database.LogLevelError,
			fmt.Sprintf("Order placement failed for %s %s", direction, symbol), err.Error())
		return nil, err
	}

	if result.ProtectionFailed {
		e.log.Error("entry filled but protective orders were rejected",
			"symbol", symbol, "entry_order", result.EntryOrderID)
		e.activity(ctx, database.LogLevelError,
			fmt.Sprintf("%s %s entry filled without protective orders", symbol, direction),
			"position is unprotected until the next tick re-places the bracket")
	}

	entryPrice := entry
	if result.AvgPrice > 0 {
		entryPrice = result.AvgPrice
	}
	if result.ExecutedQty > 0 {
		quantity = result.ExecutedQty
	}

	orderID := strconv.FormatInt(result.EntryOrderID, 10)
	trade, err := e.store.CreateTrade(ctx, &database.Trade{
		Symbol:             symbol,
		Direction:          direction,
		Status:             database.TradeStatusActive,
		EntryPrice:         entryPrice,
		Quantity:           quantity,
		Leverage:           leverage,
		StopLoss:           stop,
		TakeProfit:         target,
		EntryTime:          e.clock.Now(),
		EntrySignals:       sources,
		ExchangeOrderID:    &orderID,
		TrailingStopActive: settings.TrailingStopEnabled,
		IsAutoTrade:        isAuto,
	})
	if err != nil {
		e.log.Error("trade row creation failed after placement",
			"symbol", symbol, "order", result.EntryOrderID, "error", err)
		return nil, err
	}

	if result.ProtectionFailed {
		e.markPendingProtection(trade.ID)
	}

	e.notifier.TradeOpened(trade)
	e.bus.Publish(events.EventNewTrade, trade)
	e.activity(ctx, database.LogLevelSuccess,
		fmt.Sprintf("Opened %s %s: %.6f @ %.4f", direction, symbol, quantity, entryPrice),
		fmt.Sprintf("SL %.4f / TP %.4f, %dx, %s", stop, target, leverage, sources[0]))

	e.log.Info("trade opened", "symbol", symbol, "direction", direction,
		"quantity", quantity, "entry", entryPrice, "stop", stop, "target", target)
	return trade, nil
}

func (e *Engine) markPendingProtection(id int) {
	e.mu.Lock()
	e.pendingProtection[id] = true
	e.mu.Unlock()
}

func (e *Engine) clearPendingProtection(id int) {
	e.mu.Lock()
	delete(e.pendingProtection, id)
	e.mu.Unlock()
}

func (e *Engine) pendingProtectionIDs() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]int, 0, len(e.pendingProtection))
	for id := range e.pendingProtection {
		ids = append(ids, id)
	}
	return ids
}

// repairProtection re-places the protective orders of trades whose entry
// filled without them. Trades closed in the meantime drop off the list.
func (e *Engine) repairProtection(ctx context.Context) {
	ids := e.pendingProtectionIDs()
	if len(ids) == 0 {
		return
	}

	hedging, err := e.client.GetPositionMode()
	if err != nil {
		hedging = false
	}

	for _, id := range ids {
		t, err := e.store.GetTradeByID(ctx, id)
		if err != nil || t.Status != database.TradeStatusActive {
			e.clearPendingProtection(id)
			continue
		}

		entrySide := binance.SideBuy
		if !t.IsLong() {
			entrySide = binance.SideSell
		}
		if err := e.client.PlaceProtectiveOrders(t.Symbol, entrySide, positionSideOf(t),
			t.Quantity, t.StopLoss, t.TakeProfit, hedging); err != nil {
			e.log.Error("protective order replacement failed", "trade", t.ID, "symbol", t.Symbol, "error", err)
			continue
		}

		e.clearPendingProtection(id)
		e.activity(ctx, database.LogLevelSuccess,
			fmt.Sprintf("Protective orders restored for %s", t.Symbol),
			fmt.Sprintf("trade %d, SL %.4f / TP %.4f", t.ID, t.StopLoss, t.TakeProfit))
		e.log.Info("protective orders restored", "trade", t.ID, "symbol", t.Symbol)
	}
}

// CloseTradeByID closes one active trade at market on operator request
func (e *Engine) CloseTradeByID(ctx context.Context, id int) (*database.Trade, error) {
	t, err := e.store.GetTradeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != database.TradeStatusActive {
		return nil, errs.New(errs.NotActive, "trade %d is %s, not active", id, t.Status)
	}

	hedging, err := e.client.GetPositionMode()
	if err != nil {
		hedging = false
	}
	posSide := binance.PositionLong
	if !t.IsLong() {
		posSide = binance.PositionShort
	}

	if _, err := e.client.ClosePosition(t.Symbol, posSide, t.Quantity, hedging); err != nil {
		e.activity(ctx, database.LogLevelError,
			fmt.Sprintf("Close order failed for trade %d (%s)", id, t.Symbol), err.Error())
		return nil, err
	}

	exitPrice, err := e.client.GetPrice(t.Symbol)
	if err != nil || exitPrice <= 0 {
		exitPrice = t.EntryPrice
	}
	return e.closeTradeRecord(ctx, t, exitPrice)
}

// CloseAllOpenTrades closes every active trade at market. It keeps going past
// individual failures and returns the count closed with the last error.
func (e *Engine) CloseAllOpenTrades(ctx context.Context) (int, error) {
	active, err := e.store.GetActiveTrades(ctx)
	if err != nil {
		return 0, err
	}

	closed := 0
	var lastErr error
	for _, t := range active {
		if _, err := e.CloseTradeByID(ctx, t.ID); err != nil {
			lastErr = err
			continue
		}
		closed++
	}
	return closed, lastErr
}
