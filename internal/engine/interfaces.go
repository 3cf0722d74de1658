package engine

import (
	"context"
	"time"

	"futures-trading-engine/internal/binance"
	"futures-trading-engine/internal/database"
)

// ExchangeClient is the exchange surface the engine depends on. It is
// satisfied by binance.Client and by test doubles.
type ExchangeClient interface {
	IsConfigured() bool
	GetPrice(symbol string) (float64, error)
	GetKlines(symbol, interval string, limit int) ([]binance.Kline, error)
	GetKlineCloses(symbol, interval string, limit int) ([]float64, error)
	Get24hTicker(symbol string) (*binance.Ticker24h, error)
	GetAccountInfo() (*binance.AccountInfo, error)
	GetPositions() ([]binance.Position, error)
	GetPositionMode() (bool, error)
	SetPositionMode(dualSide bool) error
	PlaceBracketOrder(p binance.BracketParams) (*binance.OrderResult, error)
	PlaceProtectiveOrders(symbol string, entrySide binance.OrderSide, posSide binance.PositionSide,
		quantity, stopLoss, takeProfit float64, hedging bool) error
	ClosePosition(symbol string, posSide binance.PositionSide, quantity float64, hedging bool) (*binance.OrderResponse, error)
	UpdateStopLossOrder(symbol string, posSide binance.PositionSide, quantity, newStop float64, hedging bool) (int64, error)
}

// Store is the persistence surface the engine depends on. It is satisfied
// by database.Repository and by test doubles.
type Store interface {
	GetSettings(ctx context.Context) (*database.Settings, error)
	UpdateSettings(ctx context.Context, s *database.Settings) (*database.Settings, error)
	GetActiveTrades(ctx context.Context) ([]*database.Trade, error)
	GetTrades(ctx context.Context, status string) ([]*database.Trade, error)
	GetTradeByID(ctx context.Context, id int) (*database.Trade, error)
	CreateTrade(ctx context.Context, t *database.Trade) (*database.Trade, error)
	UpdateTrade(ctx context.Context, t *database.Trade) (*database.Trade, error)
	CloseTrade(ctx context.Context, id int, exitPrice, profit, profitPercent float64) (*database.Trade, error)
	UpdateTradeTrailingStop(ctx context.Context, id int, stopLoss, highestProfit, trailingStopPrice float64) error
	GetTradeHistory(ctx context.Context, limit int) ([]*database.Trade, error)
	GetTradesInDateRange(ctx context.Context, from, to time.Time) ([]*database.Trade, error)
	CreateSignal(ctx context.Context, s *database.Signal) error
	CreateLog(ctx context.Context, level, message, details string) error
}
