package binance

import "math"

// Kline represents a single candlestick
type Kline struct {
	OpenTime  int64   `json:"open_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"close_time"`
}

// OrderSide is the exchange order side
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// Opposite returns the closing side for this entry side
func (s OrderSide) Opposite() OrderSide {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// PositionSide labels orders in hedging (dual-side) mode
type PositionSide string

const (
	PositionLong  PositionSide = "LONG"
	PositionShort PositionSide = "SHORT"
	PositionBoth  PositionSide = "BOTH"
)

// OrderType is the futures order type
type OrderType string

const (
	OrderTypeMarket           OrderType = "MARKET"
	OrderTypeStopMarket       OrderType = "STOP_MARKET"
	OrderTypeTakeProfitMarket OrderType = "TAKE_PROFIT_MARKET"
)

// AccountInfo is the signed account summary
type AccountInfo struct {
	TotalWalletBalance float64 `json:"totalWalletBalance,string"`
	AvailableBalance   float64 `json:"availableBalance,string"`
	TotalUnrealized    float64 `json:"totalUnrealizedProfit,string"`
	Assets             []Asset `json:"assets"`
}

// Asset is a single asset balance in the futures wallet
type Asset struct {
	Asset            string  `json:"asset"`
	WalletBalance    float64 `json:"walletBalance,string"`
	AvailableBalance float64 `json:"availableBalance,string"`
}

// Position is a single futures position from positionRisk
type Position struct {
	Symbol           string  `json:"symbol"`
	PositionAmt      float64 `json:"positionAmt,string"`
	EntryPrice       float64 `json:"entryPrice,string"`
	MarkPrice        float64 `json:"markPrice,string"`
	UnrealizedProfit float64 `json:"unRealizedProfit,string"`
	Leverage         float64 `json:"leverage,string"`
	PositionSide     string  `json:"positionSide"`
}

// IsOpen reports whether the position has non-zero quantity
func (p *Position) IsOpen() bool {
	return math.Abs(p.PositionAmt) > 1e-12
}

// Order is an open or historical exchange order
type Order struct {
	OrderID      int64   `json:"orderId"`
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"`
	Type         string  `json:"type"`
	Status       string  `json:"status"`
	Price        float64 `json:"price,string"`
	StopPrice    float64 `json:"stopPrice,string"`
	OrigQty      float64 `json:"origQty,string"`
	PositionSide string  `json:"positionSide"`
}

// OrderResponse is the exchange's acknowledgement of a placed order
type OrderResponse struct {
	OrderID       int64   `json:"orderId"`
	Symbol        string  `json:"symbol"`
	Status        string  `json:"status"`
	ClientOrderID string  `json:"clientOrderId"`
	AvgPrice      float64 `json:"avgPrice,string"`
	ExecutedQty   float64 `json:"executedQty,string"`
}

// OrderResult describes a completed bracket placement
type OrderResult struct {
	EntryOrderID      int64
	StopLossOrderID   int64
	TakeProfitOrderID int64
	ExecutedQty       float64
	AvgPrice          float64
	// ProtectionFailed is set when the market entry filled but one of the
	// protective orders was rejected; the caller must track the position
	// and retry the bracket on the next tick.
	ProtectionFailed bool
}

// BracketParams describes an entry order with optional protective orders
type BracketParams struct {
	Symbol               string
	Side                 OrderSide
	Quantity             float64
	StopLoss             float64 // 0 = none
	TakeProfit           float64 // 0 = none
	Leverage             int     // 0 = leave unchanged
	HedgingMode          bool
	PositionSideOverride PositionSide // "" = derive from side
}

// Ticker24h is the 24 hour rolling statistics for a symbol
type Ticker24h struct {
	Symbol             string  `json:"symbol"`
	LastPrice          float64 `json:"lastPrice,string"`
	PriceChangePercent float64 `json:"priceChangePercent,string"`
	HighPrice          float64 `json:"highPrice,string"`
	LowPrice           float64 `json:"lowPrice,string"`
	Volume             float64 `json:"volume,string"`
	QuoteVolume        float64 `json:"quoteVolume,string"`
}

// positionModeResponse is the dual-side flag from positionSide/dual
type positionModeResponse struct {
	DualSidePosition bool `json:"dualSidePosition"`
}

// apiError is the exchange's error envelope
type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}
