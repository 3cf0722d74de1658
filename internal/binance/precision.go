package binance

import "math"

// quantityPrecision maps symbols to their futures LOT_SIZE decimals.
// Unknown symbols fall back to 3 decimals, which is safe for most alts.
var quantityPrecision = map[string]int{
	"BTCUSDT":   3,
	"ETHUSDT":   3,
	"BNBUSDT":   2,
	"SOLUSDT":   1,
	"XRPUSDT":   1,
	"ADAUSDT":   0,
	"DOGEUSDT":  0,
	"DOTUSDT":   1,
	"LINKUSDT":  2,
	"AVAXUSDT":  1,
	"MATICUSDT": 0,
	"LTCUSDT":   3,
	"ATOMUSDT":  2,
	"NEARUSDT":  1,
	"APTUSDT":   1,
	"ARBUSDT":   1,
	"OPUSDT":    1,
	"SUIUSDT":   1,
	"INJUSDT":   1,
	"TIAUSDT":   1,
}

// pricePrecision maps symbols to their futures PRICE_FILTER decimals
var pricePrecision = map[string]int{
	"BTCUSDT":   1,
	"ETHUSDT":   2,
	"BNBUSDT":   2,
	"SOLUSDT":   3,
	"XRPUSDT":   4,
	"ADAUSDT":   4,
	"DOGEUSDT":  5,
	"DOTUSDT":   3,
	"LINKUSDT":  3,
	"AVAXUSDT":  3,
	"MATICUSDT": 4,
	"LTCUSDT":   2,
	"ATOMUSDT":  3,
	"NEARUSDT":  3,
	"APTUSDT":   3,
	"ARBUSDT":   4,
	"OPUSDT":    4,
	"SUIUSDT":   4,
	"INJUSDT":   3,
	"TIAUSDT":   4,
}

// QuantityPrecision returns the LOT_SIZE decimals for a symbol
func QuantityPrecision(symbol string) int {
	if p, ok := quantityPrecision[symbol]; ok {
		return p
	}
	return 3
}

// PricePrecision returns the PRICE_FILTER decimals for a symbol
func PricePrecision(symbol string) int {
	if p, ok := pricePrecision[symbol]; ok {
		return p
	}
	return 2
}

// RoundQuantity floors a quantity to the symbol's step size. Flooring instead
// of rounding keeps the notional within the sized budget.
func RoundQuantity(symbol string, qty float64) float64 {
	factor := math.Pow(10, float64(QuantityPrecision(symbol)))
	return math.Floor(qty*factor) / factor
}

// RoundPrice rounds a price to the symbol's tick size
func RoundPrice(symbol string, price float64) float64 {
	factor := math.Pow(10, float64(PricePrecision(symbol)))
	return math.Round(price*factor) / factor
}
