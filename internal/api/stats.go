package api

import (
	"time"

	"futures-trading-engine/internal/database"
)

// SymbolStats is the per-symbol slice of the advanced statistics
type SymbolStats struct {
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	Profit  float64 `json:"profit"`
	WinRate float64 `json:"winRate"`
}

// AdvancedStats aggregates closed-trade performance over a date range
type AdvancedStats struct {
	TotalTrades   int                    `json:"totalTrades"`
	WinningTrades int                    `json:"winningTrades"`
	LosingTrades  int                    `json:"losingTrades"`
	WinRate       float64                `json:"winRate"`
	TotalProfit   float64                `json:"totalProfit"`
	AverageProfit float64                `json:"averageProfit"`
	AverageWin    float64                `json:"averageWin"`
	AverageLoss   float64                `json:"averageLoss"`
	ProfitFactor  float64                `json:"profitFactor"`
	BestTrade     float64                `json:"bestTrade"`
	WorstTrade    float64                `json:"worstTrade"`
	MaxDrawdown   float64                `json:"maxDrawdown"`
	BySymbol      map[string]SymbolStats `json:"bySymbol"`
}

// computeStats folds closed trades (chronological order) into the advanced
// statistics. Trades without a recorded profit are skipped.
func computeStats(trades []*database.Trade) AdvancedStats {
	stats := AdvancedStats{BySymbol: make(map[string]SymbolStats)}

	var grossWin, grossLoss float64
	var equity, peak float64

	for _, t := range trades {
		if t.Status != database.TradeStatusClosed || t.Profit == nil {
			continue
		}
		p := *t.Profit

		stats.TotalTrades++
		stats.TotalProfit += p
		if p >= 0 {
			stats.WinningTrades++
			grossWin += p
		} else {
			stats.LosingTrades++
			grossLoss += -p
		}
		if stats.TotalTrades == 1 || p > stats.BestTrade {
			stats.BestTrade = p
		}
		if stats.TotalTrades == 1 || p < stats.WorstTrade {
			stats.WorstTrade = p
		}

		equity += p
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > stats.MaxDrawdown {
			stats.MaxDrawdown = dd
		}

		sym := stats.BySymbol[t.Symbol]
		sym.Trades++
		sym.Profit += p
		if p >= 0 {
			sym.Wins++
		}
		sym.WinRate = float64(sym.Wins) / float64(sym.Trades) * 100
		stats.BySymbol[t.Symbol] = sym
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100
		stats.AverageProfit = stats.TotalProfit / float64(stats.TotalTrades)
	}
	if stats.WinningTrades > 0 {
		stats.AverageWin = grossWin / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AverageLoss = -grossLoss / float64(stats.LosingTrades)
	}
	if grossLoss > 0 {
		stats.ProfitFactor = grossWin / grossLoss
	} else if grossWin > 0 {
		stats.ProfitFactor = grossWin
	}

	return stats
}

// rangeStart maps the stats range name to its inclusive start time
func rangeStart(name string, now time.Time) time.Time {
	switch name {
	case "week":
		return now.AddDate(0, 0, -7)
	case "month":
		return now.AddDate(0, -1, 0)
	case "quarter":
		return now.AddDate(0, -3, 0)
	case "year":
		return now.AddDate(-1, 0, 0)
	default: // all
		return time.Time{}
	}
}

// startOfDay returns local midnight for the daily P/L window
func startOfDay(now time.Time) time.Time {
	local := now.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}
