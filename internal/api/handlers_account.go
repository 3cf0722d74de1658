package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"futures-trading-engine/internal/binance"
	"futures-trading-engine/internal/database"
)

// getAccount reports exchange connectivity with the live balance and open
// positions. A failed exchange call is not an API error; the UI renders the
// disconnected state.
func (s *Server) getAccount(c *gin.Context) {
	if !s.client.IsConfigured() {
		c.JSON(http.StatusOK, gin.H{"connected": false, "error": "exchange API credentials are not configured"})
		return
	}

	info, err := s.client.GetAccountInfo()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "error": err.Error()})
		return
	}

	positions, err := s.client.GetPositions()
	if err != nil {
		positions = nil
	}
	open := make([]binance.Position, 0, len(positions))
	for _, p := range positions {
		if p.IsOpen() {
			open = append(open, p)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"connected": true,
		"balance":   info.TotalWalletBalance,
		"available": info.AvailableBalance,
		"positions": open,
	})
}

func (s *Server) getStatsSummary(c *gin.Context) {
	ctx := c.Request.Context()
	now := time.Now()

	var balance float64
	if s.client.IsConfigured() {
		if info, err := s.client.GetAccountInfo(); err == nil {
			balance = info.TotalWalletBalance
		}
	}

	active, err := s.repo.GetActiveTrades(ctx)
	if err != nil {
		writeError(c, err)
		return
	}

	today, err := s.repo.GetTradesInDateRange(ctx, startOfDay(now), now)
	if err != nil {
		writeError(c, err)
		return
	}
	var todayPnL float64
	for _, t := range today {
		if t.Status == database.TradeStatusClosed && t.Profit != nil {
			todayPnL += *t.Profit
		}
	}
	todayPct := 0.0
	if balance > 0 {
		todayPct = todayPnL / balance * 100
	}

	closed, err := s.repo.GetTrades(ctx, database.TradeStatusClosed)
	if err != nil {
		writeError(c, err)
		return
	}
	overall := computeStats(closed)

	c.JSON(http.StatusOK, gin.H{
		"balance":           balance,
		"todayPnL":          todayPnL,
		"todayPnLPercent":   todayPct,
		"activeTrades":      len(active),
		"totalTrades":       overall.TotalTrades,
		"winRate":           overall.WinRate,
		"totalProfit":       overall.TotalProfit,
		"autoTradingActive": s.bot.IsRunning(),
	})
}

func (s *Server) getAdvancedStats(c *gin.Context) {
	now := time.Now()
	from := rangeStart(c.DefaultQuery("range", "all"), now)

	trades, err := s.repo.GetTradesInDateRange(c.Request.Context(), from, now)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, computeStats(trades))
}
