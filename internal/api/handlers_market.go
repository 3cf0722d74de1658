package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"futures-trading-engine/internal/ai"
	"futures-trading-engine/internal/analysis"
	"futures-trading-engine/internal/cache"
	"futures-trading-engine/internal/database"
	"futures-trading-engine/internal/errs"
)

const marketKlineLimit = 100

func symbolParam(c *gin.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
}

// getMarket serves the 24h snapshot, cache-first with a short TTL so UI
// polling does not hammer the exchange.
func (s *Server) getMarket(c *gin.Context) {
	symbol := symbolParam(c)
	ctx := c.Request.Context()

	if snap, ok := s.market.Get(ctx, symbol); ok {
		c.JSON(http.StatusOK, snap)
		return
	}

	ticker, err := s.client.Get24hTicker(symbol)
	if err != nil {
		writeError(c, errs.Wrap(errs.NotFound, err, "no market data for "+symbol))
		return
	}

	snap := cache.Snapshot{
		Symbol:           ticker.Symbol,
		Price:            ticker.LastPrice,
		High24h:          ticker.HighPrice,
		Low24h:           ticker.LowPrice,
		Volume24h:        ticker.Volume,
		ChangePercent24h: ticker.PriceChangePercent,
	}
	s.market.Set(ctx, snap)
	c.JSON(http.StatusOK, snap)
}

func (s *Server) analysisSettings(c *gin.Context) (*database.Settings, bool) {
	settings, err := s.repo.GetSettings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return settings, true
}

func analysisConfigOf(settings *database.Settings) analysis.Config {
	return analysis.Config{
		RSIPeriod:     settings.RSIPeriod,
		RSIOverbought: settings.RSIOverbought,
		RSIOversold:   settings.RSIOversold,
		MACDFast:      settings.MACDFast,
		MACDSlow:      settings.MACDSlow,
		MACDSignal:    settings.MACDSignal,
		MAShortPeriod: settings.MAShortPeriod,
		MALongPeriod:  settings.MALongPeriod,
	}
}

func (s *Server) analyzeSymbol(c *gin.Context) {
	symbol := symbolParam(c)
	settings, ok := s.analysisSettings(c)
	if !ok {
		return
	}

	closes, err := s.client.GetKlineCloses(symbol, c.DefaultQuery("timeframe", "1h"), marketKlineLimit)
	if err != nil {
		writeError(c, err)
		return
	}

	result := analysis.Analyze(closes, analysisConfigOf(settings))
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "analysis": result})
}

func (s *Server) analyzeMultiTimeframe(c *gin.Context) {
	symbol := symbolParam(c)
	settings, ok := s.analysisSettings(c)
	if !ok {
		return
	}

	timeframes := settings.Timeframes
	if len(timeframes) == 0 {
		timeframes = []string{"15m", "1h", "4h"}
	}

	result := analysis.AnalyzeMultiTimeframe(func(interval string) ([]float64, error) {
		return s.client.GetKlineCloses(symbol, interval, marketKlineLimit)
	}, timeframes, analysisConfigOf(settings))

	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "analysis": result})
}

func (s *Server) getAIPrediction(c *gin.Context) {
	symbol := symbolParam(c)
	timeframe := c.DefaultQuery("timeframe", "1h")

	klines, err := s.client.GetKlines(symbol, timeframe, marketKlineLimit)
	if err != nil {
		writeError(c, err)
		return
	}

	prediction, err := ai.Analyze(symbol, klines)
	if err != nil {
		writeError(c, err)
		return
	}

	price, err := s.client.GetPrice(symbol)
	if err != nil {
		price = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"prediction":   prediction,
		"currentPrice": price,
		"timeframe":    timeframe,
	})
}
