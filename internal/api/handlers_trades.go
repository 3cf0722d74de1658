package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"futures-trading-engine/internal/database"
	"futures-trading-engine/internal/errs"
)

func (s *Server) listActiveTrades(c *gin.Context) {
	trades, err := s.repo.GetActiveTrades(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if trades == nil {
		trades = []*database.Trade{}
	}
	c.JSON(http.StatusOK, trades)
}

func (s *Server) listTradeHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	trades, err := s.repo.GetTradeHistory(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if trades == nil {
		trades = []*database.Trade{}
	}
	c.JSON(http.StatusOK, trades)
}

func (s *Server) getTrade(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		writeError(c, errs.New(errs.ValidationFailed, "trade id must be numeric, got %q", c.Param("id")))
		return
	}
	trade, err := s.repo.GetTradeByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

type openTradeRequest struct {
	Symbol string `json:"symbol"`
	Type   string `json:"type"` // long or short
}

func (s *Server) openTrade(c *gin.Context) {
	var req openTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errs.New(errs.ValidationFailed, "malformed trade request: %v", err))
		return
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		writeError(c, errs.New(errs.ValidationFailed, "symbol is required"))
		return
	}

	trade, err := s.bot.OpenManualTrade(c.Request.Context(), req.Symbol, req.Type)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trade)
}

func (s *Server) closeTrade(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		writeError(c, errs.New(errs.ValidationFailed, "trade id must be numeric, got %q", c.Param("id")))
		return
	}
	trade, err := s.bot.CloseTradeByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

func (s *Server) closeAllTrades(c *gin.Context) {
	closed, err := s.bot.CloseAllOpenTrades(c.Request.Context())
	if err != nil && closed == 0 {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closedCount": closed})
}

func (s *Server) getLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	logs, err := s.repo.GetLogs(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if logs == nil {
		logs = []*database.ActivityLog{}
	}
	c.JSON(http.StatusOK, logs)
}
