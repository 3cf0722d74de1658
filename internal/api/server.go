// Package api exposes the operator HTTP surface: settings, trades, account
// and market queries, analyzer previews, bot control, and a websocket stream
// of engine events.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"futures-trading-engine/internal/cache"
	"futures-trading-engine/internal/database"
	"futures-trading-engine/internal/engine"
	"futures-trading-engine/internal/events"
	"futures-trading-engine/internal/logging"
)

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	Host           string
	Port           int
	ProductionMode bool
}

// Server is the operator API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	repo       *database.Repository
	client     engine.ExchangeClient
	bot        *engine.Engine
	bus        *events.Bus
	market     *cache.MarketCache
	hub        *wsHub
	log        *logging.Logger
}

// NewServer wires the router. The websocket hub subscribes to every bus event
// so the UI sees trades, logs and settings changes as they happen.
func NewServer(cfg ServerConfig, repo *database.Repository, client engine.ExchangeClient,
	bot *engine.Engine, bus *events.Bus, market *cache.MarketCache) *Server {

	if cfg.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	s := &Server{
		router: router,
		repo:   repo,
		client: client,
		bot:    bot,
		bus:    bus,
		market: market,
		hub:    newWSHub(),
		log:    logging.WithComponent("api"),
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.registerRoutes()
	bus.SubscribeAll(s.hub.publish)
	return s
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")

	api.GET("/settings", s.getSettings)
	api.PUT("/settings", s.updateSettings)
	api.POST("/bot/toggle", s.toggleBot)
	api.POST("/bot/start", s.startAutoTrading)
	api.POST("/bot/stop", s.stopAutoTrading)
	api.GET("/bot/status", s.autoTradingStatus)
	api.GET("/exchange/test", s.testExchange)

	api.GET("/trades/active", s.listActiveTrades)
	api.GET("/trades/history", s.listTradeHistory)
	api.GET("/trades/:id", s.getTrade)
	api.POST("/trades", s.openTrade)
	api.POST("/trades/:id/close", s.closeTrade)
	api.POST("/trades/close-all", s.closeAllTrades)

	api.GET("/account", s.getAccount)
	api.GET("/stats/summary", s.getStatsSummary)
	api.GET("/stats/advanced", s.getAdvancedStats)
	api.GET("/logs", s.getLogs)

	api.GET("/market/:symbol", s.getMarket)
	api.GET("/analysis/:symbol", s.analyzeSymbol)
	api.GET("/analysis/:symbol/mtf", s.analyzeMultiTimeframe)
	api.GET("/ai/:symbol", s.getAIPrediction)

	s.router.GET("/ws", s.handleWebSocket)
}

// Start runs the hub and the HTTP listener until the listener stops
func (s *Server) Start() error {
	go s.hub.run()
	s.log.Info("api server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.stop()
	return s.httpServer.Shutdown(ctx)
}

// activityLog persists an operator-visible log line and pushes it over the
// realtime stream
func (s *Server) activityLog(ctx context.Context, level, message, details string) {
	if err := s.repo.CreateLog(ctx, level, message, details); err != nil {
		s.log.Error("activity log write failed", "error", err)
	}
	s.bus.Publish(events.EventNewLog, map[string]string{
		"level": level, "message": message, "details": details,
	})
}
