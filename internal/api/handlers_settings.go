package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"futures-trading-engine/internal/database"
	"futures-trading-engine/internal/errs"
	"futures-trading-engine/internal/events"
)

func (s *Server) getSettings(c *gin.Context) {
	settings, err := s.repo.GetSettings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// updateSettings applies a partial update: the request body is decoded over
// the current settings so absent fields keep their values. The secret key is
// write-only and arrives through its own field.
func (s *Server) updateSettings(c *gin.Context) {
	current, err := s.repo.GetSettings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	updated := *current
	if err := c.ShouldBindBodyWith(&updated, binding.JSON); err != nil {
		writeError(c, errs.New(errs.ValidationFailed, "malformed settings payload: %v", err))
		return
	}
	var secret struct {
		SecretKey *string `json:"secretKey"`
	}
	if err := c.ShouldBindBodyWith(&secret, binding.JSON); err == nil && secret.SecretKey != nil {
		updated.SecretKey = *secret.SecretKey
	}

	if err := updated.Validate(); err != nil {
		writeError(c, err)
		return
	}

	saved, err := s.repo.UpdateSettings(c.Request.Context(), &updated)
	if err != nil {
		writeError(c, err)
		return
	}

	// new keys take effect immediately, without a process restart
	if updated.APIKey != current.APIKey || updated.SecretKey != current.SecretKey {
		if uc, ok := s.client.(interface {
			UpdateCredentials(apiKey, secretKey string)
		}); ok {
			uc.UpdateCredentials(updated.APIKey, updated.SecretKey)
		}
	} else if inv, ok := s.client.(interface{ InvalidatePositionMode() }); ok {
		inv.InvalidatePositionMode()
	}

	if updated.HedgingEnabled != current.HedgingEnabled {
		if err := s.client.SetPositionMode(updated.HedgingEnabled); err != nil {
			s.activityLog(c.Request.Context(), database.LogLevelWarning,
				"Exchange refused the position mode change", err.Error())
		}
	}

	s.activityLog(c.Request.Context(), database.LogLevelInfo, "Settings updated", "")
	s.bus.Publish(events.EventSettingsUpdate, saved)
	c.JSON(http.StatusOK, saved)
}

func (s *Server) toggleBot(c *gin.Context) {
	settings, err := s.repo.GetSettings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	if !settings.AutoTradingEnabled && !s.client.IsConfigured() {
		writeError(c, errs.New(errs.NotConfigured, "exchange API credentials are not configured"))
		return
	}

	settings.AutoTradingEnabled = !settings.AutoTradingEnabled
	saved, err := s.repo.UpdateSettings(c.Request.Context(), settings)
	if err != nil {
		writeError(c, err)
		return
	}

	state := "disabled"
	if saved.AutoTradingEnabled {
		state = "enabled"
	}
	s.activityLog(c.Request.Context(), database.LogLevelInfo, "Auto-trading "+state, "")
	s.bus.Publish(events.EventSettingsUpdate, saved)
	c.JSON(http.StatusOK, saved)
}

func (s *Server) startAutoTrading(c *gin.Context) {
	if err := s.bot.Start(context.Background()); err != nil && !errs.Is(err, errs.NotActive) {
		writeError(c, err)
		return
	}
	s.autoTradingStatus(c)
}

func (s *Server) stopAutoTrading(c *gin.Context) {
	s.bot.Stop()
	s.autoTradingStatus(c)
}

func (s *Server) autoTradingStatus(c *gin.Context) {
	settings, err := s.repo.GetSettings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"isRunning": s.bot.IsRunning(),
		"enabled":   settings.AutoTradingEnabled,
	})
}

func (s *Server) testExchange(c *gin.Context) {
	if !s.client.IsConfigured() {
		writeError(c, errs.New(errs.NotConfigured, "exchange API credentials are not configured"))
		return
	}
	if _, err := s.client.GetAccountInfo(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
