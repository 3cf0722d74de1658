package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"futures-trading-engine/config"
	"futures-trading-engine/internal/api"
	"futures-trading-engine/internal/binance"
	"futures-trading-engine/internal/cache"
	"futures-trading-engine/internal/database"
	"futures-trading-engine/internal/engine"
	"futures-trading-engine/internal/events"
	"futures-trading-engine/internal/logging"
	"futures-trading-engine/internal/notification"
	"futures-trading-engine/internal/secrets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error: %v", err)
		os.Exit(1)
	}

	logger := logging.New(&logging.Config{
		Level:       cfg.LoggingConfig.Level,
		Output:      cfg.LoggingConfig.Output,
		Component:   "main",
		JSONFormat:  cfg.LoggingConfig.JSONFormat,
		IncludeFile: cfg.LoggingConfig.IncludeFile,
	})
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, database.ConnString(
		cfg.DatabaseConfig.Host, cfg.DatabaseConfig.Port,
		cfg.DatabaseConfig.User, cfg.DatabaseConfig.Password,
		cfg.DatabaseConfig.Database, cfg.DatabaseConfig.SSLMode,
	))
	if err != nil {
		logger.Fatal("database connection failed", "error", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)
	settings, err := repo.GetSettings(ctx)
	if err != nil {
		logger.Fatal("settings load failed", "error", err)
	}

	creds := resolveCredentials(ctx, cfg, settings, logger)
	client := binance.NewClient(creds.APIKey, creds.SecretKey, settings.Testnet)
	if !client.IsConfigured() {
		logger.Warn("exchange credentials missing, trading disabled until configured")
	}

	bus := events.NewBus()

	notifier := notification.NewManager()
	if cfg.NotificationConfig.Enabled {
		if tg := cfg.NotificationConfig.Telegram; tg.Enabled {
			notifier.Register(notification.NewTelegram(tg.BotToken, tg.ChatID))
		}
		if dc := cfg.NotificationConfig.Discord; dc.Enabled {
			notifier.Register(notification.NewDiscord(dc.WebhookURL))
		}
	}

	market := cache.New(cfg.RedisConfig.Addr, cfg.RedisConfig.Password, cfg.RedisConfig.DB)
	defer market.Close()

	bot := engine.New(client, repo, bus, notifier, nil)
	if client.IsConfigured() {
		if err := bot.Start(ctx); err != nil {
			logger.Error("engine start failed", "error", err)
		}
	}

	server := api.NewServer(api.ServerConfig{
		Host:           cfg.ServerConfig.Host,
		Port:           cfg.ServerConfig.Port,
		ProductionMode: cfg.ServerConfig.ProductionMode,
	}, repo, client, bot, bus, market)

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("api server failed", "error", err)
		}
	}

	bot.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", "error", err)
	}
	logger.Info("shutdown complete")
}

// resolveCredentials picks the exchange key pair: the settings row wins, then
// Vault when enabled, then the process environment.
func resolveCredentials(ctx context.Context, cfg *config.Config, settings *database.Settings, logger *logging.Logger) secrets.Credentials {
	if settings.APIKey != "" && settings.SecretKey != "" {
		return secrets.Credentials{APIKey: settings.APIKey, SecretKey: settings.SecretKey}
	}

	var source secrets.Source = secrets.StaticSource{Creds: secrets.Credentials{
		APIKey:    cfg.BinanceConfig.APIKey,
		SecretKey: cfg.BinanceConfig.SecretKey,
	}}

	if cfg.VaultConfig.Enabled {
		vs, err := secrets.NewVaultSource(cfg.VaultConfig.Address, cfg.VaultConfig.Token,
			cfg.VaultConfig.Mount, cfg.VaultConfig.KeyPath)
		if err != nil {
			logger.Error("vault client creation failed, falling back to environment", "error", err)
		} else {
			source = vs
		}
	}

	creds, err := source.Load(ctx)
	if err != nil {
		logger.Error("credential load failed", "error", err)
		return secrets.Credentials{}
	}
	return creds
}
