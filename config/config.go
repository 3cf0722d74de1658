package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds process-level configuration loaded from the environment.
// Runtime trading settings live in the database and are editable through the
// API; everything here is fixed for the life of the process.
type Config struct {
	BinanceConfig      BinanceConfig      `json:"binance"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
	VaultConfig        VaultConfig        `json:"vault"`
	ServerConfig       ServerConfig       `json:"server"`
	LoggingConfig      LoggingConfig      `json:"logging"`
	NotificationConfig NotificationConfig `json:"notification"`
}

// BinanceConfig holds the default exchange credentials. These seed the
// settings row on first run; the operator can replace them through the API.
type BinanceConfig struct {
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
	TestNet   bool   `json:"testnet"`
}

// DatabaseConfig holds PostgreSQL connection parameters
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds the market snapshot cache connection. The cache degrades
// to in-memory when Addr is empty or the server is unreachable.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// VaultConfig holds the optional HashiCorp Vault credential source
type VaultConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
	Token   string `json:"token"`
	Mount   string `json:"mount"`
	KeyPath string `json:"key_path"`
}

// ServerConfig holds the HTTP API server configuration
type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	ProductionMode bool   `json:"production_mode"`
}

type LoggingConfig struct {
	Level       string `json:"level"`        // DEBUG, INFO, WARN, ERROR
	Output      string `json:"output"`       // stdout, stderr, or file path
	JSONFormat  bool   `json:"json_format"`  // Output as JSON
	IncludeFile bool   `json:"include_file"` // Include file and line number
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

// Load reads configuration from the environment, honoring a .env file in the
// working directory when present.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		BinanceConfig: BinanceConfig{
			APIKey:    getEnv("BINANCE_API_KEY", ""),
			SecretKey: getEnv("BINANCE_SECRET_KEY", ""),
			TestNet:   getEnvBool("BINANCE_TESTNET", true),
		},
		DatabaseConfig: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "trading_engine"),
			Password: getEnv("DB_PASSWORD", "trading_engine_password"),
			Database: getEnv("DB_NAME", "trading_engine"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		RedisConfig: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		VaultConfig: VaultConfig{
			Enabled: getEnvBool("VAULT_ENABLED", false),
			Address: getEnv("VAULT_ADDR", "http://localhost:8200"),
			Token:   getEnv("VAULT_TOKEN", ""),
			Mount:   getEnv("VAULT_MOUNT", "secret"),
			KeyPath: getEnv("VAULT_KEY_PATH", "trading-engine/binance"),
		},
		ServerConfig: ServerConfig{
			Host:           getEnv("WEB_HOST", "0.0.0.0"),
			Port:           getEnvInt("WEB_PORT", 8088),
			ProductionMode: getEnvBool("PRODUCTION_MODE", true),
		},
		LoggingConfig: LoggingConfig{
			Level:       getEnv("LOG_LEVEL", "INFO"),
			Output:      getEnv("LOG_OUTPUT", "stdout"),
			JSONFormat:  getEnvBool("LOG_JSON", true),
			IncludeFile: getEnvBool("LOG_INCLUDE_FILE", false),
		},
		NotificationConfig: NotificationConfig{
			Enabled: getEnvBool("NOTIFICATIONS_ENABLED", false),
			Telegram: TelegramConfig{
				Enabled:  getEnvBool("TELEGRAM_ENABLED", false),
				BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
				ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
			},
			Discord: DiscordConfig{
				Enabled:    getEnvBool("DISCORD_ENABLED", false),
				WebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerConfig.Port <= 0 || c.ServerConfig.Port > 65535 {
		return fmt.Errorf("invalid WEB_PORT: %d", c.ServerConfig.Port)
	}
	if c.VaultConfig.Enabled && c.VaultConfig.Token == "" {
		return fmt.Errorf("VAULT_ENABLED is set but VAULT_TOKEN is empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}
