package notification

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"futures-trading-engine/internal/database"
	"futures-trading-engine/internal/logging"
)

// Telegram sends messages through the Bot API sendMessage endpoint
type Telegram struct {
	botToken   string
	chatID     string
	httpClient *http.Client
	log        *logging.Logger
}

// NewTelegram creates a Telegram sink
func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        logging.WithComponent("telegram"),
	}
}

// Name identifies the sink in logs
func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) send(text string) {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	resp, err := t.httpClient.PostForm(endpoint, url.Values{
		"chat_id": {t.chatID},
		"text":    {text},
	})
	if err != nil {
		t.log.Warn("telegram send failed", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.log.Warn("telegram rejected message", "status", resp.StatusCode)
	}
}

// OnTradeOpen announces a new position
func (t *Telegram) OnTradeOpen(trade *database.Trade) {
	t.send("🟢 " + formatTradeOpen(trade))
}

// OnTradeClose announces a closed position
func (t *Telegram) OnTradeClose(trade *database.Trade) {
	icon := "✅"
	if trade.Profit != nil && *trade.Profit < 0 {
		icon = "🔴"
	}
	t.send(icon + " " + formatTradeClose(trade))
}

// OnSignal announces a detected signal
func (t *Telegram) OnSignal(symbol, direction string, strength float64, source string) {
	t.send(fmt.Sprintf("📊 %s signal on %s (%.0f%% strength, %s)", direction, symbol, strength, source))
}

// OnTrailingUpdate announces a ratchet move
func (t *Telegram) OnTrailingUpdate(trade *database.Trade, newStop float64) {
	t.send(fmt.Sprintf("🔒 %s trailing stop moved to %.4f", trade.Symbol, newStop))
}
