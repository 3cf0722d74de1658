package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"futures-trading-engine/internal/database"
	"futures-trading-engine/internal/logging"
)

// Discord posts messages to a channel webhook
type Discord struct {
	webhookURL string
	httpClient *http.Client
	log        *logging.Logger
}

// NewDiscord creates a Discord webhook sink
func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        logging.WithComponent("discord"),
	}
}

// Name identifies the sink in logs
func (d *Discord) Name() string { return "discord" }

func (d *Discord) send(content string) {
	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return
	}
	resp, err := d.httpClient.Post(d.webhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		d.log.Warn("discord send failed", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		d.log.Warn("discord rejected message", "status", resp.StatusCode)
	}
}

// OnTradeOpen announces a new position
func (d *Discord) OnTradeOpen(trade *database.Trade) {
	d.send(formatTradeOpen(trade))
}

// OnTradeClose announces a closed position
func (d *Discord) OnTradeClose(trade *database.Trade) {
	d.send(formatTradeClose(trade))
}

// OnSignal announces a detected signal
func (d *Discord) OnSignal(symbol, direction string, strength float64, source string) {
	d.send(fmt.Sprintf("%s signal on %s (%.0f%% strength, %s)", direction, symbol, strength, source))
}

// OnTrailingUpdate announces a ratchet move
func (d *Discord) OnTrailingUpdate(trade *database.Trade, newStop float64) {
	d.send(fmt.Sprintf("%s trailing stop moved to %.4f", trade.Symbol, newStop))
}
