package binance

import (
	"math"
	"testing"

	"futures-trading-engine/internal/errs"
)

func TestRoundQuantityFloors(t *testing.T) {
	tests := []struct {
		symbol string
		qty    float64
		want   float64
	}{
		{"BTCUSDT", 0.0019999, 0.001},
		{"BTCUSDT", 0.12349, 0.123},
		{"ADAUSDT", 15.9, 15},
		{"SOLUSDT", 2.57, 2.5},
		{"UNKNOWN", 1.23456, 1.234},
	}

	for _, tt := range tests {
		got := RoundQuantity(tt.symbol, tt.qty)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("RoundQuantity(%s, %v) = %v, want %v", tt.symbol, tt.qty, got, tt.want)
		}
	}
}

func TestRoundQuantityZeroResult(t *testing.T) {
	// quantities below one step must floor to exactly zero
	if got := RoundQuantity("BTCUSDT", 0.0009); got != 0 {
		t.Errorf("RoundQuantity below step = %v, want 0", got)
	}
}

func TestRoundPriceRounds(t *testing.T) {
	tests := []struct {
		symbol string
		price  float64
		want   float64
	}{
		{"BTCUSDT", 65432.16, 65432.2},
		{"BTCUSDT", 65432.14, 65432.1},
		{"ETHUSDT", 3500.456, 3500.46},
		{"XRPUSDT", 0.52346, 0.5235},
	}

	for _, tt := range tests {
		got := RoundPrice(tt.symbol, tt.price)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("RoundPrice(%s, %v) = %v, want %v", tt.symbol, tt.price, got, tt.want)
		}
	}
}

func TestDerivePositionSide(t *testing.T) {
	tests := []struct {
		name     string
		side     OrderSide
		hedging  bool
		override PositionSide
		want     PositionSide
	}{
		{"one-way always BOTH", SideBuy, false, "", PositionBoth},
		{"one-way ignores override", SideSell, false, PositionLong, PositionBoth},
		{"hedging buy", SideBuy, true, "", PositionLong},
		{"hedging sell", SideSell, true, "", PositionShort},
		{"hedging override wins", SideBuy, true, PositionShort, PositionShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := derivePositionSide(tt.side, tt.hedging, tt.override)
			if got != tt.want {
				t.Errorf("derivePositionSide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeAPIError(t *testing.T) {
	err := decodeAPIError([]byte(`{"code":-2019,"msg":"Margin is insufficient."}`), 400)
	e, ok := err.(*errs.Error)
	if !ok {
		t.Fatalf("expected *errs.Error, got %T", err)
	}
	if e.Kind != errs.ExchangeRejected || e.Code != -2019 {
		t.Errorf("got kind=%s code=%d, want exchange_rejected/-2019", e.Kind, e.Code)
	}

	err = decodeAPIError([]byte("<html>bad gateway</html>"), 502)
	if !errs.Is(err, errs.ExchangeRejected) {
		t.Errorf("non-JSON body should still map to exchange_rejected, got %v", err)
	}
}

func TestRetryableCode(t *testing.T) {
	for _, code := range []int{-1001, -1003, -1015, -1016} {
		if !retryableCode(code) {
			t.Errorf("code %d should be retryable", code)
		}
	}
	for _, code := range []int{-2019, -4061, -1111, 0} {
		if retryableCode(code) {
			t.Errorf("code %d should not be retryable", code)
		}
	}
}

func TestOppositeSide(t *testing.T) {
	if SideBuy.Opposite() != SideSell || SideSell.Opposite() != SideBuy {
		t.Error("Opposite() must swap BUY and SELL")
	}
}

func TestNewClientOrderIDPrefix(t *testing.T) {
	id := newClientOrderID()
	if len(id) < 5 || id[:4] != clientOrderIDTag+"-" {
		t.Errorf("client order ID %q missing %s prefix", id, clientOrderIDTag)
	}
	if len(id) > 36 {
		t.Errorf("client order ID %q exceeds exchange length limit", id)
	}
}

func TestUpdateCredentialsTakesEffectWithoutRestart(t *testing.T) {
	c := NewClient("", "", true)
	if c.IsConfigured() {
		t.Fatal("client without keys must not report configured")
	}

	c.UpdateCredentials("key", "secret")
	if !c.IsConfigured() {
		t.Fatal("client must be configured after a credential update")
	}

	c.UpdateCredentials("", "")
	if c.IsConfigured() {
		t.Fatal("cleared credentials must deconfigure the client")
	}
}

func TestParseFloat(t *testing.T) {
	if got := parseFloat("123.45"); got != 123.45 {
		t.Errorf("parseFloat(string) = %v", got)
	}
	if got := parseFloat(float64(9.5)); got != 9.5 {
		t.Errorf("parseFloat(float64) = %v", got)
	}
	if got := parseFloat(nil); got != 0 {
		t.Errorf("parseFloat(nil) = %v, want 0", got)
	}
}
