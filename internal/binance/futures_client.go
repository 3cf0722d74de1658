package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"futures-trading-engine/internal/errs"
	"futures-trading-engine/internal/logging"
)

const (
	mainnetBaseURL = "https://fapi.binance.com"
	testnetBaseURL = "https://testnet.binancefuture.com"

	recvWindow       = 10000
	maxRetries       = 3
	positionModeTTL  = 60 * time.Second
	clientOrderIDTag = "fte"
)

// Client is a Binance USD-M futures REST client. All quantities and prices
// sent to the exchange pass through the symbol precision tables first.
type Client struct {
	credMu    sync.RWMutex
	apiKey    string
	secretKey string

	baseURL    string
	httpClient *http.Client
	log        *logging.Logger

	modeMu        sync.Mutex
	dualSide      bool
	modeFetchedAt time.Time
}

// NewClient creates a futures client. testnet selects the demo endpoint.
func NewClient(apiKey, secretKey string, testnet bool) *Client {
	baseURL := mainnetBaseURL
	if testnet {
		baseURL = testnetBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		secretKey:  secretKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        logging.WithComponent("binance"),
	}
}

// IsConfigured reports whether API credentials are present
func (c *Client) IsConfigured() bool {
	key, secret := c.credentials()
	return key != "" && secret != ""
}

// UpdateCredentials swaps the API credentials at runtime, so keys configured
// through the settings endpoint take effect without a restart. The cached
// position mode is dropped because it belongs to the previous account.
func (c *Client) UpdateCredentials(apiKey, secretKey string) {
	c.credMu.Lock()
	c.apiKey = apiKey
	c.secretKey = secretKey
	c.credMu.Unlock()
	c.InvalidatePositionMode()
}

func (c *Client) credentials() (string, string) {
	c.credMu.RLock()
	defer c.credMu.RUnlock()
	return c.apiKey, c.secretKey
}

func (c *Client) sign(query, secretKey string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// retryableCode reports whether an exchange error code is transient
func retryableCode(code int) bool {
	switch code {
	case -1001, -1003, -1015, -1016:
		return true
	}
	return false
}

func backoff(attempt int) time.Duration {
	base := time.Duration(attempt) * time.Second
	jitter := time.Duration(rand.Int63n(int64(500 * time.Millisecond)))
	return base + jitter
}

// doPublic performs an unsigned GET against a public endpoint
func (c *Client) doPublic(endpoint string, params url.Values, out interface{}) error {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		resp, err := c.httpClient.Get(reqURL)
		if err != nil {
			lastErr = errs.Wrap(errs.Network, err, fmt.Sprintf("GET %s failed", endpoint))
			time.Sleep(backoff(attempt))
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = errs.Wrap(errs.Network, err, "reading response body")
			time.Sleep(backoff(attempt))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := decodeAPIError(body, resp.StatusCode)
			if e, ok := apiErr.(*errs.Error); ok && retryableCode(e.Code) {
				lastErr = apiErr
				time.Sleep(backoff(attempt))
				continue
			}
			return apiErr
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return errs.Wrap(errs.Network, err, fmt.Sprintf("decoding %s response", endpoint))
		}
		return nil
	}
	return lastErr
}

// doSigned performs a signed request. params must not include timestamp,
// recvWindow or signature; they are appended here.
func (c *Client) doSigned(method, endpoint string, params url.Values, out interface{}) error {
	if !c.IsConfigured() {
		return errs.New(errs.NotConfigured, "binance API credentials not configured")
	}

	if params == nil {
		params = url.Values{}
	}

	apiKey, secretKey := c.credentials()

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		signed := url.Values{}
		for k, v := range params {
			signed[k] = v
		}
		signed.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		signed.Set("recvWindow", strconv.Itoa(recvWindow))

		query := signed.Encode()
		query += "&signature=" + c.sign(query, secretKey)

		var req *http.Request
		var err error
		switch method {
		case http.MethodGet, http.MethodDelete:
			req, err = http.NewRequest(method, c.baseURL+endpoint+"?"+query, nil)
		default:
			req, err = http.NewRequest(method, c.baseURL+endpoint, strings.NewReader(query))
			if req != nil {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
		}
		if err != nil {
			return errs.Wrap(errs.Network, err, "building request")
		}
		req.Header.Set("X-MBX-APIKEY", apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = errs.Wrap(errs.Network, err, fmt.Sprintf("%s %s failed", method, endpoint))
			time.Sleep(backoff(attempt))
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = errs.Wrap(errs.Network, err, "reading response body")
			time.Sleep(backoff(attempt))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := decodeAPIError(body, resp.StatusCode)
			if e, ok := apiErr.(*errs.Error); ok && retryableCode(e.Code) {
				c.log.Warn("retrying transient exchange error",
					"endpoint", endpoint, "code", e.Code, "attempt", attempt)
				lastErr = apiErr
				time.Sleep(backoff(attempt))
				continue
			}
			return apiErr
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return errs.Wrap(errs.Network, err, fmt.Sprintf("decoding %s response", endpoint))
		}
		return nil
	}
	return lastErr
}

func decodeAPIError(body []byte, status int) error {
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Code != 0 {
		return errs.Rejected(ae.Code, ae.Msg)
	}
	return errs.New(errs.ExchangeRejected, "HTTP %d: %s", status, string(body))
}

// GetPrice returns the latest mark price for a symbol
func (c *Client) GetPrice(symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp struct {
		Price float64 `json:"price,string"`
	}
	if err := c.doPublic("/fapi/v1/ticker/price", params, &resp); err != nil {
		return 0, err
	}
	return resp.Price, nil
}

// Get24hTicker returns the 24 hour rolling statistics for a symbol
func (c *Client) Get24hTicker(symbol string) (*Ticker24h, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var ticker Ticker24h
	if err := c.doPublic("/fapi/v1/ticker/24hr", params, &ticker); err != nil {
		return nil, err
	}
	return &ticker, nil
}

// GetKlines fetches OHLCV candles for a symbol and interval
func (c *Client) GetKlines(symbol, interval string, limit int) ([]Kline, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	var raw [][]interface{}
	if err := c.doPublic("/fapi/v1/klines", params, &raw); err != nil {
		return nil, err
	}

	klines := make([]Kline, 0, len(raw))
	for _, row := range raw {
		if len(row) < 7 {
			continue
		}
		klines = append(klines, Kline{
			OpenTime:  int64(parseFloat(row[0])),
			Open:      parseFloat(row[1]),
			High:      parseFloat(row[2]),
			Low:       parseFloat(row[3]),
			Close:     parseFloat(row[4]),
			Volume:    parseFloat(row[5]),
			CloseTime: int64(parseFloat(row[6])),
		})
	}
	if len(klines) == 0 {
		return nil, errs.New(errs.NoData, "no klines returned for %s %s", symbol, interval)
	}
	return klines, nil
}

// GetKlineCloses fetches closing prices only, oldest first
func (c *Client) GetKlineCloses(symbol, interval string, limit int) ([]float64, error) {
	klines, err := c.GetKlines(symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	closes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
	}
	return closes, nil
}

// parseFloat converts the mixed string/number cells of a kline row
func parseFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	}
	return 0
}

// GetAccountInfo returns the futures wallet summary
func (c *Client) GetAccountInfo() (*AccountInfo, error) {
	var info AccountInfo
	if err := c.doSigned(http.MethodGet, "/fapi/v2/account", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetPositions returns all open positions (non-zero quantity)
func (c *Client) GetPositions() ([]Position, error) {
	var all []Position
	if err := c.doSigned(http.MethodGet, "/fapi/v2/positionRisk", nil, &all); err != nil {
		return nil, err
	}
	open := make([]Position, 0, len(all))
	for _, p := range all {
		if p.IsOpen() {
			open = append(open, p)
		}
	}
	return open, nil
}

// GetPosition returns the open position for a symbol and position side, or
// nil when there is none.
func (c *Client) GetPosition(symbol string, side PositionSide) (*Position, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var all []Position
	if err := c.doSigned(http.MethodGet, "/fapi/v2/positionRisk", params, &all); err != nil {
		return nil, err
	}
	for i := range all {
		p := &all[i]
		if !p.IsOpen() {
			continue
		}
		if side == "" || side == PositionBoth || p.PositionSide == string(side) {
			return p, nil
		}
	}
	return nil, nil
}

// SetLeverage sets the leverage for a symbol
func (c *Client) SetLeverage(symbol string, leverage int) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("leverage", strconv.Itoa(leverage))
	return c.doSigned(http.MethodPost, "/fapi/v1/leverage", params, nil)
}

// GetPositionMode reports whether the account is in hedging (dual-side) mode.
// The result is cached for a minute; order placement invalidates the cache on
// position-mode rejections.
func (c *Client) GetPositionMode() (bool, error) {
	c.modeMu.Lock()
	defer c.modeMu.Unlock()

	if time.Since(c.modeFetchedAt) < positionModeTTL {
		return c.dualSide, nil
	}

	var resp positionModeResponse
	if err := c.doSigned(http.MethodGet, "/fapi/v1/positionSide/dual", nil, &resp); err != nil {
		return false, err
	}
	c.dualSide = resp.DualSidePosition
	c.modeFetchedAt = time.Now()
	return c.dualSide, nil
}

// InvalidatePositionMode drops the cached position mode so the next call
// refetches it.
func (c *Client) InvalidatePositionMode() {
	c.modeMu.Lock()
	c.modeFetchedAt = time.Time{}
	c.modeMu.Unlock()
}

// SetPositionMode switches the account between one-way and hedging mode. The
// exchange rejects the switch while positions or open orders exist; asking
// for the mode already in effect is not an error.
func (c *Client) SetPositionMode(dualSide bool) error {
	params := url.Values{}
	params.Set("dualSidePosition", strconv.FormatBool(dualSide))
	if err := c.doSigned(http.MethodPost, "/fapi/v1/positionSide/dual", params, nil); err != nil {
		if e, ok := err.(*errs.Error); !ok || e.Code != -4059 {
			return err
		}
	}
	c.modeMu.Lock()
	c.dualSide = dualSide
	c.modeFetchedAt = time.Now()
	c.modeMu.Unlock()
	return nil
}

func newClientOrderID() string {
	return clientOrderIDTag + "-" + uuid.New().String()[:18]
}

// derivePositionSide picks the positionSide parameter for an order
func derivePositionSide(side OrderSide, hedging bool, override PositionSide) PositionSide {
	if !hedging {
		return PositionBoth
	}
	if override != "" {
		return override
	}
	if side == SideBuy {
		return PositionLong
	}
	return PositionShort
}

// PlaceBracketOrder places a market entry followed by protective STOP_MARKET
// and TAKE_PROFIT_MARKET orders on the closing side. When the entry fills but
// a protective order is rejected, the result carries ProtectionFailed instead
// of an error so the caller can track the naked position.
func (c *Client) PlaceBracketOrder(p BracketParams) (*OrderResult, error) {
	qty := RoundQuantity(p.Symbol, p.Quantity)
	if qty <= 0 {
		return nil, errs.New(errs.InvalidQuantity,
			"quantity %.8f rounds to zero for %s", p.Quantity, p.Symbol)
	}

	if p.Leverage > 0 {
		if err := c.SetLeverage(p.Symbol, p.Leverage); err != nil {
			c.log.Warn("leverage change failed, continuing with current leverage",
				"symbol", p.Symbol, "error", err)
		}
	}

	posSide := derivePositionSide(p.Side, p.HedgingMode, p.PositionSideOverride)
	qtyStr := strconv.FormatFloat(qty, 'f', QuantityPrecision(p.Symbol), 64)

	params := url.Values{}
	params.Set("symbol", p.Symbol)
	params.Set("side", string(p.Side))
	params.Set("type", string(OrderTypeMarket))
	params.Set("quantity", qtyStr)
	params.Set("newClientOrderId", newClientOrderID())
	if p.HedgingMode {
		params.Set("positionSide", string(posSide))
	}

	var entry OrderResponse
	if err := c.doSigned(http.MethodPost, "/fapi/v1/order", params, &entry); err != nil {
		if e, ok := err.(*errs.Error); ok && e.Code == -4061 {
			// position side mismatch: account mode changed under us
			c.InvalidatePositionMode()
		}
		return nil, err
	}

	result := &OrderResult{
		EntryOrderID: entry.OrderID,
		ExecutedQty:  entry.ExecutedQty,
		AvgPrice:     entry.AvgPrice,
	}

	closeSide := p.Side.Opposite()

	if p.StopLoss > 0 {
		id, err := c.placeProtective(p.Symbol, closeSide, posSide, OrderTypeStopMarket,
			p.StopLoss, qtyStr, p.HedgingMode)
		if err != nil {
			c.log.Error("stop-loss placement failed after entry fill",
				"symbol", p.Symbol, "entry_order", entry.OrderID, "error", err)
			result.ProtectionFailed = true
		} else {
			result.StopLossOrderID = id
		}
	}

	if p.TakeProfit > 0 {
		id, err := c.placeProtective(p.Symbol, closeSide, posSide, OrderTypeTakeProfitMarket,
			p.TakeProfit, qtyStr, p.HedgingMode)
		if err != nil {
			c.log.Error("take-profit placement failed after entry fill",
				"symbol", p.Symbol, "entry_order", entry.OrderID, "error", err)
			result.ProtectionFailed = true
		} else {
			result.TakeProfitOrderID = id
		}
	}

	return result, nil
}

// PlaceProtectiveOrders re-places the stop and take-profit legs of a bracket
// whose entry filled without them. entrySide is the original entry side; the
// protective orders go on the closing side.
func (c *Client) PlaceProtectiveOrders(symbol string, entrySide OrderSide, posSide PositionSide,
	quantity, stopLoss, takeProfit float64, hedging bool) error {

	qty := RoundQuantity(symbol, quantity)
	if qty <= 0 {
		return errs.New(errs.InvalidQuantity,
			"quantity %.8f rounds to zero for %s", quantity, symbol)
	}
	qtyStr := strconv.FormatFloat(qty, 'f', QuantityPrecision(symbol), 64)
	closeSide := entrySide.Opposite()

	if stopLoss > 0 {
		if _, err := c.placeProtective(symbol, closeSide, posSide, OrderTypeStopMarket,
			stopLoss, qtyStr, hedging); err != nil {
			return err
		}
	}
	if takeProfit > 0 {
		if _, err := c.placeProtective(symbol, closeSide, posSide, OrderTypeTakeProfitMarket,
			takeProfit, qtyStr, hedging); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) placeProtective(symbol string, side OrderSide, posSide PositionSide,
	orderType OrderType, stopPrice float64, qty string, hedging bool) (int64, error) {

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", string(side))
	params.Set("type", string(orderType))
	params.Set("stopPrice", strconv.FormatFloat(RoundPrice(symbol, stopPrice), 'f', PricePrecision(symbol), 64))
	params.Set("newClientOrderId", newClientOrderID())
	if hedging {
		params.Set("positionSide", string(posSide))
		params.Set("quantity", qty)
	} else {
		// one-way mode: closePosition flattens whatever remains
		params.Set("closePosition", "true")
	}

	var resp OrderResponse
	if err := c.doSigned(http.MethodPost, "/fapi/v1/order", params, &resp); err != nil {
		return 0, err
	}
	return resp.OrderID, nil
}

// ClosePosition closes an open position with a reduce-only market order
func (c *Client) ClosePosition(symbol string, posSide PositionSide, quantity float64, hedging bool) (*OrderResponse, error) {
	qty := RoundQuantity(symbol, quantity)
	if qty <= 0 {
		return nil, errs.New(errs.InvalidQuantity,
			"close quantity %.8f rounds to zero for %s", quantity, symbol)
	}

	side := SideSell
	if posSide == PositionShort {
		side = SideBuy
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", string(side))
	params.Set("type", string(OrderTypeMarket))
	params.Set("quantity", strconv.FormatFloat(qty, 'f', QuantityPrecision(symbol), 64))
	params.Set("newClientOrderId", newClientOrderID())
	if hedging {
		params.Set("positionSide", string(posSide))
	} else {
		params.Set("reduceOnly", "true")
	}

	var resp OrderResponse
	if err := c.doSigned(http.MethodPost, "/fapi/v1/order", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetOpenOrders lists open orders, optionally filtered by symbol
func (c *Client) GetOpenOrders(symbol string) ([]Order, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	var orders []Order
	if err := c.doSigned(http.MethodGet, "/fapi/v1/openOrders", params, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CancelOrder cancels a single order by ID
func (c *Client) CancelOrder(symbol string, orderID int64) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))
	return c.doSigned(http.MethodDelete, "/fapi/v1/order", params, nil)
}

// UpdateStopLossOrder replaces the protective stop for a position. Only
// STOP_MARKET orders matching the symbol and position side are cancelled;
// take-profit orders are left in place.
func (c *Client) UpdateStopLossOrder(symbol string, posSide PositionSide, quantity, newStop float64, hedging bool) (int64, error) {
	orders, err := c.GetOpenOrders(symbol)
	if err != nil {
		return 0, err
	}

	for _, o := range orders {
		if o.Type != string(OrderTypeStopMarket) {
			continue
		}
		if hedging && o.PositionSide != string(posSide) {
			continue
		}
		if err := c.CancelOrder(symbol, o.OrderID); err != nil {
			c.log.Warn("failed to cancel stale stop order",
				"symbol", symbol, "order_id", o.OrderID, "error", err)
		}
	}

	closeSide := SideSell
	if posSide == PositionShort {
		closeSide = SideBuy
	}
	qtyStr := strconv.FormatFloat(RoundQuantity(symbol, quantity), 'f', QuantityPrecision(symbol), 64)

	return c.placeProtective(symbol, closeSide, posSide, OrderTypeStopMarket, newStop, qtyStr, hedging)
}
