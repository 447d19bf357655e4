// Package gateway is the client side of the broker gateway bridge, a
// small REST service in front of the trading venue. Every call is a
// blocking request; an error from here is a GatewayFailure and aborts
// the calling job.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/calebmsmith/vrpdesk/internal/config"
	platformhttp "github.com/calebmsmith/vrpdesk/internal/platform/http"
	"github.com/calebmsmith/vrpdesk/models"
)

// Client talks to the broker gateway bridge.
type Client struct {
	baseURL    string
	httpClient *platformhttp.Client
	logger     zerolog.Logger
}

// NewClient creates a gateway client from configuration.
func NewClient(cfg config.GatewayConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: platformhttp.NewClient(platformhttp.ClientOptions{
			Timeout:        cfg.RequestTimeout,
			RequestsPerSec: cfg.RequestsPerSec,
		}),
		logger: log.With().Str("component", "gateway").Logger(),
	}
}

// AccountSummary returns the current account metrics.
func (c *Client) AccountSummary(ctx context.Context) (models.AccountSummary, error) {
	var summary models.AccountSummary
	if err := c.getJSON(ctx, "/v1/account/summary", nil, &summary); err != nil {
		return models.AccountSummary{}, fmt.Errorf("fetching account summary: %w", err)
	}
	return summary, nil
}

// Positions returns all open positions with greeks where applicable.
func (c *Client) Positions(ctx context.Context) ([]models.Position, error) {
	var positions []models.Position
	if err := c.getJSON(ctx, "/v1/positions", nil, &positions); err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}
	c.logger.Debug().Int("count", len(positions)).Msg("Fetched positions")
	return positions, nil
}

// SpotPrice returns the last traded or closing price for a symbol.
func (c *Client) SpotPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{"symbol": {symbol}}

	var payload struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price"`
	}
	if err := c.getJSON(ctx, "/v1/quote/spot", params, &payload); err != nil {
		return 0, fmt.Errorf("fetching spot for %s: %w", symbol, err)
	}
	if payload.Price <= 0 {
		return 0, fmt.Errorf("gateway returned non-positive spot %g for %s", payload.Price, symbol)
	}
	return payload.Price, nil
}

// OptionQuote returns the current bid/ask for a single option contract.
func (c *Client) OptionQuote(ctx context.Context, symbol string, expiry time.Time, strike float64, right models.OptionRight) (models.OptionQuote, error) {
	params := url.Values{
		"symbol": {symbol},
		"expiry": {expiry.Format("20060102")},
		"strike": {strconv.FormatFloat(strike, 'f', -1, 64)},
		"right":  {string(right)},
	}

	var q models.OptionQuote
	if err := c.getJSON(ctx, "/v1/quote/option", params, &q); err != nil {
		return models.OptionQuote{}, fmt.Errorf("fetching option quote %s %s %g%s: %w",
			symbol, expiry.Format("20060102"), strike, right, err)
	}
	return q, nil
}

// PlaceBracket submits the three linked legs of an order plan and returns
// the venue order ids, parent first.
func (c *Client) PlaceBracket(ctx context.Context, plan models.OrderPlan) ([]int64, error) {
	legs := plan.Legs()
	body := struct {
		Symbol     string            `json:"symbol"`
		Expiry     string            `json:"expiry"`
		CallStrike float64           `json:"call_strike"`
		PutStrike  float64           `json:"put_strike"`
		Legs       []models.OrderLeg `json:"legs"`
	}{
		Symbol:     plan.Symbol,
		Expiry:     plan.Expiry.Format("20060102"),
		CallStrike: plan.CallStrike,
		PutStrike:  plan.PutStrike,
		Legs:       legs[:],
	}

	var resp struct {
		OrderIDs []int64 `json:"order_ids"`
	}
	if err := c.postJSON(ctx, "/v1/orders/bracket", body, &resp); err != nil {
		return nil, fmt.Errorf("placing bracket: %w", err)
	}
	if len(resp.OrderIDs) != len(legs) {
		return nil, fmt.Errorf("gateway acknowledged %d of %d bracket legs", len(resp.OrderIDs), len(legs))
	}

	c.logger.Info().
		Ints64("order_ids", resp.OrderIDs).
		Int("contracts", plan.Contracts).
		Float64("credit", plan.Credit).
		Msg("Bracket submitted")
	return resp.OrderIDs, nil
}

// PlaceMarketOrder submits a signed-quantity market order (positive buys,
// negative sells) and returns the venue order id.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, quantity int) (int64, error) {
	action := models.ActionBuy
	if quantity < 0 {
		action = models.ActionSell
	}
	body := struct {
		Symbol   string             `json:"symbol"`
		Action   models.OrderAction `json:"action"`
		Quantity int                `json:"quantity"`
	}{Symbol: symbol, Action: action, Quantity: abs(quantity)}

	var resp struct {
		OrderID int64 `json:"order_id"`
	}
	if err := c.postJSON(ctx, "/v1/orders/market", body, &resp); err != nil {
		return 0, fmt.Errorf("placing market order %s %+d: %w", symbol, quantity, err)
	}

	c.logger.Info().
		Int64("order_id", resp.OrderID).
		Str("symbol", symbol).
		Int("quantity", quantity).
		Msg("Market order submitted")
	return resp.OrderID, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	c.logger.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("Gateway request")

	resp, err := c.httpClient.DoRequest(req.Context(), req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Error().Err(err).Str("response", string(data)).Msg("Error parsing gateway response")
		return fmt.Errorf("parsing gateway response: %w", err)
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
