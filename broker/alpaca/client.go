// Package alpaca is the Alpaca Markets implementation of broker.Broker and
// broker.QuoteSource. It talks to the trading API (paper or live) and the
// market-data API over plain REST.
package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bdvlabs/autopilot/broker"
)

const (
	// PaperURL is Alpaca's paper-trading environment.
	PaperURL = "https://paper-api.alpaca.markets/v2"
	// LiveURL is Alpaca's live-trading environment.
	LiveURL = "https://api.alpaca.markets/v2"
	// DataURL is Alpaca's market-data API.
	DataURL = "https://data.alpaca.markets/v2"
)

// Config holds credentials and endpoints for a client.
type Config struct {
	Key        string
	Secret     string
	TradingURL string // defaults to PaperURL
	DataURL    string // defaults to DataURL
	Timeout    time.Duration
}

// Client is an Alpaca REST client safe for concurrent use.
type Client struct {
	tradingURL string
	dataURL    string
	key        string
	secret     string
	httpClient *http.Client
}

// NewClient builds a client from explicit configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Key == "" || cfg.Secret == "" {
		return nil, fmt.Errorf("alpaca: key and secret are required")
	}

	trading := cfg.TradingURL
	if trading == "" {
		trading = PaperURL
	}
	trading = strings.TrimRight(trading, "/")
	// Alpaca routes everything under /v2; tolerate configs that omit it.
	if !strings.HasSuffix(trading, "/v2") {
		trading += "/v2"
	}

	data := cfg.DataURL
	if data == "" {
		data = DataURL
	}
	data = strings.TrimRight(data, "/")

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		tradingURL: trading,
		dataURL:    data,
		key:        cfg.Key,
		secret:     cfg.Secret,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// NewClientFromEnv builds a client from the standard APCA_* environment
// variables.
func NewClientFromEnv() (*Client, error) {
	return NewClient(Config{
		Key:        os.Getenv("APCA_API_KEY_ID"),
		Secret:     os.Getenv("APCA_API_SECRET_KEY"),
		TradingURL: os.Getenv("APCA_TRADING_URL"),
		DataURL:    os.Getenv("APCA_DATA_URL"),
	})
}

// do executes one authenticated request and decodes a 2xx JSON body into out
// (out may be nil). Non-2xx statuses map onto the broker error taxonomy.
func (c *Client) do(ctx context.Context, op, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("alpaca: %s: marshal body: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("alpaca: %s: create request: %w", op, err)
	}
	req.Header.Set("APCA-API-KEY-ID", c.key)
	req.Header.Set("APCA-API-SECRET-KEY", c.secret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &broker.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, broker.ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, broker.ErrNotFound)
	case resp.StatusCode >= 400:
		return &broker.VenueError{Op: op, Status: resp.StatusCode, Body: string(raw)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("alpaca: %s: decode response: %w", op, err)
		}
	}
	return nil
}

type apiAccount struct {
	Equity     string `json:"equity"`
	LastEquity string `json:"last_equity"`
}

// GetAccount fetches the account snapshot. Alpaca returns money amounts as
// strings.
func (c *Client) GetAccount(ctx context.Context) (broker.Account, error) {
	var a apiAccount
	if err := c.do(ctx, "get account", http.MethodGet, c.tradingURL+"/account", nil, &a); err != nil {
		return broker.Account{}, err
	}

	equity, err := strconv.ParseFloat(a.Equity, 64)
	if err != nil {
		return broker.Account{}, fmt.Errorf("alpaca: parse equity %q: %w", a.Equity, err)
	}
	lastEquity, err := strconv.ParseFloat(a.LastEquity, 64)
	if err != nil {
		return broker.Account{}, fmt.Errorf("alpaca: parse last_equity %q: %w", a.LastEquity, err)
	}

	return broker.Account{Equity: equity, LastEquity: lastEquity}, nil
}

type apiPosition struct {
	Symbol         string `json:"symbol"`
	Qty            string `json:"qty"`
	UnrealizedPLPC string `json:"unrealized_plpc"`
}

// GetPositions lists all open positions.
func (c *Client) GetPositions(ctx context.Context) ([]broker.Position, error) {
	var raw []apiPosition
	if err := c.do(ctx, "get positions", http.MethodGet, c.tradingURL+"/positions", nil, &raw); err != nil {
		return nil, err
	}

	out := make([]broker.Position, 0, len(raw))
	for _, p := range raw {
		qty, err := strconv.ParseFloat(p.Qty, 64)
		if err != nil {
			return nil, fmt.Errorf("alpaca: position %s: parse qty %q: %w", p.Symbol, p.Qty, err)
		}
		plpc, err := strconv.ParseFloat(p.UnrealizedPLPC, 64)
		if err != nil {
			return nil, fmt.Errorf("alpaca: position %s: parse unrealized_plpc %q: %w", p.Symbol, p.UnrealizedPLPC, err)
		}
		out = append(out, broker.Position{Symbol: p.Symbol, Qty: qty, UnrealizedPLPct: plpc})
	}
	return out, nil
}

// CloseAll liquidates every open position.
func (c *Client) CloseAll(ctx context.Context) error {
	return c.do(ctx, "close all positions", http.MethodDelete, c.tradingURL+"/positions", nil, nil)
}

// CloseSymbol liquidates the position in one symbol. If the venue answers 404
// to the close endpoint while still listing the position, it falls back to an
// explicit market sell of the listed quantity, which matches closing by hand
// in the web console.
func (c *Client) CloseSymbol(ctx context.Context, symbol string) error {
	symbol = strings.ToUpper(symbol)

	err := c.do(ctx, "close position "+symbol, http.MethodDelete,
		c.tradingURL+"/positions/"+symbol, nil, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, broker.ErrNotFound) {
		return err
	}

	positions, perr := c.GetPositions(ctx)
	if perr != nil {
		return fmt.Errorf("close fallback for %s: %w", symbol, perr)
	}
	for _, p := range positions {
		if p.Symbol != symbol {
			continue
		}
		_, oerr := c.SubmitMarketOrder(ctx, broker.OrderRequest{
			Symbol: symbol,
			Side:   broker.Sell,
			Qty:    int(p.Qty),
		})
		if oerr != nil {
			return fmt.Errorf("close fallback for %s: %w", symbol, oerr)
		}
		return nil
	}
	return fmt.Errorf("close %s: %w", symbol, broker.ErrNotFound)
}

type apiOrder struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Side   string `json:"side"`
	Qty    string `json:"qty"`
	Status string `json:"status"`
}

// SubmitMarketOrder places a market/day order. Alpaca infers stock vs option
// from the symbol itself.
func (c *Client) SubmitMarketOrder(ctx context.Context, req broker.OrderRequest) (broker.Order, error) {
	if req.Symbol == "" {
		return broker.Order{}, fmt.Errorf("alpaca: order symbol is required")
	}
	if req.Qty <= 0 {
		return broker.Order{}, fmt.Errorf("alpaca: order qty must be positive")
	}
	if _, ok := broker.ParseSide(string(req.Side)); !ok {
		return broker.Order{}, fmt.Errorf("alpaca: unknown order side %q", req.Side)
	}

	body := map[string]string{
		"symbol":        req.Symbol,
		"qty":           strconv.Itoa(req.Qty),
		"side":          string(req.Side),
		"type":          "market",
		"time_in_force": "day",
	}

	var o apiOrder
	if err := c.do(ctx, "submit order", http.MethodPost, c.tradingURL+"/orders", body, &o); err != nil {
		return broker.Order{}, err
	}

	qty, _ := strconv.Atoi(o.Qty)
	return broker.Order{
		ID:     o.ID,
		Symbol: o.Symbol,
		Side:   broker.Side(o.Side),
		Qty:    qty,
		Status: o.Status,
	}, nil
}

type apiLatestTrade struct {
	Trade struct {
		Price float64 `json:"p"`
		Time  string  `json:"t"`
	} `json:"trade"`
}

// GetQuote returns the latest traded price for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (broker.Quote, error) {
	symbol = strings.ToUpper(symbol)

	var lt apiLatestTrade
	url := fmt.Sprintf("%s/stocks/%s/trades/latest", c.dataURL, symbol)
	if err := c.do(ctx, "get quote "+symbol, http.MethodGet, url, nil, &lt); err != nil {
		return broker.Quote{}, err
	}

	ts, err := time.Parse(time.RFC3339Nano, lt.Trade.Time)
	if err != nil {
		ts = time.Time{}
	}
	return broker.Quote{Symbol: symbol, Price: lt.Trade.Price, Time: ts}, nil
}

type apiBars struct {
	Bars []struct {
		Close float64 `json:"c"`
	} `json:"bars"`
}

// DailyChangePct returns the percent change between the last two daily
// closes, the input the recommender scores.
func (c *Client) DailyChangePct(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(symbol)

	var b apiBars
	url := fmt.Sprintf("%s/stocks/%s/bars?timeframe=1Day&limit=2", c.dataURL, symbol)
	if err := c.do(ctx, "get daily bars "+symbol, http.MethodGet, url, nil, &b); err != nil {
		return 0, err
	}
	if len(b.Bars) < 2 {
		return 0, fmt.Errorf("alpaca: %s: need 2 daily bars, got %d", symbol, len(b.Bars))
	}

	prev := b.Bars[len(b.Bars)-2].Close
	last := b.Bars[len(b.Bars)-1].Close
	if prev == 0 {
		return 0, fmt.Errorf("alpaca: %s: zero previous close", symbol)
	}
	return (last - prev) / prev * 100, nil
}
