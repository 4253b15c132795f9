package alpaca

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdvlabs/autopilot/broker"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(Config{
		Key:        "test-key",
		Secret:     "test-secret",
		TradingURL: server.URL + "/v2",
		DataURL:    server.URL + "/data/v2",
	})
	require.NoError(t, err)
	return c
}

func TestNewClientNormalizesTradingURL(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Key: "k", Secret: "s", TradingURL: "https://example.test/"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/v2", c.tradingURL)

	c, err = NewClient(Config{Key: "k", Secret: "s"})
	require.NoError(t, err)
	assert.Equal(t, PaperURL, c.tradingURL)
}

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Key: "k"})
	assert.Error(t, err)
}

func TestGetAccount(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/account", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "test-secret", r.Header.Get("APCA-API-SECRET-KEY"))
		json.NewEncoder(w).Encode(map[string]string{
			"equity":      "100250.75",
			"last_equity": "100000.00",
		})
	}))

	acct, err := c.GetAccount(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 100250.75, acct.Equity, 1e-9)
	assert.InDelta(t, 100000.00, acct.LastEquity, 1e-9)
}

func TestGetAccountUnauthorized(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.GetAccount(context.Background())
	assert.ErrorIs(t, err, broker.ErrUnauthorized)
}

func TestGetPositions(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/positions", r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]string{
			{"symbol": "QQQ", "qty": "2", "unrealized_plpc": "0.25"},
			{"symbol": "SPY", "qty": "1", "unrealized_plpc": "-0.03"},
		})
	}))

	positions, err := c.GetPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "QQQ", positions[0].Symbol)
	assert.InDelta(t, 0.25, positions[0].UnrealizedPLPct, 1e-9)
	assert.InDelta(t, -0.03, positions[1].UnrealizedPLPct, 1e-9)
}

func TestSubmitMarketOrder(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/orders", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "QQQ", body["symbol"])
		assert.Equal(t, "1", body["qty"])
		assert.Equal(t, "buy", body["side"])
		assert.Equal(t, "market", body["type"])
		assert.Equal(t, "day", body["time_in_force"])

		json.NewEncoder(w).Encode(map[string]string{
			"id": "ord-1", "symbol": "QQQ", "side": "buy", "qty": "1", "status": "accepted",
		})
	}))

	order, err := c.SubmitMarketOrder(context.Background(), broker.OrderRequest{
		Symbol: "QQQ",
		Side:   broker.Buy,
		Qty:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", order.ID)
	assert.Equal(t, "accepted", order.Status)
}

func TestSubmitMarketOrderValidation(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for invalid orders")
	}))

	_, err := c.SubmitMarketOrder(context.Background(), broker.OrderRequest{Side: broker.Buy, Qty: 1})
	assert.Error(t, err)

	_, err = c.SubmitMarketOrder(context.Background(), broker.OrderRequest{Symbol: "QQQ", Side: broker.Buy})
	assert.Error(t, err)

	_, err = c.SubmitMarketOrder(context.Background(), broker.OrderRequest{Symbol: "QQQ", Side: "hold", Qty: 1})
	assert.Error(t, err)
}

func TestSubmitMarketOrderVenueRejected(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"insufficient buying power"}`))
	}))

	_, err := c.SubmitMarketOrder(context.Background(), broker.OrderRequest{
		Symbol: "QQQ", Side: broker.Buy, Qty: 1,
	})

	var venueErr *broker.VenueError
	require.ErrorAs(t, err, &venueErr)
	assert.Equal(t, http.StatusUnprocessableEntity, venueErr.Status)
	assert.Contains(t, venueErr.Body, "insufficient buying power")
}

func TestCloseSymbolFallsBackToSellOrder(t *testing.T) {
	t.Parallel()

	var orderedQty string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete && r.URL.Path == "/v2/positions/QQQ":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodGet && r.URL.Path == "/v2/positions":
			json.NewEncoder(w).Encode([]map[string]string{
				{"symbol": "QQQ", "qty": "3", "unrealized_plpc": "0.01"},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/v2/orders":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			orderedQty = body["qty"]
			assert.Equal(t, "sell", body["side"])
			json.NewEncoder(w).Encode(map[string]string{"id": "ord-2", "status": "accepted"})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	require.NoError(t, c.CloseSymbol(context.Background(), "qqq"))
	assert.Equal(t, "3", orderedQty)
}

func TestCloseSymbolNotFoundAnywhere(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodGet && r.URL.Path == "/v2/positions":
			json.NewEncoder(w).Encode([]map[string]string{})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	err := c.CloseSymbol(context.Background(), "QQQ")
	assert.ErrorIs(t, err, broker.ErrNotFound)
}

func TestGetQuote(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/v2/stocks/QQQ/trades/latest", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"trade": map[string]any{"p": 445.50, "t": "2025-01-15T15:00:00.123456Z"},
		})
	}))

	q, err := c.GetQuote(context.Background(), "QQQ")
	require.NoError(t, err)
	assert.InDelta(t, 445.50, q.Price, 1e-9)
	assert.Equal(t, "QQQ", q.Symbol)
	assert.False(t, q.Time.IsZero())
}

func TestDailyChangePct(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/v2/stocks/NVDA/bars", r.URL.Path)
		assert.Equal(t, "1Day", r.URL.Query().Get("timeframe"))
		json.NewEncoder(w).Encode(map[string]any{
			"bars": []map[string]any{{"c": 100.0}, {"c": 101.5}},
		})
	}))

	change, err := c.DailyChangePct(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, change, 1e-9)
}

func TestDailyChangePctNeedsTwoBars(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"bars": []map[string]any{{"c": 100.0}}})
	}))

	_, err := c.DailyChangePct(context.Background(), "NVDA")
	assert.Error(t, err)
}
