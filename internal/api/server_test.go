package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/futures-order-bot/internal/confirm"
	"github.com/amirphl/futures-order-bot/internal/exchange"
	"github.com/amirphl/futures-order-bot/internal/intent"
	"github.com/amirphl/futures-order-bot/internal/order"
	"github.com/amirphl/futures-order-bot/internal/session"
	"github.com/amirphl/futures-order-bot/internal/symbols"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// adviceStub returns a fixed decision for runBot tests.
type adviceStub struct {
	action string
	reason string
	fields order.Fields
}

func (a adviceStub) Advise(context.Context, intent.MarketSnapshot) (intent.Suggestion, error) {
	return intent.Suggestion{Action: a.action, Reason: a.reason, Fields: a.fields}, nil
}

func testServer(skipConfirm bool) (*gin.Engine, *exchange.MockExchange) {
	gin.SetMode(gin.TestMode)

	mock := exchange.NewMockExchange()
	mock.SetPrice("BTCUSDT", decimal.RequireFromString("62000"))
	mock.SetKlines([]exchange.Kline{
		{OpenTime: 1700000000000, Close: decimal.RequireFromString("61800")},
		{OpenTime: 1700000900000, Close: decimal.RequireFromString("62000")},
	})

	reg := symbols.NewRegistry(symbols.Rule{
		Symbol:           "BTCUSDT",
		QuantityStep:     decimal.RequireFromString("0.001"),
		QuantityDecimals: 3,
		MinNotional:      decimal.RequireFromString("50"),
	})
	sessions := session.NewManager(session.Deps{
		Exchange:  mock,
		Registry:  reg,
		Gate:      confirm.NewGate(time.Minute),
		Extractor: intent.RuleParser{},
		Advisor: adviceStub{
			action: "BUY",
			reason: "higher lows",
			fields: order.Fields{Symbol: "BTCUSDT", Side: "BUY", Type: "MARKET", Quantity: "0.002"},
		},
	})
	return NewServer(sessions, reg, mock, skipConfirm).Router(), mock
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return w, out
}

func TestHealth(t *testing.T) {
	r, _ := testServer(false)
	w, out := doJSON(t, r, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "mock", out["exchange"])
}

func TestOrderEndpoint(t *testing.T) {
	t.Run("order parks pending and confirm submits it", func(t *testing.T) {
		r, mock := testServer(false)

		w, out := doJSON(t, r, http.MethodPost, "/api/order", map[string]any{
			"symbol": "BTCUSDT", "side": "BUY", "type": "LIMIT",
			"price": "62000", "notional": "100",
		})
		require.Equal(t, http.StatusOK, w.Code, "body: %v", out)

		pending, ok := out["pending"].(map[string]any)
		require.True(t, ok, "expected a pending payload, got %v", out)
		assert.Equal(t, "BTCUSDT", pending["symbol"])
		assert.Equal(t, "0.001", pending["quantity"])
		assert.Empty(t, mock.Submitted)

		w, out = doJSON(t, r, http.MethodPost, "/api/confirm", map[string]any{
			"id": pending["id"],
		})
		require.Equal(t, http.StatusOK, w.Code, "body: %v", out)
		result, ok := out["result"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "NEW", result["status"])
		require.Len(t, mock.Submitted, 1)
	})

	t.Run("skip-confirm submits directly", func(t *testing.T) {
		r, mock := testServer(true)

		w, out := doJSON(t, r, http.MethodPost, "/api/order", map[string]any{
			"symbol": "BTCUSDT", "side": "SELL", "type": "MARKET", "quantity": "0.002",
		})
		require.Equal(t, http.StatusOK, w.Code, "body: %v", out)
		require.Len(t, mock.Submitted, 1)
		result, ok := out["result"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "FILLED", result["status"])
	})

	t.Run("validation failures are the caller's fault", func(t *testing.T) {
		r, _ := testServer(false)

		w, out := doJSON(t, r, http.MethodPost, "/api/order", map[string]any{
			"symbol": "SHIBUSDT", "side": "BUY", "type": "LIMIT", "price": "1", "quantity": "100",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, out["error"], "symbol")
	})

	t.Run("missing required fields are rejected by binding", func(t *testing.T) {
		r, _ := testServer(false)

		w, _ := doJSON(t, r, http.MethodPost, "/api/order", map[string]any{
			"symbol": "BTCUSDT",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestChatEndpoint(t *testing.T) {
	t.Run("order message yields a pending reply", func(t *testing.T) {
		r, _ := testServer(false)

		w, out := doJSON(t, r, http.MethodPost, "/api/chat", map[string]any{
			"message": "limit buy btc at 62000 for 100 usdt",
		})
		require.Equal(t, http.StatusOK, w.Code, "body: %v", out)
		_, ok := out["pending"].(map[string]any)
		assert.True(t, ok)
	})

	t.Run("unrecognized chatter gets a friendly reply", func(t *testing.T) {
		r, _ := testServer(false)

		w, out := doJSON(t, r, http.MethodPost, "/api/chat", map[string]any{
			"message": "how is the weather?",
		})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, out["reply"], "couldn't read an order")
		assert.Nil(t, out["pending"])
	})

	t.Run("sessions keep pending orders separate", func(t *testing.T) {
		r, mock := testServer(false)

		_, out := doJSON(t, r, http.MethodPost, "/api/chat", map[string]any{
			"session": "alice", "message": "limit buy btc at 62000 for 100 usdt",
		})
		pending := out["pending"].(map[string]any)

		w, _ := doJSON(t, r, http.MethodPost, "/api/confirm", map[string]any{
			"session": "bob", "id": pending["id"],
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, mock.Submitted)
	})
}

func TestCancelEndpoint(t *testing.T) {
	r, mock := testServer(false)

	_, out := doJSON(t, r, http.MethodPost, "/api/chat", map[string]any{
		"message": "limit buy btc at 62000 for 100 usdt",
	})
	pending := out["pending"].(map[string]any)

	w, _ := doJSON(t, r, http.MethodPost, "/api/cancel", map[string]any{
		"id": pending["id"],
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/confirm", map[string]any{
		"id": pending["id"],
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mock.Submitted)
}

func TestReadEndpoints(t *testing.T) {
	r, mock := testServer(false)
	mock.SetPositions([]exchange.Position{
		{Symbol: "BTCUSDT", PositionAmt: decimal.RequireFromString("0.005")},
	})
	mock.SetOpenOrders([]exchange.OpenOrder{
		{OrderID: 7, Symbol: "BTCUSDT", Side: "BUY", Type: "LIMIT", Status: "NEW"},
	})

	w, out := doJSON(t, r, http.MethodGet, "/api/positions", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["positions"], 1)

	w, out = doJSON(t, r, http.MethodGet, "/api/openOrders", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["orders"], 1)

	w, out = doJSON(t, r, http.MethodGet, "/api/trades?symbol=BTCUSDT", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, out["trades"])
}

func TestSymbolsEndpoint(t *testing.T) {
	r, _ := testServer(false)

	w, out := doJSON(t, r, http.MethodGet, "/api/symbols", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	listed, ok := out["symbols"].([]any)
	require.True(t, ok, "body: %v", out)
	require.Len(t, listed, 1)
	assert.Equal(t, "BTCUSDT", listed[0])
}

func TestRunBotEndpoint(t *testing.T) {
	t.Run("a buy decision parks a pending order", func(t *testing.T) {
		r, mock := testServer(false)

		w, out := doJSON(t, r, http.MethodPost, "/api/runBot", map[string]any{
			"symbol": "BTCUSDT",
		})
		require.Equal(t, http.StatusOK, w.Code, "body: %v", out)
		assert.Contains(t, out["reply"], "higher lows")

		pending, ok := out["pending"].(map[string]any)
		require.True(t, ok, "expected a pending payload, got %v", out)
		assert.Equal(t, "BTCUSDT", pending["symbol"])
		assert.Empty(t, mock.Submitted)
	})

	t.Run("symbol is required", func(t *testing.T) {
		r, _ := testServer(false)

		w, _ := doJSON(t, r, http.MethodPost, "/api/runBot", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCancelOrderEndpoint(t *testing.T) {
	t.Run("cancels an exchange order by id", func(t *testing.T) {
		r, mock := testServer(false)

		w, out := doJSON(t, r, http.MethodPost, "/api/cancelOrder", map[string]any{
			"symbol": "BTCUSDT", "order_id": 42,
		})
		require.Equal(t, http.StatusOK, w.Code, "body: %v", out)
		assert.Equal(t, float64(42), out["cancelled"])
		require.Len(t, mock.Cancelled, 1)
		assert.Equal(t, int64(42), mock.Cancelled[0])
	})

	t.Run("order id is required", func(t *testing.T) {
		r, mock := testServer(false)

		w, _ := doJSON(t, r, http.MethodPost, "/api/cancelOrder", map[string]any{
			"symbol": "BTCUSDT",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, mock.Cancelled)
	})
}
