package intent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amirphl/futures-order-bot/internal/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stub is a canned extractor for chain tests.
type stub struct {
	symbol string
}

func (s stub) Extract(context.Context, string) (order.Fields, error) {
	return order.Fields{Symbol: s.symbol, Side: "BUY", Type: "MARKET", Notional: "100"}, nil
}

func groqServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req["model"])

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGroqExtractor(t *testing.T) {
	ctx := context.Background()

	t.Run("parses a plain JSON reply", func(t *testing.T) {
		srv := groqServer(t, `{"symbol":"BTCUSDT","side":"BUY","type":"LIMIT","quantity":null,"notional":"100","price":"62000"}`)
		defer srv.Close()

		g := NewGroqExtractor("test-key", "", srv.URL+"/openai/v1")
		f, err := g.Extract(ctx, "limit buy btc at 62000 for 100 usdt please")
		require.NoError(t, err)
		assert.Equal(t, "BTCUSDT", f.Symbol)
		assert.Equal(t, "100", f.Notional)
		assert.Equal(t, "62000", f.Price)
		assert.Empty(t, f.Quantity)
	})

	t.Run("parses a fenced JSON reply", func(t *testing.T) {
		srv := groqServer(t, "Sure! Here you go:\n```json\n{\"symbol\":\"ETHUSDT\",\"side\":\"SELL\",\"type\":\"MARKET\",\"quantity\":\"0.05\"}\n```")
		defer srv.Close()

		g := NewGroqExtractor("test-key", "", srv.URL+"/openai/v1")
		f, err := g.Extract(ctx, "dump a bit of my eth")
		require.NoError(t, err)
		assert.Equal(t, "ETHUSDT", f.Symbol)
		assert.Equal(t, "SELL", f.Side)
		assert.Equal(t, "0.05", f.Quantity)
	})

	t.Run("numbers in the reply are rendered as field strings", func(t *testing.T) {
		srv := groqServer(t, `{"symbol":"BTCUSDT","side":"BUY","type":"LIMIT","notional":100,"price":62000}`)
		defer srv.Close()

		g := NewGroqExtractor("test-key", "", srv.URL+"/openai/v1")
		f, err := g.Extract(ctx, "buy btc")
		require.NoError(t, err)
		assert.Equal(t, "100", f.Notional)
		assert.Equal(t, "62000", f.Price)
	})

	t.Run("unrecognized flag from the model", func(t *testing.T) {
		srv := groqServer(t, `{"unrecognized":true}`)
		defer srv.Close()

		g := NewGroqExtractor("test-key", "", srv.URL+"/openai/v1")
		_, err := g.Extract(ctx, "how was your day?")
		assert.ErrorIs(t, err, ErrUnrecognized)
	})

	t.Run("no JSON in the reply", func(t *testing.T) {
		srv := groqServer(t, "I am not able to help with that.")
		defer srv.Close()

		g := NewGroqExtractor("test-key", "", srv.URL+"/openai/v1")
		_, err := g.Extract(ctx, "hello")
		assert.ErrorIs(t, err, ErrUnrecognized)
	})

	t.Run("missing API key behaves as unrecognized", func(t *testing.T) {
		g := NewGroqExtractor("", "", "")
		_, err := g.Extract(ctx, "buy btc for 100 usdt")
		assert.ErrorIs(t, err, ErrUnrecognized)
	})
}

func TestParseModelJSON(t *testing.T) {
	assert.NotNil(t, parseModelJSON(`{"a":1}`))
	assert.NotNil(t, parseModelJSON("```json\n{\"a\":1}\n```"))
	assert.NotNil(t, parseModelJSON("leading text {\"a\":1} trailing"))
	assert.Nil(t, parseModelJSON("no json here"))
}
