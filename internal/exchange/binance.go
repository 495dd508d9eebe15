package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/amirphl/futures-order-bot/internal/order"
	"github.com/amirphl/futures-order-bot/internal/utils"
	"github.com/shopspring/decimal"
)

// Official USDT-M futures testnet endpoint.
const TestnetBaseURL = "https://demo-fapi.binance.com"

const defaultRecvWindow = 5000

// BinanceFutures talks to the Binance USDT-M futures REST API. Requests are
// HMAC-SHA256 signed over the encoded query string. The exchange's response
// is authoritative: a non-2xx status becomes an *order.ExchangeError with
// the exchange's code and message verbatim, a transport failure becomes
// order.ErrNetwork and is retried exactly once with the identical signed
// payload. A duplicate acceptance or rejection caused by the retry is
// surfaced as-is.
type BinanceFutures struct {
	apiKey     string
	secret     []byte
	baseURL    string
	httpClient *http.Client
	recvWindow int64
}

func NewBinanceFutures(apiKey, apiSecret, baseURL string) (*BinanceFutures, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New("exchange: API key and secret are required, set BINANCE_API_KEY and BINANCE_API_SECRET")
	}
	if baseURL == "" {
		baseURL = TestnetBaseURL
	}
	return &BinanceFutures{
		apiKey:     apiKey,
		secret:     []byte(apiSecret),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		recvWindow: defaultRecvWindow,
	}, nil
}

func (b *BinanceFutures) Name() string { return "binance-futures" }

func (b *BinanceFutures) SubmitOrder(ctx context.Context, o order.Validated) (order.Result, error) {
	q := url.Values{}
	q.Set("symbol", o.Symbol)
	q.Set("side", string(o.Side))
	q.Set("type", string(o.Type))
	q.Set("quantity", o.Quantity.String())
	if o.Type == order.TypeLimit {
		q.Set("price", o.Price.String())
		q.Set("timeInForce", string(o.TimeInForce))
	}
	q.Set("newOrderRespType", "RESULT")

	var resp struct {
		OrderID       int64           `json:"orderId"`
		ClientOrderID string          `json:"clientOrderId"`
		Status        string          `json:"status"`
		ExecutedQty   decimal.Decimal `json:"executedQty"`
		AvgPrice      decimal.Decimal `json:"avgPrice"`
		CumQuote      decimal.Decimal `json:"cumQuote"`
	}
	raw, err := b.doSigned(ctx, http.MethodPost, "/fapi/v1/order", q, &resp)
	if err != nil {
		return order.Result{}, err
	}
	return order.Result{
		OrderID:       resp.OrderID,
		ClientOrderID: resp.ClientOrderID,
		Status:        resp.Status,
		ExecutedQty:   resp.ExecutedQty,
		AvgPrice:      resp.AvgPrice,
		CumQuote:      resp.CumQuote,
		Raw:           raw,
	}, nil
}

func (b *BinanceFutures) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("orderId", strconv.FormatInt(orderID, 10))
	_, err := b.doSigned(ctx, http.MethodDelete, "/fapi/v1/order", q, nil)
	return err
}

func (b *BinanceFutures) OpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error) {
	q := url.Values{}
	if symbol != "" {
		q.Set("symbol", symbol)
	}
	var orders []OpenOrder
	if _, err := b.doSigned(ctx, http.MethodGet, "/fapi/v1/openOrders", q, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (b *BinanceFutures) Positions(ctx context.Context, symbol string) ([]Position, error) {
	q := url.Values{}
	if symbol != "" {
		q.Set("symbol", symbol)
	}
	var positions []Position
	if _, err := b.doSigned(ctx, http.MethodGet, "/fapi/v2/positionRisk", q, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

func (b *BinanceFutures) Trades(ctx context.Context, symbol string, limit int) ([]Trade, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var trades []Trade
	if _, err := b.doSigned(ctx, http.MethodGet, "/fapi/v1/userTrades", q, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// MarkPrice hits the public ticker endpoint, unsigned and without the
// transport retry: the normalizer owns the retry-once policy for price
// fetches.
func (b *BinanceFutures) MarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	u := b.baseURL + "/fapi/v1/ticker/price?symbol=" + url.QueryEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	body, err := b.execute(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	var resp struct {
		Symbol string          `json:"symbol"`
		Price  decimal.Decimal `json:"price"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decoding ticker price: %w", err)
	}
	return resp.Price, nil
}

// Klines hits the public candle endpoint, unsigned.
func (b *BinanceFutures) Klines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/fapi/v1/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	body, err := b.execute(req)
	if err != nil {
		return nil, err
	}
	var klines []Kline
	if err := json.Unmarshal(body, &klines); err != nil {
		return nil, fmt.Errorf("decoding klines: %w", err)
	}
	return klines, nil
}

// doSigned signs the query once and issues the request, retrying exactly
// once on a transport failure with the identical payload. out may be nil.
func (b *BinanceFutures) doSigned(ctx context.Context, method, path string, q url.Values, out any) (json.RawMessage, error) {
	q.Set("recvWindow", strconv.FormatInt(b.recvWindow, 10))
	q.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	payload := q.Encode()
	mac := hmac.New(sha256.New, b.secret)
	mac.Write([]byte(payload))
	signed := payload + "&signature=" + hex.EncodeToString(mac.Sum(nil))
	u := b.baseURL + path + "?" + signed

	body, err := b.executeSignedOnce(ctx, method, u)
	if err != nil && errors.Is(err, order.ErrNetwork) {
		utils.GetLogger().Printf("Exchange | %s %s %s failed (%v), retrying once", b.Name(), method, path, err)
		body, err = b.executeSignedOnce(ctx, method, u)
	}
	if err != nil {
		return nil, err
	}
	if out != nil {
		if uerr := json.Unmarshal(body, out); uerr != nil {
			return nil, fmt.Errorf("decoding %s response: %w", path, uerr)
		}
	}
	return body, nil
}

func (b *BinanceFutures) executeSignedOnce(ctx context.Context, method, u string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", b.apiKey)
	return b.execute(req)
}

func (b *BinanceFutures) execute(req *http.Request) (json.RawMessage, error) {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", order.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", order.ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, exchangeError(resp.StatusCode, body)
	}
	return body, nil
}

// exchangeError keeps the exchange's own code and message intact.
func exchangeError(status int, body []byte) *order.ExchangeError {
	var payload struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	e := &order.ExchangeError{HTTPStatus: status, Raw: body}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Msg != "" {
		e.Code = payload.Code
		e.Message = payload.Msg
	} else {
		e.Message = string(body)
	}
	return e
}
