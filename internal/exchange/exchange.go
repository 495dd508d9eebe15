// Package exchange
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/futures-order-bot/internal/order"
	"github.com/shopspring/decimal"
)

// Client is the interface for the futures exchange. SubmitOrder, Cancel and
// the reads all wait on external I/O; everything above this layer is a pure
// transformation.
type Client interface {
	Name() string
	SubmitOrder(ctx context.Context, o order.Validated) (order.Result, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) error
	OpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error)
	Positions(ctx context.Context, symbol string) ([]Position, error)
	Trades(ctx context.Context, symbol string, limit int) ([]Trade, error)
	MarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error)
}

// OpenOrder is a resting order as reported by GET /fapi/v1/openOrders.
type OpenOrder struct {
	OrderID     int64           `json:"orderId"`
	Symbol      string          `json:"symbol"`
	Side        string          `json:"side"`
	Type        string          `json:"type"`
	Price       decimal.Decimal `json:"price"`
	OrigQty     decimal.Decimal `json:"origQty"`
	ExecutedQty decimal.Decimal `json:"executedQty"`
	Status      string          `json:"status"`
	TimeInForce string          `json:"timeInForce"`
	UpdateTime  int64           `json:"updateTime"`
}

// Position is one leg of GET /fapi/v2/positionRisk. In one-way mode there
// is a single net position per symbol; a negative amount means short.
type Position struct {
	Symbol           string          `json:"symbol"`
	PositionAmt      decimal.Decimal `json:"positionAmt"`
	EntryPrice       decimal.Decimal `json:"entryPrice"`
	MarkPrice        decimal.Decimal `json:"markPrice"`
	UnrealizedProfit decimal.Decimal `json:"unRealizedProfit"`
	Leverage         decimal.Decimal `json:"leverage"`
}

// Trade is one fill from GET /fapi/v1/userTrades.
type Trade struct {
	ID         int64           `json:"id"`
	OrderID    int64           `json:"orderId"`
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"`
	Price      decimal.Decimal `json:"price"`
	Qty        decimal.Decimal `json:"qty"`
	QuoteQty   decimal.Decimal `json:"quoteQty"`
	Commission decimal.Decimal `json:"commission"`
	Time       int64           `json:"time"`
}

// TradeTime converts the fill's millisecond timestamp.
func (t Trade) TradeTime() time.Time {
	return time.UnixMilli(t.Time).UTC()
}

// Kline is one candle from GET /fapi/v1/klines. The exchange serializes a
// candle as a positional array mixing numbers and strings.
type Kline struct {
	OpenTime int64
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   decimal.Decimal
}

func (k *Kline) UnmarshalJSON(data []byte) error {
	var row []any
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}
	if len(row) < 6 {
		return fmt.Errorf("kline row has %d fields, want at least 6", len(row))
	}
	openTime, ok := row[0].(float64)
	if !ok {
		return fmt.Errorf("kline open time %v is not a number", row[0])
	}
	k.OpenTime = int64(openTime)

	for i, dst := range []*decimal.Decimal{&k.Open, &k.High, &k.Low, &k.Close, &k.Volume} {
		s, ok := row[i+1].(string)
		if !ok {
			return fmt.Errorf("kline field %d %v is not a string", i+1, row[i+1])
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("kline field %d: %w", i+1, err)
		}
		*dst = v
	}
	return nil
}
