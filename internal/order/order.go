// Package order
package order

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type Type string

const (
	TypeMarket Type = "MARKET"
	TypeLimit  Type = "LIMIT"
)

type TimeInForce string

const (
	TIFGoodTilCancelled  TimeInForce = "GTC"
	TIFImmediateOrCancel TimeInForce = "IOC"
	TIFFillOrKill        TimeInForce = "FOK"
)

// Fields is the raw, untyped input to the normalizer: either CLI/API flag
// values or the intent extractor's structured output. Empty string means
// the field was not supplied.
type Fields struct {
	Symbol      string
	Side        string
	Type        string
	Quantity    string
	Price       string
	Notional    string
	TimeInForce string
}

// Draft is a canonical order before validation. A zero decimal means the
// field is absent. Exactly one of Quantity and Notional is set after
// normalization; Resolve turns a Notional into a Quantity. RefPrice is the
// price used for notional math: the limit price for LIMIT orders, the
// fetched mark price for MARKET orders.
type Draft struct {
	Symbol      string
	Side        Side
	Type        Type
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	Notional    decimal.Decimal
	TimeInForce TimeInForce
	RefPrice    decimal.Decimal
}

// Validated is a draft that passed every exchange constraint. It is only
// constructed by Validate.
type Validated struct {
	Symbol      string
	Side        Side
	Type        Type
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	TimeInForce TimeInForce
	RefPrice    decimal.Decimal
}

// Notional returns quantity x reference price.
func (v Validated) Notional() decimal.Decimal {
	return v.Quantity.Mul(v.RefPrice)
}

func (v Validated) String() string {
	if v.Type == TypeLimit {
		return fmt.Sprintf("%s %s %s %s @ %s", v.Side, v.Quantity, v.Symbol, v.Type, v.Price)
	}
	return fmt.Sprintf("%s %s %s %s", v.Side, v.Quantity, v.Symbol, v.Type)
}

// Result is the exchange's answer to a submitted order. Read-only; Raw is
// the verbatim response body.
type Result struct {
	OrderID       int64
	ClientOrderID string
	Status        string
	ExecutedQty   decimal.Decimal
	AvgPrice      decimal.Decimal
	CumQuote      decimal.Decimal
	Raw           json.RawMessage
}
