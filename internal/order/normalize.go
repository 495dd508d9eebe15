package order

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Symbol shape accepted by the exchange, e.g. BTCUSDT.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{5,20}$`)

// Normalize turns raw input fields into a canonical Draft. Side and type
// are matched case-insensitively but must land exactly in
// {BUY,SELL}x{MARKET,LIMIT}. A LIMIT without a price, or input carrying
// neither quantity nor notional (or both), is rejected here; price-shape
// violations that only a rule table can judge are left to Validate.
func Normalize(in Fields) (Draft, error) {
	var d Draft

	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
	if symbol == "" {
		return Draft{}, fmt.Errorf("%w: symbol is required", ErrIntent)
	}
	if !symbolPattern.MatchString(symbol) {
		return Draft{}, fmt.Errorf("%w: invalid symbol %q, use format like BTCUSDT", ErrIntent, in.Symbol)
	}
	d.Symbol = symbol

	switch Side(strings.ToUpper(strings.TrimSpace(in.Side))) {
	case SideBuy:
		d.Side = SideBuy
	case SideSell:
		d.Side = SideSell
	default:
		return Draft{}, fmt.Errorf("%w: side %q, must be BUY or SELL", ErrUnsupportedOrderKind, in.Side)
	}

	switch Type(strings.ToUpper(strings.TrimSpace(in.Type))) {
	case TypeMarket:
		d.Type = TypeMarket
	case TypeLimit:
		d.Type = TypeLimit
	default:
		return Draft{}, fmt.Errorf("%w: type %q, must be MARKET or LIMIT", ErrUnsupportedOrderKind, in.Type)
	}

	hasQty := strings.TrimSpace(in.Quantity) != ""
	hasNotional := strings.TrimSpace(in.Notional) != ""
	switch {
	case !hasQty && !hasNotional:
		return Draft{}, fmt.Errorf("%w: either quantity or notional is required", ErrIntent)
	case hasQty && hasNotional:
		return Draft{}, fmt.Errorf("%w: quantity and notional are mutually exclusive", ErrIntent)
	case hasQty:
		q, err := parsePositiveDecimal(in.Quantity)
		if err != nil {
			return Draft{}, fmt.Errorf("%w: quantity %q must be a positive number", ErrIntent, in.Quantity)
		}
		d.Quantity = q
	default:
		n, err := parsePositiveDecimal(in.Notional)
		if err != nil {
			return Draft{}, fmt.Errorf("%w: notional %q must be a positive number", ErrIntent, in.Notional)
		}
		d.Notional = n
	}

	if strings.TrimSpace(in.Price) != "" {
		p, err := parsePositiveDecimal(in.Price)
		if err != nil {
			return Draft{}, fmt.Errorf("%w: price %q must be a positive number", ErrIntent, in.Price)
		}
		d.Price = p
	} else if d.Type == TypeLimit {
		return Draft{}, fmt.Errorf("%w: price is required for LIMIT orders", ErrIntent)
	}

	switch tif := TimeInForce(strings.ToUpper(strings.TrimSpace(in.TimeInForce))); tif {
	case "":
		if d.Type == TypeLimit {
			d.TimeInForce = TIFGoodTilCancelled
		}
	case TIFGoodTilCancelled, TIFImmediateOrCancel, TIFFillOrKill:
		d.TimeInForce = tif
	default:
		return Draft{}, fmt.Errorf("%w: timeInForce %q, must be GTC, IOC, or FOK", ErrIntent, in.TimeInForce)
	}

	return d, nil
}

func parsePositiveDecimal(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !v.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("value %s is not positive", v)
	}
	return v, nil
}

// PriceSource supplies the current market price of a symbol.
type PriceSource interface {
	MarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Resolve fills in the fields that need the current market price: the
// quantity when the user gave a notional amount, and the reference price
// used for the min-notional check. LIMIT orders use their own limit price
// as the reference; MARKET orders fetch the mark price. The fetch is
// retried at most once, and only on a transport failure.
func Resolve(ctx context.Context, d Draft, prices PriceSource) (Draft, error) {
	if d.Type == TypeLimit {
		d.RefPrice = d.Price
	} else {
		price, err := prices.MarkPrice(ctx, d.Symbol)
		if err != nil && errors.Is(err, ErrNetwork) {
			price, err = prices.MarkPrice(ctx, d.Symbol)
		}
		if err != nil {
			return Draft{}, fmt.Errorf("%w for %s: %v", ErrPriceFetch, d.Symbol, err)
		}
		if !price.IsPositive() {
			return Draft{}, fmt.Errorf("%w for %s: non-positive price %s", ErrPriceFetch, d.Symbol, price)
		}
		d.RefPrice = price
	}

	if !d.Notional.IsZero() {
		d.Quantity = d.Notional.Div(d.RefPrice)
		d.Notional = decimal.Zero
	}
	return d, nil
}
