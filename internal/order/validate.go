package order

import (
	"fmt"

	"github.com/amirphl/futures-order-bot/internal/symbols"
	"github.com/shopspring/decimal"
)

// Validate enforces the exchange constraints on a resolved draft. Checks
// run in a fixed order and the first failure wins: symbol existence,
// side/type shape, price shape, quantity resolution, rounding, min
// notional. The quantity is truncated to the symbol step (never rounded
// up) so the submitted size never exceeds what the user asked for.
func Validate(d Draft, reg *symbols.Registry) (Validated, error) {
	rule, ok := reg.Lookup(d.Symbol)
	if !ok {
		return Validated{}, fmt.Errorf("%w: %s is not listed", ErrUnknownSymbol, d.Symbol)
	}

	if d.Side != SideBuy && d.Side != SideSell {
		return Validated{}, fmt.Errorf("%w: side %q", ErrUnsupportedOrderKind, d.Side)
	}
	if d.Type != TypeMarket && d.Type != TypeLimit {
		return Validated{}, fmt.Errorf("%w: type %q", ErrUnsupportedOrderKind, d.Type)
	}

	switch d.Type {
	case TypeLimit:
		if !d.Price.IsPositive() {
			return Validated{}, fmt.Errorf("%w: LIMIT order needs a price > 0, got %s", ErrInvalidPrice, d.Price)
		}
	case TypeMarket:
		if !d.Price.IsZero() {
			return Validated{}, fmt.Errorf("%w: MARKET order must not carry a price, got %s", ErrInvalidPrice, d.Price)
		}
	}

	if !d.Notional.IsZero() || d.Quantity.IsZero() {
		return Validated{}, fmt.Errorf("%w: quantity is unresolved", ErrInvalidQuantity)
	}

	qty := TruncateToStep(d.Quantity, rule.QuantityStep).Truncate(rule.QuantityDecimals)
	if !qty.IsPositive() {
		return Validated{}, fmt.Errorf("%w: %s rounds to %s with step %s",
			ErrInvalidQuantity, d.Quantity, qty, rule.QuantityStep)
	}

	notional := qty.Mul(d.RefPrice)
	if notional.LessThan(rule.MinNotional) {
		return Validated{}, fmt.Errorf("%w: %s x %s = %s USDT, minimum is %s",
			ErrBelowMinNotional, qty, d.RefPrice, notional, rule.MinNotional)
	}

	return Validated{
		Symbol:      d.Symbol,
		Side:        d.Side,
		Type:        d.Type,
		Quantity:    qty,
		Price:       d.Price,
		TimeInForce: d.TimeInForce,
		RefPrice:    d.RefPrice,
	}, nil
}

// TruncateToStep floors q to a multiple of step. The result is always <= q
// and exactly divisible by step. QuoRem truncates the quotient, so no
// intermediate rounding can push the result above q.
func TruncateToStep(q, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return q
	}
	n, _ := q.QuoRem(step, 0)
	return n.Mul(step)
}
