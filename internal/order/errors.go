package order

import (
	"errors"
	"fmt"
)

// Error taxonomy for the order pipeline. Every rejected path wraps one of
// these sentinels (or returns an *ExchangeError), so callers classify with
// errors.Is / errors.As and the offending field is named in the message.
var (
	// ErrIntent: required fields missing or contradictory.
	ErrIntent = errors.New("missing or contradictory order fields")
	// ErrUnsupportedOrderKind: side/type outside {BUY,SELL}x{MARKET,LIMIT}.
	ErrUnsupportedOrderKind = errors.New("unsupported order side or type")
	// ErrUnknownSymbol: symbol not in the rules registry.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrInvalidPrice: LIMIT price <= 0, or a price on a MARKET order.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrInvalidQuantity: resolved quantity <= 0 after rounding.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrBelowMinNotional: quantity x price under the symbol minimum.
	ErrBelowMinNotional = errors.New("order notional below symbol minimum")
	// ErrNoMatchingPending: confirm/cancel with a stale or wrong id.
	ErrNoMatchingPending = errors.New("no matching pending confirmation")
	// ErrConfirmationExpired: the pending entry outlived the configured TTL.
	ErrConfirmationExpired = errors.New("pending confirmation expired")
	// ErrPriceFetch: market price lookup failed after one retry.
	ErrPriceFetch = errors.New("failed to fetch market price")
	// ErrNetwork: transport-level failure talking to the exchange.
	ErrNetwork = errors.New("network failure")
)

// ExchangeError carries the exchange's own rejection verbatim. It is never
// retried and never reinterpreted.
type ExchangeError struct {
	Code       int
	Message    string
	HTTPStatus int
	Raw        []byte
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("exchange rejected request (code %d): %s", e.Code, e.Message)
}
