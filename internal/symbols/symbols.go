// Package symbols
package symbols

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Rule holds the exchange trading filters for one symbol: the minimum
// quantity increment (LOT_SIZE step), the quantity precision, and the
// minimum order notional in quote currency (MIN_NOTIONAL).
type Rule struct {
	Symbol           string
	QuantityStep     decimal.Decimal
	QuantityDecimals int32
	MinNotional      decimal.Decimal
}

// Registry is an immutable symbol -> Rule table, built once at startup.
type Registry struct {
	rules map[string]Rule
}

func NewRegistry(rules ...Rule) *Registry {
	m := make(map[string]Rule, len(rules))
	for _, r := range rules {
		r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
		m[r.Symbol] = r
	}
	return &Registry{rules: m}
}

// Lookup returns the rule for a symbol. Symbols are stored uppercase.
func (r *Registry) Lookup(symbol string) (Rule, bool) {
	rule, ok := r.rules[strings.ToUpper(strings.TrimSpace(symbol))]
	return rule, ok
}

// Merge returns a new registry with extra rules layered on top; a rule for
// an already-listed symbol replaces it.
func (r *Registry) Merge(rules ...Rule) *Registry {
	all := make([]Rule, 0, len(r.rules)+len(rules))
	for _, existing := range r.rules {
		all = append(all, existing)
	}
	all = append(all, rules...)
	return NewRegistry(all...)
}

// Symbols returns the listed symbols, for error messages and the API.
func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.rules))
	for s := range r.rules {
		out = append(out, s)
	}
	return out
}

func rule(symbol string, step string, decimals int32, minNotional string) Rule {
	return Rule{
		Symbol:           symbol,
		QuantityStep:     decimal.RequireFromString(step),
		QuantityDecimals: decimals,
		MinNotional:      decimal.RequireFromString(minNotional),
	}
}

// Default returns the built-in USDT-M futures testnet rules. The step and
// precision values follow the Binance LOT_SIZE filters for these pairs;
// min notional is 100 USDT across the board on the testnet.
func Default() *Registry {
	return NewRegistry(
		rule("BTCUSDT", "0.001", 3, "100"),
		rule("ETHUSDT", "0.001", 3, "100"),
		rule("BNBUSDT", "0.01", 2, "100"),
		rule("SOLUSDT", "1", 0, "100"),
		rule("XRPUSDT", "0.1", 1, "100"),
		rule("DOGEUSDT", "1", 0, "100"),
		rule("ADAUSDT", "1", 0, "100"),
		rule("LINKUSDT", "0.01", 2, "100"),
	)
}
