package order

import (
	"testing"

	"github.com/amirphl/futures-order-bot/internal/symbols"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(minNotional string) *symbols.Registry {
	return symbols.NewRegistry(symbols.Rule{
		Symbol:           "BTCUSDT",
		QuantityStep:     decimal.RequireFromString("0.001"),
		QuantityDecimals: 3,
		MinNotional:      decimal.RequireFromString(minNotional),
	})
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestTruncateToStep(t *testing.T) {
	cases := []struct {
		qty, step, want string
	}{
		{"0.0015", "0.001", "0.001"},
		{"0.001", "0.001", "0.001"},
		{"0.0009999", "0.001", "0"},
		{"1.2349", "0.01", "1.23"},
		{"5", "1", "5"},
		{"7.9", "2", "6"},
		{"0.0016129032258064", "0.001", "0.001"},
	}
	for _, c := range cases {
		got := TruncateToStep(dec(c.qty), dec(c.step))
		assert.True(t, got.Equal(dec(c.want)), "truncate(%s, %s) = %s, want %s", c.qty, c.step, got, c.want)
	}

	t.Run("never exceeds the input and always lands on a step multiple", func(t *testing.T) {
		steps := []string{"0.001", "0.01", "0.1", "1", "2", "0.0005"}
		qtys := []string{"0.0001", "0.37", "1.9999", "123.456", "0.001", "42"}
		for _, s := range steps {
			for _, q := range qtys {
				step, qty := dec(s), dec(q)
				got := TruncateToStep(qty, step)
				assert.True(t, got.LessThanOrEqual(qty), "truncate(%s, %s) rounded up to %s", q, s, got)
				_, rem := got.QuoRem(step, 0)
				assert.True(t, rem.IsZero(), "truncate(%s, %s) = %s is not a multiple of the step", q, s, got)
			}
		}
	})
}

func TestValidate(t *testing.T) {
	t.Run("unknown symbol checked first", func(t *testing.T) {
		d := Draft{Symbol: "DOGEUSDT", Side: "WRONG", Type: TypeMarket}
		_, err := Validate(d, testRegistry("100"))
		assert.ErrorIs(t, err, ErrUnknownSymbol)
	})

	t.Run("limit without price fails with invalid price", func(t *testing.T) {
		d := Draft{Symbol: "BTCUSDT", Side: SideBuy, Type: TypeLimit, Quantity: dec("0.01")}
		_, err := Validate(d, testRegistry("100"))
		assert.ErrorIs(t, err, ErrInvalidPrice)
	})

	t.Run("market with price fails with invalid price", func(t *testing.T) {
		d := Draft{Symbol: "BTCUSDT", Side: SideBuy, Type: TypeMarket, Quantity: dec("0.01"), Price: dec("62000"), RefPrice: dec("62000")}
		_, err := Validate(d, testRegistry("100"))
		assert.ErrorIs(t, err, ErrInvalidPrice)
	})

	t.Run("unresolved quantity fails", func(t *testing.T) {
		d := Draft{Symbol: "BTCUSDT", Side: SideBuy, Type: TypeMarket, Notional: dec("100"), RefPrice: dec("60000")}
		_, err := Validate(d, testRegistry("100"))
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("quantity that rounds to zero fails", func(t *testing.T) {
		d := Draft{Symbol: "BTCUSDT", Side: SideBuy, Type: TypeMarket, Quantity: dec("0.0004"), RefPrice: dec("60000")}
		_, err := Validate(d, testRegistry("100"))
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("market quantity truncates to the step", func(t *testing.T) {
		d := Draft{Symbol: "BTCUSDT", Side: SideBuy, Type: TypeMarket, Quantity: dec("0.0015"), RefPrice: dec("120000")}
		v, err := Validate(d, testRegistry("100"))
		require.NoError(t, err)
		assert.True(t, v.Quantity.Equal(dec("0.001")), "got %s", v.Quantity)
	})

	t.Run("below min notional even with a positive step", func(t *testing.T) {
		// 0.001 x 50000 = 50 USDT, under the 100 USDT minimum.
		d := Draft{Symbol: "BTCUSDT", Side: SideSell, Type: TypeLimit, Quantity: dec("0.001"), Price: dec("50000"), RefPrice: dec("50000"), TimeInForce: TIFGoodTilCancelled}
		_, err := Validate(d, testRegistry("100"))
		assert.ErrorIs(t, err, ErrBelowMinNotional)
	})

	t.Run("min notional uses the truncated quantity", func(t *testing.T) {
		// 0.0019 truncates to 0.001; 0.001 x 100000 = 100 exactly meets the minimum.
		d := Draft{Symbol: "BTCUSDT", Side: SideBuy, Type: TypeLimit, Quantity: dec("0.0019"), Price: dec("100000"), RefPrice: dec("100000"), TimeInForce: TIFGoodTilCancelled}
		v, err := Validate(d, testRegistry("100"))
		require.NoError(t, err)
		assert.True(t, v.Quantity.Equal(dec("0.001")))
		assert.True(t, v.Notional().Equal(dec("100")))
	})

	t.Run("valid limit order keeps price and time in force", func(t *testing.T) {
		d := Draft{Symbol: "BTCUSDT", Side: SideBuy, Type: TypeLimit, Quantity: dec("0.01"), Price: dec("62000"), RefPrice: dec("62000"), TimeInForce: TIFGoodTilCancelled}
		v, err := Validate(d, testRegistry("100"))
		require.NoError(t, err)
		assert.Equal(t, TIFGoodTilCancelled, v.TimeInForce)
		assert.True(t, v.Price.Equal(dec("62000")))
	})
}
