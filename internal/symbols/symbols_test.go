package symbols

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	reg := Default()

	t.Run("lookup is case and whitespace insensitive", func(t *testing.T) {
		for _, key := range []string{"BTCUSDT", "btcusdt", " BtcUsdt "} {
			r, ok := reg.Lookup(key)
			require.True(t, ok, "key %q", key)
			assert.Equal(t, "BTCUSDT", r.Symbol)
			assert.True(t, r.QuantityStep.Equal(decimal.RequireFromString("0.001")))
		}
	})

	t.Run("unlisted symbol", func(t *testing.T) {
		_, ok := reg.Lookup("SHIBUSDT")
		assert.False(t, ok)
	})
}

func TestMerge(t *testing.T) {
	reg := Default()
	before, ok := reg.Lookup("BTCUSDT")
	require.True(t, ok)

	merged := reg.Merge(
		Rule{Symbol: "btcusdt", QuantityStep: decimal.RequireFromString("0.01"), QuantityDecimals: 2, MinNotional: decimal.RequireFromString("5")},
		Rule{Symbol: "SHIBUSDT", QuantityStep: decimal.RequireFromString("1"), QuantityDecimals: 0, MinNotional: decimal.RequireFromString("100")},
	)

	t.Run("override replaces the listed rule", func(t *testing.T) {
		r, ok := merged.Lookup("BTCUSDT")
		require.True(t, ok)
		assert.True(t, r.QuantityStep.Equal(decimal.RequireFromString("0.01")))
		assert.True(t, r.MinNotional.Equal(decimal.RequireFromString("5")))
	})

	t.Run("new symbol is added", func(t *testing.T) {
		_, ok := merged.Lookup("SHIBUSDT")
		assert.True(t, ok)
	})

	t.Run("source registry is untouched", func(t *testing.T) {
		r, ok := reg.Lookup("BTCUSDT")
		require.True(t, ok)
		assert.True(t, r.QuantityStep.Equal(before.QuantityStep))
		_, ok = reg.Lookup("SHIBUSDT")
		assert.False(t, ok)
	})
}

func TestSymbols(t *testing.T) {
	reg := NewRegistry(
		Rule{Symbol: "btcusdt"},
		Rule{Symbol: "ETHUSDT"},
	)
	assert.ElementsMatch(t, []string{"BTCUSDT", "ETHUSDT"}, reg.Symbols())
}
