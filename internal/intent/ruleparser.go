package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/amirphl/futures-order-bot/internal/order"
)

// Short names users actually type; expanded to the USDT pair.
var knownTokens = []string{
	"BTC", "ETH", "BNB", "SOL", "XRP", "DOGE", "ADA", "AVAX", "LINK", "DOT",
	"MATIC", "UNI", "ATOM", "LTC", "NEAR", "APT", "ARB", "OP", "INJ", "SUI",
}

var (
	fullSymbolRe = regexp.MustCompile(`\b([A-Z0-9]{2,10}USDT)\b`)
	tokenRe      = regexp.MustCompile(`\b(` + strings.Join(knownTokens, "|") + `)\b`)
	sellRe       = regexp.MustCompile(`\b(sell|short)\b`)
	buyRe        = regexp.MustCompile(`\b(buy|long)\b`)
	limitRe      = regexp.MustCompile(`\blimit\b|\bat\s+\d`)
	priceRe      = regexp.MustCompile(`(?:\bat|@|\bprice)\s*(\d+(?:\.\d+)?)`)
	notionalRe   = regexp.MustCompile(`(?:\bfor|\bwith|\bof)?\s*(\d+(?:\.\d+)?)\s*(?:dollars?|usdt|usd|bucks)\b`)
	cancelRe     = regexp.MustCompile(`\b(cancel|abort|never\s*mind|nevermind)\b`)
	confirmRe    = regexp.MustCompile(`^\s*(confirm|yes|y|do it|go ahead)\b`)
)

// RuleParser extracts orders from messages like
// "limit buy BTC at 62000 for 100 usdt" or "sell 0.01 eth market".
// Anything it cannot pin down precisely is ErrUnrecognized so an LLM
// extractor can take over.
type RuleParser struct{}

func (RuleParser) Extract(_ context.Context, message string) (order.Fields, error) {
	lower := strings.ToLower(message)

	var side string
	switch {
	case sellRe.MatchString(lower):
		side = "SELL"
	case buyRe.MatchString(lower):
		side = "BUY"
	default:
		return order.Fields{}, fmt.Errorf("%w: no buy/sell verb", ErrUnrecognized)
	}

	symbol, ok := ParseSymbol(message)
	if !ok {
		return order.Fields{}, fmt.Errorf("%w: no trading symbol", ErrUnrecognized)
	}

	orderType := "MARKET"
	if limitRe.MatchString(lower) {
		orderType = "LIMIT"
	}

	var price string
	if m := priceRe.FindStringSubmatch(lower); m != nil {
		price = m[1]
	}
	if price == "" && orderType == "LIMIT" {
		return order.Fields{}, fmt.Errorf("%w: limit order without a price", ErrUnrecognized)
	}

	var notional, quantity string
	if m := notionalRe.FindStringSubmatch(lower); m != nil && m[1] != price {
		notional = m[1]
	}
	if notional == "" {
		if m := quantityRe(symbol).FindStringSubmatch(lower); m != nil && m[1] != price {
			quantity = m[1]
		}
	}
	if notional == "" && quantity == "" {
		return order.Fields{}, fmt.Errorf("%w: no quantity or USDT amount", ErrUnrecognized)
	}

	return order.Fields{
		Symbol:   symbol,
		Side:     side,
		Type:     orderType,
		Quantity: quantity,
		Notional: notional,
		Price:    price,
	}, nil
}

// quantityRe matches a base-asset amount, e.g. "0.01 eth" for ETHUSDT.
func quantityRe(symbol string) *regexp.Regexp {
	base := strings.ToLower(strings.TrimSuffix(symbol, "USDT"))
	return regexp.MustCompile(`(\d+(?:\.\d+)?)\s*` + regexp.QuoteMeta(base) + `\b`)
}

// ParseSymbol finds a full pair like BTCUSDT or a known short token
// anywhere in the message.
func ParseSymbol(message string) (string, bool) {
	upper := strings.ToUpper(message)
	if m := fullSymbolRe.FindStringSubmatch(upper); m != nil {
		return m[1], true
	}
	if m := tokenRe.FindStringSubmatch(upper); m != nil {
		return m[1] + "USDT", true
	}
	return "", false
}

// IsConfirm reports whether the message is an explicit confirmation.
func IsConfirm(message string) bool {
	return confirmRe.MatchString(strings.ToLower(message))
}

// IsCancel reports whether the message cancels the pending order.
func IsCancel(message string) bool {
	return cancelRe.MatchString(strings.ToLower(message))
}
