package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amirphl/futures-order-bot/internal/order"
	"github.com/shopspring/decimal"
)

const advisePrompt = `You are a cautious futures trading analyst. Given market data (current price, recent closes), decide whether to trade. Respond with a JSON object only, no other text:
- action: "BUY" | "SELL" | "HOLD"
- type: "MARKET" | "LIMIT" (use MARKET for immediate execution)
- quantity: small base-asset amount as a string (e.g. "0.001" for BTC)
- price: limit price as a string, or null for MARKET
- reason: one short sentence

Prefer HOLD when uncertain. Only trade on a clear short-term signal. Return ONLY valid JSON.`

// MarketSnapshot is the data the advisor reasons over.
type MarketSnapshot struct {
	Symbol   string
	Interval string
	Price    decimal.Decimal
	Closes   []decimal.Decimal
}

func (s MarketSnapshot) render() string {
	closes := make([]string, len(s.Closes))
	for i, c := range s.Closes {
		closes[i] = c.String()
	}
	return fmt.Sprintf("Symbol: %s\nCurrent price: %s\nRecent %s closes (oldest first): %s",
		s.Symbol, s.Price, s.Interval, strings.Join(closes, ", "))
}

// Suggestion is the advisor's decision. Fields is populated for BUY/SELL
// and feeds the same pipeline as any other order input; HOLD carries only
// the reason.
type Suggestion struct {
	Action string
	Reason string
	Fields order.Fields
}

// Advisor analyzes a market snapshot and suggests a trade or HOLD.
type Advisor interface {
	Advise(ctx context.Context, snap MarketSnapshot) (Suggestion, error)
}

// Advise asks the LLM for a BUY/SELL/HOLD decision over the snapshot. A
// reply that names no tradable action, or cannot be parsed, is a HOLD: the
// bot never trades on a garbled decision.
func (g *GroqExtractor) Advise(ctx context.Context, snap MarketSnapshot) (Suggestion, error) {
	if g.apiKey == "" {
		return Suggestion{}, errors.New("advisor needs a Groq API key, set GROQ_API_KEY")
	}

	content, err := g.complete(ctx, []chatMessage{
		{Role: "system", Content: advisePrompt},
		{Role: "user", Content: "Market data:\n" + snap.render() + "\n\nWhat should we do? Respond with JSON only."},
	}, 0.3)
	if err != nil {
		return Suggestion{}, err
	}

	obj := parseModelJSON(content)
	if obj == nil {
		return Suggestion{Action: "HOLD", Reason: "could not parse the model's decision"}, nil
	}

	action := strings.ToUpper(strings.TrimSpace(jsonString(obj["action"])))
	reason := jsonString(obj["reason"])
	if action != "BUY" && action != "SELL" {
		return Suggestion{Action: "HOLD", Reason: reason}, nil
	}

	orderType := strings.ToUpper(strings.TrimSpace(jsonString(obj["type"])))
	price := jsonString(obj["price"])
	if orderType != "LIMIT" || price == "" {
		orderType = "MARKET"
		price = ""
	}

	return Suggestion{
		Action: action,
		Reason: reason,
		Fields: order.Fields{
			Symbol:   snap.Symbol,
			Side:     action,
			Type:     orderType,
			Quantity: jsonString(obj["quantity"]),
			Price:    price,
		},
	}, nil
}
