package session

import (
	"fmt"
	"strings"

	"github.com/amirphl/futures-order-bot/internal/exchange"
	"github.com/amirphl/futures-order-bot/internal/order"
)

func formatResult(r order.Result) string {
	var b strings.Builder
	b.WriteString("--- Order Response ---\n")
	fmt.Fprintf(&b, "  Order ID:     %d\n", r.OrderID)
	fmt.Fprintf(&b, "  Status:       %s\n", r.Status)
	fmt.Fprintf(&b, "  Executed Qty: %s\n", r.ExecutedQty)
	fmt.Fprintf(&b, "  Avg Price:    %s\n", r.AvgPrice)
	fmt.Fprintf(&b, "  Cum Quote:    %s\n", r.CumQuote)
	b.WriteString("----------------------")
	return b.String()
}

// FormatSummary renders the order the user is about to confirm.
func FormatSummary(v order.Validated) string {
	var b strings.Builder
	b.WriteString("--- Order Request Summary ---\n")
	fmt.Fprintf(&b, "  Symbol:     %s\n", v.Symbol)
	fmt.Fprintf(&b, "  Side:       %s\n", v.Side)
	fmt.Fprintf(&b, "  Type:       %s\n", v.Type)
	fmt.Fprintf(&b, "  Quantity:   %s\n", v.Quantity)
	if v.Type == order.TypeLimit {
		fmt.Fprintf(&b, "  Price:      %s\n", v.Price)
		fmt.Fprintf(&b, "  TIF:        %s\n", v.TimeInForce)
	}
	b.WriteString("----------------------------")
	return b.String()
}

func formatOpenOrders(orders []exchange.OpenOrder) string {
	if len(orders) == 0 {
		return "No open orders."
	}
	lines := make([]string, 0, len(orders))
	for _, o := range orders {
		price := o.Price.String()
		if o.Type == "MARKET" {
			price = "market"
		}
		lines = append(lines, fmt.Sprintf("  • %s %s %s qty=%s price=%s status=%s",
			o.Symbol, o.Side, o.Type, o.OrigQty, price, o.Status))
	}
	return strings.Join(lines, "\n")
}

func formatPositions(positions []exchange.Position) string {
	lines := make([]string, 0, len(positions))
	for _, p := range positions {
		if p.PositionAmt.IsZero() {
			continue
		}
		side := "LONG"
		if p.PositionAmt.IsNegative() {
			side = "SHORT"
		}
		lines = append(lines, fmt.Sprintf("  • %s %s %s entry=%s mark=%s uPnL=%s",
			p.Symbol, side, p.PositionAmt.Abs(), p.EntryPrice, p.MarkPrice, p.UnrealizedProfit))
	}
	if len(lines) == 0 {
		return "No open positions."
	}
	return strings.Join(lines, "\n")
}

func formatTrades(trades []exchange.Trade) string {
	if len(trades) == 0 {
		return "No recent trades."
	}
	lines := make([]string, 0, len(trades))
	for _, t := range trades {
		lines = append(lines, fmt.Sprintf("  • %s %s %s @ %s (%s USDT) %s",
			t.Symbol, t.Side, t.Qty, t.Price, t.QuoteQty, t.TradeTime().Format("2006-01-02 15:04:05")))
	}
	return strings.Join(lines, "\n")
}
