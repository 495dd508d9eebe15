// Package session
package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/amirphl/futures-order-bot/internal/confirm"
	"github.com/amirphl/futures-order-bot/internal/exchange"
	"github.com/amirphl/futures-order-bot/internal/intent"
	"github.com/amirphl/futures-order-bot/internal/notifier"
	"github.com/amirphl/futures-order-bot/internal/order"
	"github.com/amirphl/futures-order-bot/internal/symbols"
	"github.com/amirphl/futures-order-bot/internal/utils"
	"github.com/shopspring/decimal"
)

// Deps are the collaborators every session shares. The gate keys its state
// by session id, so sessions stay independent. Advisor is optional; without
// one the suggestion paths report it missing.
type Deps struct {
	Exchange  exchange.Client
	Registry  *symbols.Registry
	Gate      *confirm.Gate
	Extractor intent.Extractor
	Advisor   intent.Advisor
	Notifier  notifier.Notifier
}

// Manager hands out one Session per conversation id.
type Manager struct {
	mu       sync.Mutex
	deps     Deps
	sessions map[string]*Session
}

func NewManager(deps Deps) *Manager {
	if deps.Notifier == nil {
		deps.Notifier = notifier.Noop{}
	}
	return &Manager{deps: deps, sessions: make(map[string]*Session)}
}

func (m *Manager) Session(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = &Session{id: id, deps: m.deps}
		m.sessions[id] = s
	}
	return s
}

// Session runs one conversation's order pipeline. The mutex serializes all
// operations for the session in arrival order; different sessions proceed
// concurrently.
type Session struct {
	id   string
	mu   sync.Mutex
	deps Deps
}

// Reply is what the CLI or API surfaces to the user.
type Reply struct {
	Text    string
	Pending *confirm.Pending
	Result  *order.Result
}

// PlaceDraft runs normalize -> resolve -> validate on explicit fields. With
// skipConfirm the order goes straight to the exchange; otherwise it parks
// in the gate until the user confirms.
func (s *Session) PlaceDraft(ctx context.Context, f order.Fields, skipConfirm bool) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.place(ctx, f, skipConfirm)
}

// Confirm submits the pending order matching id.
func (s *Session) Confirm(ctx context.Context, id string) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirm(ctx, id)
}

// Cancel discards the pending order. Empty id cancels whatever is pending.
func (s *Session) Cancel(id string) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.deps.Gate.Cancel(s.id, id); err != nil {
		return Reply{}, err
	}
	return Reply{Text: "Pending order cancelled."}, nil
}

// Pending exposes the session's live pending entry, if any.
func (s *Session) Pending() (confirm.Pending, bool) {
	return s.deps.Gate.Get(s.id)
}

// Suggest runs the market advisor on a symbol. A BUY/SELL decision becomes
// a gated order built from the advisor's fields; HOLD is text only.
func (s *Session) Suggest(ctx context.Context, symbol string) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suggest(ctx, symbol)
}

const (
	adviseInterval = "15m"
	adviseDepth    = 10
)

func (s *Session) suggest(ctx context.Context, symbol string) (Reply, error) {
	if s.deps.Advisor == nil {
		return Reply{}, errors.New("no market advisor configured")
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	klines, err := s.deps.Exchange.Klines(ctx, symbol, adviseInterval, adviseDepth)
	if err != nil {
		return Reply{}, fmt.Errorf("fetching candles for %s: %w", symbol, err)
	}
	price, err := s.deps.Exchange.MarkPrice(ctx, symbol)
	if err != nil {
		return Reply{}, fmt.Errorf("%w for %s: %v", order.ErrPriceFetch, symbol, err)
	}
	closes := make([]decimal.Decimal, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
	}

	sug, err := s.deps.Advisor.Advise(ctx, intent.MarketSnapshot{
		Symbol:   symbol,
		Interval: adviseInterval,
		Price:    price,
		Closes:   closes,
	})
	if err != nil {
		return Reply{}, err
	}
	utils.GetLogger().Printf("Session | %s advisor: %s %s (%s)", s.id, sug.Action, symbol, sug.Reason)

	if sug.Action == "HOLD" {
		return Reply{Text: fmt.Sprintf("HOLD %s: %s", symbol, sug.Reason)}, nil
	}
	reply, err := s.place(ctx, sug.Fields, false)
	if err != nil {
		return Reply{}, err
	}
	reply.Text = fmt.Sprintf("%s %s: %s\n%s", sug.Action, symbol, sug.Reason, reply.Text)
	return reply, nil
}

var confirmIDRe = regexp.MustCompile(`\b([0-9a-f]{8,64})\b`)

// HandleMessage routes a chat message: explicit confirm/cancel first, then
// account queries, then the intent extractor. Chat-originated orders always
// pass through the confirmation gate.
func (s *Session) HandleMessage(ctx context.Context, text string) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case intent.IsConfirm(text):
		id := ""
		if m := confirmIDRe.FindStringSubmatch(strings.ToLower(text)); m != nil {
			id = m[1]
		}
		if id == "" {
			if cur, ok := s.deps.Gate.CurrentID(s.id); ok {
				id = cur
			}
		}
		return s.confirm(ctx, id)

	case intent.IsCancel(text):
		if err := s.deps.Gate.Cancel(s.id, ""); err != nil {
			return Reply{}, err
		}
		return Reply{Text: "Pending order cancelled."}, nil

	case isPositionsQuery(text):
		positions, err := s.deps.Exchange.Positions(ctx, "")
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: formatPositions(positions)}, nil

	case isOpenOrdersQuery(text):
		orders, err := s.deps.Exchange.OpenOrders(ctx, "")
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: formatOpenOrders(orders)}, nil

	case isTradesQuery(text):
		symbol := querySymbol(text)
		trades, err := s.deps.Exchange.Trades(ctx, symbol, 20)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: formatTrades(trades)}, nil

	default:
		fields, err := s.deps.Extractor.Extract(ctx, text)
		if err != nil {
			// Trade intent without a parseable order hands the decision to
			// the advisor when one is configured.
			if errors.Is(err, intent.ErrUnrecognized) && s.deps.Advisor != nil {
				if symbol, ok := intent.ParseSymbol(text); ok && isAdviceQuery(text) {
					return s.suggest(ctx, symbol)
				}
			}
			return Reply{}, err
		}
		return s.place(ctx, fields, false)
	}
}

func (s *Session) place(ctx context.Context, f order.Fields, skipConfirm bool) (Reply, error) {
	draft, err := order.Normalize(f)
	if err != nil {
		return Reply{}, err
	}
	draft, err = order.Resolve(ctx, draft, s.deps.Exchange)
	if err != nil {
		return Reply{}, err
	}
	validated, err := order.Validate(draft, s.deps.Registry)
	if err != nil {
		return Reply{}, err
	}

	if skipConfirm {
		return s.submit(ctx, validated)
	}

	pending := s.deps.Gate.Put(s.id, validated)
	return Reply{
		Text:    fmt.Sprintf("Confirm to place: %s (~%s USDT). Reply \"confirm %s\" or \"cancel\".", validated, validated.Notional().StringFixed(2), pending.ID),
		Pending: &pending,
	}, nil
}

func (s *Session) confirm(ctx context.Context, id string) (Reply, error) {
	validated, err := s.deps.Gate.Confirm(s.id, id)
	if err != nil {
		return Reply{}, err
	}
	return s.submit(ctx, validated)
}

func (s *Session) submit(ctx context.Context, v order.Validated) (Reply, error) {
	result, err := s.deps.Exchange.SubmitOrder(ctx, v)
	if err != nil {
		utils.GetLogger().Printf("Session | %s order failed: %v", s.id, err)
		var ex *order.ExchangeError
		if errors.As(err, &ex) {
			s.deps.Notifier.SendWithRetry(fmt.Sprintf("Order rejected: %s: %s", v, ex.Message))
		}
		return Reply{}, err
	}
	utils.GetLogger().Printf("Session | %s order %d %s", s.id, result.OrderID, result.Status)
	s.deps.Notifier.SendWithRetry(fmt.Sprintf("Order %d %s: %s", result.OrderID, result.Status, v))
	return Reply{Text: formatResult(result), Result: &result}, nil
}

func isPositionsQuery(text string) bool {
	return containsAny(text, "positions", "my position", "show position", "running trades")
}

func isOpenOrdersQuery(text string) bool {
	return containsAny(text, "open orders", "my orders", "show orders", "active orders")
}

func isTradesQuery(text string) bool {
	return containsAny(text, "my trades", "fetch my trades", "recent trades", "trade history")
}

func isAdviceQuery(text string) bool {
	return containsAny(text, "should i", "should we", "suggest", "advice", "advise",
		"analyze", "analyse", "what do you think", "good idea")
}

func containsAny(text string, keys ...string) bool {
	lower := strings.ToLower(text)
	for _, k := range keys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func querySymbol(text string) string {
	symbol, ok := intent.ParseSymbol(text)
	if !ok {
		return ""
	}
	return symbol
}
