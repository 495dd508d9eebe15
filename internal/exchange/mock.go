package exchange

import (
	"context"
	"fmt"
	"sync"

	"github.com/amirphl/futures-order-bot/internal/order"
	"github.com/shopspring/decimal"
)

// MockExchange is an in-memory Client for tests and dry runs. Submitted
// orders fill immediately at the configured mark price and are recorded.
type MockExchange struct {
	mu           sync.Mutex
	Prices       map[string]decimal.Decimal
	PriceErr     error
	SubmitErr    error
	Submitted    []order.Validated
	Cancelled    []int64
	orderCounter int64
	openOrders   []OpenOrder
	positions    []Position
	trades       []Trade
	klines       []Kline
}

func NewMockExchange() *MockExchange {
	return &MockExchange{
		Prices:       make(map[string]decimal.Decimal),
		orderCounter: 1000,
	}
}

func (m *MockExchange) Name() string { return "mock" }

func (m *MockExchange) SetPrice(symbol string, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prices[symbol] = price
}

func (m *MockExchange) SubmitOrder(ctx context.Context, o order.Validated) (order.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitErr != nil {
		return order.Result{}, m.SubmitErr
	}
	m.orderCounter++
	m.Submitted = append(m.Submitted, o)

	status := "FILLED"
	avg := m.Prices[o.Symbol]
	if o.Type == order.TypeLimit {
		status = "NEW"
		avg = decimal.Zero
	}
	return order.Result{
		OrderID:       m.orderCounter,
		ClientOrderID: fmt.Sprintf("mock-%d", m.orderCounter),
		Status:        status,
		ExecutedQty:   o.Quantity,
		AvgPrice:      avg,
	}, nil
}

func (m *MockExchange) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancelled = append(m.Cancelled, orderID)
	return nil
}

func (m *MockExchange) OpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openOrders, nil
}

func (m *MockExchange) Positions(ctx context.Context, symbol string) ([]Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positions, nil
}

func (m *MockExchange) Trades(ctx context.Context, symbol string, limit int) ([]Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trades, nil
}

func (m *MockExchange) MarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PriceErr != nil {
		return decimal.Decimal{}, m.PriceErr
	}
	price, ok := m.Prices[symbol]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no mock price for %s", symbol)
	}
	return price, nil
}

func (m *MockExchange) SetOpenOrders(orders []OpenOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openOrders = orders
}

func (m *MockExchange) SetPositions(positions []Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = positions
}

func (m *MockExchange) SetTrades(trades []Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = trades
}

func (m *MockExchange) SetKlines(klines []Kline) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.klines = klines
}

func (m *MockExchange) Klines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.klines, nil
}
