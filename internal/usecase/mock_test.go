package usecase_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/avolkov/paper_trade_bot/internal/domain"
)

// MockMarketData serves canned candles and prices keyed by symbol.
type MockMarketData struct {
	Prices     map[string]float64
	Candles    map[string][]domain.Candle
	CandleErr  map[string]error
	PriceCb    func(symbol string, price float64)
	Subscribed []string
}

func NewMockMarketData() *MockMarketData {
	return &MockMarketData{
		Prices:    make(map[string]float64),
		Candles:   make(map[string][]domain.Candle),
		CandleErr: make(map[string]error),
	}
}

func (m *MockMarketData) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	price, ok := m.Prices[symbol]
	if !ok {
		return 0, fmt.Errorf("no price for %s", symbol)
	}
	return price, nil
}

func (m *MockMarketData) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	if err := m.CandleErr[symbol]; err != nil {
		return nil, err
	}
	return m.Candles[symbol], nil
}

func (m *MockMarketData) OnPriceUpdate(callback func(symbol string, price float64)) {
	m.PriceCb = callback
}

func (m *MockMarketData) Subscribe(symbols []string) error {
	m.Subscribed = append(m.Subscribed, symbols...)
	return nil
}

// MockForecaster returns the last close scaled by a fixed factor.
type MockForecaster struct {
	Factor float64
	Err    error
}

func (m *MockForecaster) Predict(symbol string, candles []domain.Candle) (domain.Forecast, error) {
	if m.Err != nil {
		return domain.Forecast{}, m.Err
	}
	last := candles[len(candles)-1].Close
	prediction := last * m.Factor
	return domain.Forecast{
		Symbol:   symbol,
		Trend:    prediction,
		Momentum: prediction,
		Ensemble: prediction,
	}, nil
}

// MockTradeRepo records journal writes in memory.
type MockTradeRepo struct {
	mu      sync.Mutex
	Trades  []domain.Trade
	Closes  []domain.ClosedPosition
	SaveErr error
}

func (m *MockTradeRepo) SaveTrade(ctx context.Context, trade *domain.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Trades = append(m.Trades, *trade)
	return nil
}

func (m *MockTradeRepo) ListTrades(ctx context.Context, limit int) ([]*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Trade, 0, len(m.Trades))
	for i := range m.Trades {
		out = append(out, &m.Trades[i])
	}
	return out, nil
}

func (m *MockTradeRepo) SavePositionHistory(ctx context.Context, history *domain.ClosedPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closes = append(m.Closes, *history)
	return nil
}

func (m *MockTradeRepo) ListPositionHistory(ctx context.Context, limit int) ([]*domain.ClosedPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.ClosedPosition, 0, len(m.Closes))
	for i := range m.Closes {
		out = append(out, &m.Closes[i])
	}
	return out, nil
}

func (m *MockTradeRepo) TradeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Trades)
}
