package usecase

import (
	"context"
	"fmt"
	"sync"

	talib "github.com/markcheno/go-talib"

	"github.com/avolkov/paper_trade_bot/internal/domain"
)

const (
	smaPeriod  = 20
	rsiPeriod  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9

	// minHistory is the shortest close series the indicator stack can
	// digest: the slow MACD EMA plus its signal line warm-up.
	minHistory = macdSlow + macdSignal
)

// MarketService caches live tick prices and derives the technical
// snapshot (SMA20 / RSI / MACD) from candle history.
type MarketService struct {
	exchange domain.MarketData

	mu         sync.Mutex
	lastPrices map[string]float64 // symbol -> last tick price
}

func NewMarketService(exchange domain.MarketData) *MarketService {
	s := &MarketService{
		exchange:   exchange,
		lastPrices: make(map[string]float64),
	}
	exchange.OnPriceUpdate(s.handleTick)
	return s
}

func (s *MarketService) handleTick(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPrices[symbol] = price
}

// LatestPrice returns the last tick seen for symbol, or 0 when none
// has arrived yet.
func (s *MarketService) LatestPrice(symbol string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPrices[symbol]
}

// CurrentPrice prefers the live tick cache and falls back to REST.
func (s *MarketService) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if price := s.LatestPrice(symbol); price > 0 {
		return price, nil
	}
	return s.exchange.GetCurrentPrice(ctx, symbol)
}

// Subscribe adds symbols to the live tick stream.
func (s *MarketService) Subscribe(symbols []string) error {
	return s.exchange.Subscribe(symbols)
}

// Candles fetches chronological history for symbol.
func (s *MarketService) Candles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	return s.exchange.GetCandles(ctx, symbol, interval, limit)
}

// Snapshot computes the indicator snapshot from candle history. The last
// close is taken as the current price unless a fresher tick is cached.
func (s *MarketService) Snapshot(symbol string, candles []domain.Candle) (domain.IndicatorSnapshot, error) {
	if len(candles) < minHistory {
		return domain.IndicatorSnapshot{}, fmt.Errorf("snapshot %s: need %d candles, have %d", symbol, minHistory, len(candles))
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	currentPrice := closes[len(closes)-1]
	if tick := s.LatestPrice(symbol); tick > 0 {
		currentPrice = tick
	}

	sma := talib.Sma(closes, smaPeriod)
	rsi := talib.Rsi(closes, rsiPeriod)
	macd, _, _ := talib.Macd(closes, macdFast, macdSlow, macdSignal)

	return domain.IndicatorSnapshot{
		Symbol:       symbol,
		CurrentPrice: currentPrice,
		SMA20:        sma[len(sma)-1],
		RSI:          rsi[len(rsi)-1],
		MACD:         macd[len(macd)-1],
	}, nil
}
