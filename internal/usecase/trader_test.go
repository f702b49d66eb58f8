package usecase_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/avolkov/paper_trade_bot/internal/domain"
	"github.com/avolkov/paper_trade_bot/internal/usecase"
)

func newTrader(t *testing.T, engine *usecase.PortfolioEngine, mock *MockMarketData, forecaster domain.Forecaster, repo domain.TradeRepository, cfg usecase.TraderConfig) *usecase.TraderService {
	t.Helper()
	market := usecase.NewMarketService(mock)
	return usecase.NewTraderService(engine, market, forecaster, repo, zap.NewNop(), cfg)
}

func TestProcessTick_StopLossIsJournaled(t *testing.T) {
	engine := newEngine(10000)
	mock := NewMockMarketData()
	repo := &MockTradeRepo{}
	trader := newTrader(t, engine, mock, &MockForecaster{Factor: 1}, repo, usecase.TraderConfig{})

	mustExecute(t, engine, "BTCUSDT", domain.ActionBuy, 2, 100)
	if repo.TradeCount() != 1 {
		t.Fatalf("journaled trades = %d, want the opening buy", repo.TradeCount())
	}

	trader.ProcessTick("BTCUSDT", 97)

	if _, open := engine.Positions()["BTCUSDT"]; open {
		t.Fatal("stop loss tick did not close the position")
	}
	if repo.TradeCount() != 2 {
		t.Fatalf("journaled trades = %d, want buy and exit sell", repo.TradeCount())
	}
	if len(repo.Closes) != 1 {
		t.Fatalf("journaled closes = %d, want 1", len(repo.Closes))
	}

	closed := repo.Closes[0]
	if closed.Symbol != "BTCUSDT" || closed.ExitPrice != 97 {
		t.Errorf("closed position journaled wrong: %+v", closed)
	}
	if closed.RealizedPnL != -6 {
		t.Errorf("realized = %f, want -6", closed.RealizedPnL)
	}
}

func TestProcessTick_IgnoresGarbagePrice(t *testing.T) {
	engine := newEngine(10000)
	mock := NewMockMarketData()
	trader := newTrader(t, engine, mock, &MockForecaster{Factor: 1}, &MockTradeRepo{}, usecase.TraderConfig{})

	mustExecute(t, engine, "BTCUSDT", domain.ActionBuy, 2, 100)
	trader.ProcessTick("BTCUSDT", -5)

	if position := engine.Positions()["BTCUSDT"]; position.CurrentPrice != 100 {
		t.Errorf("garbage tick mutated mark: %f", position.CurrentPrice)
	}
}

func TestAnalyzeAll_FailedSymbolDoesNotBlockOthers(t *testing.T) {
	engine := newEngine(10000)
	mock := NewMockMarketData()

	good := make([]float64, 60)
	for i := range good {
		good[i] = 100
	}
	mock.Candles["GOODUSDT"] = candlesFromCloses(good)
	mock.CandleErr["BADUSDT"] = errors.New("exchange unavailable")

	trader := newTrader(t, engine, mock, &MockForecaster{Factor: 1}, &MockTradeRepo{}, usecase.TraderConfig{
		Symbols: []string{"GOODUSDT", "BADUSDT"},
	})

	results := trader.AnalyzeAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	byName := make(map[string]usecase.SymbolAnalysis, len(results))
	for _, r := range results {
		byName[r.Symbol] = r
	}

	bad := byName["BADUSDT"]
	if bad.Error == "" {
		t.Error("failed symbol carries no error")
	}
	if bad.Recommendation != nil {
		t.Error("failed symbol produced a recommendation")
	}

	good2 := byName["GOODUSDT"]
	if good2.Error != "" {
		t.Errorf("healthy symbol failed: %s", good2.Error)
	}
	if good2.Recommendation == nil || good2.Forecast == nil || good2.Indicators == nil {
		t.Error("healthy symbol analysis incomplete")
	}
}

func TestAnalyzeAll_AutoBuy(t *testing.T) {
	engine := newEngine(10000)
	mock := NewMockMarketData()
	repo := &MockTradeRepo{}

	rising := make([]float64, 60)
	for i := range rising {
		rising[i] = 100 + float64(i)*0.5
	}
	mock.Candles["BTCUSDT"] = candlesFromCloses(rising)

	// Two technical signals fire in a pure uptrend (price above SMA20,
	// positive MACD; RSI is pegged overbought), so a 70% forecast upside
	// is what pushes confidence past 0.6.
	trader := newTrader(t, engine, mock, &MockForecaster{Factor: 1.7}, repo, usecase.TraderConfig{
		Symbols:   []string{"BTCUSDT"},
		AutoTrade: true,
	})

	results := trader.AnalyzeAll(context.Background())
	if len(results) != 1 || results[0].Error != "" {
		t.Fatalf("analysis failed: %+v", results)
	}
	if !results[0].Recommendation.Buy {
		t.Fatalf("expected a buy recommendation, confidence %f", results[0].Recommendation.Confidence)
	}
	if !results[0].Bought {
		t.Fatal("auto trade did not buy")
	}

	position, open := engine.Positions()["BTCUSDT"]
	if !open {
		t.Fatal("no position after auto buy")
	}
	cost := position.Quantity * position.EntryPrice
	if maxCost := 10000 * 0.2; cost > maxCost {
		t.Errorf("auto buy cost %f exceeds the sizing cap %f", cost, maxCost)
	}
	if repo.TradeCount() != 1 {
		t.Errorf("journaled trades = %d, want 1", repo.TradeCount())
	}

	// A second pass must not stack another entry on the open position.
	results = trader.AnalyzeAll(context.Background())
	if results[0].Bought {
		t.Error("auto trade re-bought an open position")
	}
}

func TestAddRemoveSymbol(t *testing.T) {
	engine := newEngine(1000)
	mock := NewMockMarketData()
	mock.Prices["SOLUSDT"] = 150

	trader := newTrader(t, engine, mock, &MockForecaster{Factor: 1}, &MockTradeRepo{}, usecase.TraderConfig{
		Symbols: []string{"BTCUSDT"},
	})

	if err := trader.AddSymbol(context.Background(), "solusdt"); err != nil {
		t.Fatalf("AddSymbol failed: %v", err)
	}
	if err := trader.AddSymbol(context.Background(), "SOLUSDT"); err == nil {
		t.Error("duplicate AddSymbol succeeded")
	}
	if err := trader.AddSymbol(context.Background(), "NOPEUSDT"); err == nil {
		t.Error("unknown symbol accepted")
	}

	symbols := trader.Symbols()
	if len(symbols) != 2 || symbols[0] != "BTCUSDT" || symbols[1] != "SOLUSDT" {
		t.Errorf("symbols = %v", symbols)
	}

	if !trader.RemoveSymbol("btcusdt") {
		t.Error("RemoveSymbol failed for monitored symbol")
	}
	if trader.RemoveSymbol("BTCUSDT") {
		t.Error("RemoveSymbol succeeded twice")
	}
}
