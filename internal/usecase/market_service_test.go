package usecase_test

import (
	"context"
	"math"
	"testing"

	"github.com/avolkov/paper_trade_bot/internal/usecase"
)

func TestMarketService_TickCache(t *testing.T) {
	mock := NewMockMarketData()
	service := usecase.NewMarketService(mock)

	if mock.PriceCb == nil {
		t.Fatal("MarketService did not register a tick callback")
	}

	if price := service.LatestPrice("BTCUSDT"); price != 0 {
		t.Errorf("price before any tick = %f, want 0", price)
	}

	mock.PriceCb("BTCUSDT", 50000)
	mock.PriceCb("BTCUSDT", 50100)

	if price := service.LatestPrice("BTCUSDT"); price != 50100 {
		t.Errorf("cached price = %f, want 50100", price)
	}

	// CurrentPrice prefers the live tick over REST.
	mock.Prices["BTCUSDT"] = 49000
	price, err := service.CurrentPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("CurrentPrice failed: %v", err)
	}
	if price != 50100 {
		t.Errorf("CurrentPrice = %f, want cached 50100", price)
	}

	// Without a tick it falls back to REST.
	mock.Prices["ETHUSDT"] = 3000
	price, err = service.CurrentPrice(context.Background(), "ETHUSDT")
	if err != nil {
		t.Fatalf("CurrentPrice fallback failed: %v", err)
	}
	if price != 3000 {
		t.Errorf("CurrentPrice fallback = %f, want 3000", price)
	}
}

func TestMarketService_SnapshotConstantSeries(t *testing.T) {
	mock := NewMockMarketData()
	service := usecase.NewMarketService(mock)

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}

	snapshot, err := service.Snapshot("BTCUSDT", candlesFromCloses(closes))
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if snapshot.CurrentPrice != 100 {
		t.Errorf("current price = %f, want last close 100", snapshot.CurrentPrice)
	}
	if math.Abs(snapshot.SMA20-100) > 1e-9 {
		t.Errorf("SMA20 = %f, want 100", snapshot.SMA20)
	}
	if math.Abs(snapshot.MACD) > 1e-9 {
		t.Errorf("MACD of constant series = %f, want 0", snapshot.MACD)
	}
	if snapshot.RSI < 0 || snapshot.RSI > 100 {
		t.Errorf("RSI = %f, out of [0,100]", snapshot.RSI)
	}
}

func TestMarketService_SnapshotRisingSeries(t *testing.T) {
	mock := NewMockMarketData()
	service := usecase.NewMarketService(mock)

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	snapshot, err := service.Snapshot("BTCUSDT", candlesFromCloses(closes))
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if snapshot.SMA20 >= snapshot.CurrentPrice {
		t.Errorf("SMA20 %f should trail the last close %f in an uptrend", snapshot.SMA20, snapshot.CurrentPrice)
	}
	if snapshot.MACD <= 0 {
		t.Errorf("MACD = %f, want positive momentum", snapshot.MACD)
	}
	if snapshot.RSI <= 50 || snapshot.RSI > 100 {
		t.Errorf("RSI = %f, want overbought reading in a pure uptrend", snapshot.RSI)
	}
}

func TestMarketService_SnapshotPrefersLiveTick(t *testing.T) {
	mock := NewMockMarketData()
	service := usecase.NewMarketService(mock)

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	mock.PriceCb("BTCUSDT", 105)

	snapshot, err := service.Snapshot("BTCUSDT", candlesFromCloses(closes))
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snapshot.CurrentPrice != 105 {
		t.Errorf("current price = %f, want live tick 105", snapshot.CurrentPrice)
	}
}

func TestMarketService_SnapshotShortHistory(t *testing.T) {
	mock := NewMockMarketData()
	service := usecase.NewMarketService(mock)

	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 100
	}

	if _, err := service.Snapshot("BTCUSDT", candlesFromCloses(closes)); err == nil {
		t.Error("expected error for short history")
	}
}
