package domain

import "context"

// MarketData supplies price history and live ticks for a symbol.
// Implemented by the exchange adapter; the engine itself never fetches.
type MarketData interface {
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	OnPriceUpdate(callback func(symbol string, price float64))
	Subscribe(symbols []string) error
}

// Forecaster produces a point forecast for the next close from history.
type Forecaster interface {
	Predict(symbol string, candles []Candle) (Forecast, error)
}

// TradeRepository is the durable audit trail of executed trades and
// closed positions.
type TradeRepository interface {
	SaveTrade(ctx context.Context, trade *Trade) error
	ListTrades(ctx context.Context, limit int) ([]*Trade, error)

	SavePositionHistory(ctx context.Context, history *ClosedPosition) error
	ListPositionHistory(ctx context.Context, limit int) ([]*ClosedPosition, error)
}
