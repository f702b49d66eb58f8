package domain

import "time"

type TradeAction string

const (
	ActionBuy  TradeAction = "buy"
	ActionSell TradeAction = "sell"
)

// Position is an open holding in the paper portfolio. One per symbol.
type Position struct {
	Symbol       string    `json:"symbol"`
	Quantity     float64   `json:"quantity"`
	EntryPrice   float64   `json:"entry_price"`
	CurrentPrice float64   `json:"current_price"`
	OpenedAt     time.Time `json:"opened_at"`
}

// UnrealizedPnL marks the position against the last observed price.
func (p *Position) UnrealizedPnL() float64 {
	return (p.CurrentPrice - p.EntryPrice) * p.Quantity
}

// Trade is an immutable record of an executed buy or sell.
// RealizedPnL is only meaningful on sells.
type Trade struct {
	ID          string      `json:"id"`
	Symbol      string      `json:"symbol"`
	Action      TradeAction `json:"action"`
	Quantity    float64     `json:"quantity"`
	Price       float64     `json:"price"`
	RealizedPnL float64     `json:"realized_pnl"`
	Timestamp   time.Time   `json:"timestamp"`
}

// ClosedPosition is the history record emitted when a position is fully unwound.
type ClosedPosition struct {
	ID          int64     `json:"id"`
	Symbol      string    `json:"symbol"`
	Quantity    float64   `json:"quantity"`
	EntryPrice  float64   `json:"entry_price"`
	ExitPrice   float64   `json:"exit_price"`
	RealizedPnL float64   `json:"realized_pnl"`
	OpenedAt    time.Time `json:"opened_at"`
	ClosedAt    time.Time `json:"closed_at"`
}
