package usecase

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/avolkov/paper_trade_bot/internal/domain"
	"github.com/google/uuid"
)

// ErrInvalidArgument marks caller garbage (non-finite or non-positive
// numbers, empty symbol, unknown action) as opposed to a trade that was
// simply blocked by a risk rule.
var ErrInvalidArgument = errors.New("invalid argument")

// PortfolioEngine owns all mutable portfolio state: cash, open positions
// and the trade log. It is the only component allowed to mutate them.
// All methods serialize on a single mutex; the engine never does I/O.
type PortfolioEngine struct {
	mu             sync.Mutex
	cashBalance    float64
	initialBalance float64
	positions      map[string]*domain.Position
	trades         []domain.Trade
	params         domain.RiskParams

	// Daily loss circuit breaker state. dayStart is the portfolio value
	// snapshotted at the first operation of the current UTC day.
	day      string
	dayStart float64

	timeNow   func() time.Time
	tradeHook func(domain.Trade)
	closeHook func(domain.ClosedPosition)
}

type EngineOption func(*PortfolioEngine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *PortfolioEngine) { e.timeNow = now }
}

func NewPortfolioEngine(initialBalance float64, params domain.RiskParams, opts ...EngineOption) *PortfolioEngine {
	e := &PortfolioEngine{
		cashBalance:    initialBalance,
		initialBalance: initialBalance,
		positions:      make(map[string]*domain.Position),
		params:         params,
		timeNow:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func validPositive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ExecuteTrade executes a buy or sell against the portfolio.
// It returns (false, ErrInvalidArgument) when the caller passed garbage,
// (false, nil) when a risk rule blocked the trade, and (true, nil) on
// success. A rejected trade never mutates state.
func (e *PortfolioEngine) ExecuteTrade(symbol string, action domain.TradeAction, quantity, price float64) (bool, error) {
	if symbol == "" || !validPositive(quantity) || !validPositive(price) {
		return false, ErrInvalidArgument
	}
	if action != domain.ActionBuy && action != domain.ActionSell {
		return false, ErrInvalidArgument
	}

	e.mu.Lock()
	ok, trade, closed := e.executeLocked(symbol, action, quantity, price)
	tradeHook, closeHook := e.tradeHook, e.closeHook
	e.mu.Unlock()

	fireHooks(tradeHook, closeHook, trade, closed)
	return ok, nil
}

// AttachHooks registers callbacks invoked after every executed trade and
// after every full close, outside the engine lock. Used by the trader
// service to journal the audit trail.
func (e *PortfolioEngine) AttachHooks(onTrade func(domain.Trade), onClose func(domain.ClosedPosition)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tradeHook = onTrade
	e.closeHook = onClose
}

// executeLocked performs the state transition. Caller holds e.mu.
func (e *PortfolioEngine) executeLocked(symbol string, action domain.TradeAction, quantity, price float64) (bool, *domain.Trade, *domain.ClosedPosition) {
	now := e.timeNow()
	e.rollDayLocked(now)

	switch action {
	case domain.ActionBuy:
		cost := price * quantity
		if cost > e.cashBalance || cost > e.cashBalance*e.params.MaxPositionSize {
			return false, nil, nil
		}
		if _, open := e.positions[symbol]; open {
			// Averaging into an open position is not supported;
			// the caller must close first.
			return false, nil, nil
		}
		if e.dailyLossBreachedLocked() {
			return false, nil, nil
		}
		e.cashBalance -= cost
		e.positions[symbol] = &domain.Position{
			Symbol:       symbol,
			Quantity:     quantity,
			EntryPrice:   price,
			CurrentPrice: price,
			OpenedAt:     now,
		}
		trade := e.appendTradeLocked(symbol, domain.ActionBuy, quantity, price, 0, now)
		return true, trade, nil

	case domain.ActionSell:
		position, open := e.positions[symbol]
		if !open {
			return false, nil, nil
		}
		// A sell can never release more than is held.
		if quantity > position.Quantity {
			quantity = position.Quantity
		}
		e.cashBalance += price * quantity
		realized := (price - position.EntryPrice) * quantity

		var closed *domain.ClosedPosition
		if quantity >= position.Quantity {
			closed = &domain.ClosedPosition{
				Symbol:      symbol,
				Quantity:    position.Quantity,
				EntryPrice:  position.EntryPrice,
				ExitPrice:   price,
				RealizedPnL: realized,
				OpenedAt:    position.OpenedAt,
				ClosedAt:    now,
			}
			delete(e.positions, symbol)
		} else {
			position.Quantity -= quantity
		}
		trade := e.appendTradeLocked(symbol, domain.ActionSell, quantity, price, realized, now)
		return true, trade, closed
	}
	return false, nil, nil
}

// UpdatePosition marks an open position to the given price and closes it
// in full when the stop-loss or take-profit threshold is crossed. It
// returns true only when an exit was triggered and executed.
func (e *PortfolioEngine) UpdatePosition(symbol string, markPrice float64) (bool, error) {
	if symbol == "" || !validPositive(markPrice) {
		return false, ErrInvalidArgument
	}

	e.mu.Lock()
	position, open := e.positions[symbol]
	if !open {
		e.mu.Unlock()
		return false, nil
	}
	position.CurrentPrice = markPrice

	priceChange := (markPrice - position.EntryPrice) / position.EntryPrice
	if priceChange > -e.params.StopLossPct && priceChange < e.params.TakeProfitPct {
		e.mu.Unlock()
		return false, nil
	}
	ok, trade, closed := e.executeLocked(symbol, domain.ActionSell, position.Quantity, markPrice)
	tradeHook, closeHook := e.tradeHook, e.closeHook
	e.mu.Unlock()

	fireHooks(tradeHook, closeHook, trade, closed)
	return ok, nil
}

func (e *PortfolioEngine) appendTradeLocked(symbol string, action domain.TradeAction, quantity, price, realized float64, now time.Time) *domain.Trade {
	trade := domain.Trade{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Action:      action,
		Quantity:    quantity,
		Price:       price,
		RealizedPnL: realized,
		Timestamp:   now,
	}
	e.trades = append(e.trades, trade)
	return &trade
}

func fireHooks(onTrade func(domain.Trade), onClose func(domain.ClosedPosition), trade *domain.Trade, closed *domain.ClosedPosition) {
	if trade != nil && onTrade != nil {
		onTrade(*trade)
	}
	if closed != nil && onClose != nil {
		onClose(*closed)
	}
}

// rollDayLocked resets the daily-loss baseline on the first operation of
// each UTC day.
func (e *PortfolioEngine) rollDayLocked(now time.Time) {
	day := now.UTC().Format("2006-01-02")
	if day != e.day {
		e.day = day
		e.dayStart = e.totalValueLocked()
	}
}

// dailyLossBreachedLocked reports whether realized plus unrealized losses
// within the current day have reached the MaxDailyLoss fraction. While
// breached, new buys are rejected; sells and exits always pass.
func (e *PortfolioEngine) dailyLossBreachedLocked() bool {
	if e.params.MaxDailyLoss <= 0 || e.dayStart <= 0 {
		return false
	}
	loss := (e.dayStart - e.totalValueLocked()) / e.dayStart
	return loss >= e.params.MaxDailyLoss
}

func (e *PortfolioEngine) totalValueLocked() float64 {
	total := e.cashBalance
	for _, position := range e.positions {
		total += position.Quantity * position.CurrentPrice
	}
	return total
}

// TotalValue is free cash plus every open position marked at its last
// observed price. This is the only portfolio-value figure.
func (e *PortfolioEngine) TotalValue() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalValueLocked()
}

func (e *PortfolioEngine) CashBalance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cashBalance
}

func (e *PortfolioEngine) InitialBalance() float64 {
	return e.initialBalance
}

func (e *PortfolioEngine) RiskParams() domain.RiskParams {
	return e.params
}

// Positions returns a snapshot copy of the open positions.
func (e *PortfolioEngine) Positions() map[string]domain.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	snapshot := make(map[string]domain.Position, len(e.positions))
	for symbol, position := range e.positions {
		snapshot[symbol] = *position
	}
	return snapshot
}

// Trades returns a snapshot copy of the trade log in append order.
func (e *PortfolioEngine) Trades() []domain.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	snapshot := make([]domain.Trade, len(e.trades))
	copy(snapshot, e.trades)
	return snapshot
}
