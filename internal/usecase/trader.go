package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/avolkov/paper_trade_bot/internal/domain"
)

// buyHeadroom keeps an auto-sized buy strictly under the position cap so
// float rounding cannot push the cost over it.
const buyHeadroom = 0.995

type TraderConfig struct {
	Symbols        []string
	CandleInterval string
	CandleLimit    int
	AnalysisEvery  time.Duration
	AutoTrade      bool
	MaxConcurrency int
	JournalTimeout time.Duration
}

// SymbolAnalysis is the per-symbol result of one analysis pass. A failed
// symbol carries its error and never blocks the others.
type SymbolAnalysis struct {
	Symbol         string                    `json:"symbol"`
	Price          float64                   `json:"price"`
	Indicators     *domain.IndicatorSnapshot `json:"technical_indicators,omitempty"`
	Forecast       *domain.Forecast          `json:"predictions,omitempty"`
	Recommendation *domain.Recommendation    `json:"trading_decision,omitempty"`
	PositionClosed bool                      `json:"position_closed,omitempty"`
	Bought         bool                      `json:"bought,omitempty"`
	Error          string                    `json:"error,omitempty"`
	Timestamp      time.Time                 `json:"timestamp"`
}

// TraderService glues the collaborators together: it feeds ticks into the
// portfolio engine, runs the periodic analysis pass, and journals every
// executed trade. It owns the monitored-symbol set.
type TraderService struct {
	engine     *PortfolioEngine
	market     *MarketService
	forecaster domain.Forecaster
	evaluator  *SignalEvaluator
	tradeRepo  domain.TradeRepository
	logger     *zap.Logger
	cfg        TraderConfig

	mu      sync.Mutex
	symbols map[string]bool
}

func NewTraderService(
	engine *PortfolioEngine,
	market *MarketService,
	forecaster domain.Forecaster,
	tradeRepo domain.TradeRepository,
	logger *zap.Logger,
	cfg TraderConfig,
) *TraderService {
	if cfg.CandleInterval == "" {
		cfg.CandleInterval = "60"
	}
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = 120
	}
	if cfg.AnalysisEvery <= 0 {
		cfg.AnalysisEvery = time.Minute
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.JournalTimeout <= 0 {
		cfg.JournalTimeout = 5 * time.Second
	}

	s := &TraderService{
		engine:     engine,
		market:     market,
		forecaster: forecaster,
		evaluator:  NewSignalEvaluator(),
		tradeRepo:  tradeRepo,
		logger:     logger,
		cfg:        cfg,
		symbols:    make(map[string]bool),
	}
	for _, symbol := range cfg.Symbols {
		s.symbols[normalizeSymbol(symbol)] = true
	}
	engine.AttachHooks(s.journalTrade, s.journalClose)
	return s
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (s *TraderService) Engine() *PortfolioEngine { return s.engine }

// Symbols returns the monitored set, sorted for stable output.
func (s *TraderService) Symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.symbols))
	for symbol := range s.symbols {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// AddSymbol validates the symbol against market data before monitoring it.
func (s *TraderService) AddSymbol(ctx context.Context, symbol string) error {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("empty symbol")
	}

	s.mu.Lock()
	monitored := s.symbols[symbol]
	s.mu.Unlock()
	if monitored {
		return fmt.Errorf("symbol %s already monitored", symbol)
	}

	if _, err := s.market.CurrentPrice(ctx, symbol); err != nil {
		return fmt.Errorf("symbol %s not tradable: %w", symbol, err)
	}

	s.mu.Lock()
	s.symbols[symbol] = true
	s.mu.Unlock()

	if err := s.market.Subscribe([]string{symbol}); err != nil {
		s.logger.Warn("Failed to subscribe symbol", zap.String("symbol", symbol), zap.Error(err))
	}
	return nil
}

func (s *TraderService) RemoveSymbol(symbol string) bool {
	symbol = normalizeSymbol(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.symbols[symbol] {
		return false
	}
	delete(s.symbols, symbol)
	return true
}

// ProcessTick re-marks any open position for symbol and lets the engine
// run its stop-loss / take-profit check. Called from the tick stream.
func (s *TraderService) ProcessTick(symbol string, price float64) {
	closed, err := s.engine.UpdatePosition(normalizeSymbol(symbol), price)
	if err != nil {
		s.logger.Warn("Rejected tick", zap.String("symbol", symbol), zap.Float64("price", price), zap.Error(err))
		return
	}
	if closed {
		s.logger.Info("Exit rule closed position",
			zap.String("symbol", symbol),
			zap.Float64("price", price))
	}
}

// ExecuteMarketTrade executes a caller-issued trade at the current market
// price and returns the fill price. ok is false when a risk rule blocked it.
func (s *TraderService) ExecuteMarketTrade(ctx context.Context, symbol string, action domain.TradeAction, quantity float64) (ok bool, price float64, err error) {
	symbol = normalizeSymbol(symbol)
	price, err = s.market.CurrentPrice(ctx, symbol)
	if err != nil {
		return false, 0, fmt.Errorf("price for %s: %w", symbol, err)
	}
	ok, err = s.engine.ExecuteTrade(symbol, action, quantity, price)
	return ok, price, err
}

// Run drives the periodic analysis loop until ctx is cancelled.
func (s *TraderService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.AnalysisEvery)
	defer ticker.Stop()

	s.AnalyzeAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.AnalyzeAll(ctx)
		}
	}
}

// AnalyzeAll runs one analysis pass over every monitored symbol,
// concurrently but bounded. Engine calls serialize internally.
func (s *TraderService) AnalyzeAll(ctx context.Context) []SymbolAnalysis {
	symbols := s.Symbols()
	results := make([]SymbolAnalysis, len(symbols))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)
	for i, symbol := range symbols {
		g.Go(func() error {
			results[i] = s.analyzeSymbol(ctx, symbol)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *TraderService) analyzeSymbol(ctx context.Context, symbol string) SymbolAnalysis {
	result := SymbolAnalysis{Symbol: symbol, Timestamp: time.Now()}

	candles, err := s.market.Candles(ctx, symbol, s.cfg.CandleInterval, s.cfg.CandleLimit)
	if err != nil {
		result.Error = err.Error()
		s.logger.Error("Candle fetch failed", zap.String("symbol", symbol), zap.Error(err))
		return result
	}

	snapshot, err := s.market.Snapshot(symbol, candles)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Price = snapshot.CurrentPrice
	result.Indicators = &snapshot

	// Re-mark any open position before deciding on a new one.
	closed, err := s.engine.UpdatePosition(symbol, snapshot.CurrentPrice)
	if err == nil && closed {
		result.PositionClosed = true
		s.logger.Info("Exit rule closed position during analysis",
			zap.String("symbol", symbol),
			zap.Float64("price", snapshot.CurrentPrice))
	}

	forecast, err := s.forecaster.Predict(symbol, candles)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Forecast = &forecast

	recommendation := s.evaluator.Evaluate(forecast.Ensemble, snapshot)
	result.Recommendation = &recommendation

	if s.cfg.AutoTrade && recommendation.Buy {
		result.Bought = s.autoBuy(symbol, snapshot.CurrentPrice, recommendation.Confidence)
	}
	return result
}

// autoBuy opens a position sized to the cap. The engine re-checks every
// risk rule, so a losing race just comes back as a rejection.
func (s *TraderService) autoBuy(symbol string, price, confidence float64) bool {
	if price <= 0 {
		return false
	}
	if _, open := s.engine.Positions()[symbol]; open {
		return false
	}

	budget := s.engine.CashBalance() * s.engine.RiskParams().MaxPositionSize * buyHeadroom
	quantity := budget / price
	if quantity <= 0 {
		return false
	}

	ok, err := s.engine.ExecuteTrade(symbol, domain.ActionBuy, quantity, price)
	if err != nil {
		s.logger.Warn("Auto buy rejected", zap.String("symbol", symbol), zap.Error(err))
		return false
	}
	if ok {
		s.logger.Info("Auto buy executed",
			zap.String("symbol", symbol),
			zap.Float64("quantity", quantity),
			zap.Float64("price", price),
			zap.Float64("confidence", confidence))
	}
	return ok
}

func (s *TraderService) journalTrade(trade domain.Trade) {
	if s.tradeRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JournalTimeout)
	defer cancel()
	if err := s.tradeRepo.SaveTrade(ctx, &trade); err != nil {
		s.logger.Error("Failed to journal trade",
			zap.String("symbol", trade.Symbol),
			zap.String("action", string(trade.Action)),
			zap.Error(err))
	}
}

func (s *TraderService) journalClose(closed domain.ClosedPosition) {
	if s.tradeRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JournalTimeout)
	defer cancel()
	if err := s.tradeRepo.SavePositionHistory(ctx, &closed); err != nil {
		s.logger.Error("Failed to journal closed position",
			zap.String("symbol", closed.Symbol),
			zap.Error(err))
	}
}
