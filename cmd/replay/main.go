package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/avolkov/paper_trade_bot/internal/domain"
	"github.com/avolkov/paper_trade_bot/internal/infrastructure/exchange"
	"github.com/avolkov/paper_trade_bot/internal/infrastructure/logger"
	"github.com/avolkov/paper_trade_bot/internal/usecase"
)

// Replays historical candles through a fresh portfolio engine, with the
// signal evaluator driving entries, and prints the resulting P&L.
func main() {
	symbol := flag.String("symbol", "BTCUSDT", "instrument to replay")
	interval := flag.String("interval", "60", "candle interval (bybit notation)")
	limit := flag.Int("limit", 500, "number of candles to fetch")
	balance := flag.Float64("balance", 10000, "starting cash balance")
	warmup := flag.Int("warmup", 40, "candles consumed before trading starts")
	flag.Parse()

	log, err := logger.NewLogger("warn")
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	adapter := exchange.NewBybitAdapter("", "", log)
	market := usecase.NewMarketService(adapter)
	forecaster := usecase.NewEnsembleForecaster()
	evaluator := usecase.NewSignalEvaluator()
	engine := usecase.NewPortfolioEngine(*balance, domain.DefaultRiskParams())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	candles, err := adapter.GetCandles(ctx, *symbol, *interval, *limit)
	if err != nil {
		fmt.Printf("Failed to fetch candles: %v\n", err)
		os.Exit(1)
	}
	if len(candles) <= *warmup {
		fmt.Printf("Not enough candles: have %d, need more than %d\n", len(candles), *warmup)
		os.Exit(1)
	}

	buys, exits := 0, 0
	for i := *warmup; i < len(candles); i++ {
		window := candles[:i+1]
		price := candles[i].Close

		if closed, _ := engine.UpdatePosition(*symbol, price); closed {
			exits++
			continue
		}
		if _, open := engine.Positions()[*symbol]; open {
			continue
		}

		snapshot, err := market.Snapshot(*symbol, window)
		if err != nil {
			continue
		}
		forecast, err := forecaster.Predict(*symbol, window)
		if err != nil {
			continue
		}
		if !evaluator.Evaluate(forecast.Ensemble, snapshot).Buy {
			continue
		}

		quantity := engine.CashBalance() * engine.RiskParams().MaxPositionSize * 0.995 / price
		if ok, _ := engine.ExecuteTrade(*symbol, domain.ActionBuy, quantity, price); ok {
			buys++
		}
	}

	// Mark any leftover position at the final close.
	final := candles[len(candles)-1].Close
	engine.UpdatePosition(*symbol, final)

	totalValue := engine.TotalValue()
	fmt.Printf("Replay %s %s x%d candles\n", *symbol, *interval, len(candles))
	fmt.Printf("  trades: %d buys, %d rule exits, %d total fills\n", buys, exits, len(engine.Trades()))
	fmt.Printf("  cash:   %.2f\n", engine.CashBalance())
	fmt.Printf("  value:  %.2f (%.2f%% return)\n", totalValue, (totalValue-*balance)/(*balance)*100)
}
