package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/avolkov/paper_trade_bot/internal/domain"
	"github.com/avolkov/paper_trade_bot/internal/infrastructure/exchange"
	"github.com/avolkov/paper_trade_bot/internal/infrastructure/logger"
	"github.com/avolkov/paper_trade_bot/internal/infrastructure/storage"
	"github.com/avolkov/paper_trade_bot/internal/usecase"
	"github.com/avolkov/paper_trade_bot/internal/web"
)

type Config struct {
	Exchange struct {
		RESTEndpoint string `yaml:"rest_endpoint"`
		WSEndpoint   string `yaml:"ws_endpoint"`
	} `yaml:"exchange"`
	Symbols   []string `yaml:"symbols"`
	Portfolio struct {
		InitialBalance float64           `yaml:"initial_balance"`
		Risk           domain.RiskParams `yaml:"risk"`
	} `yaml:"portfolio"`
	Trading struct {
		AutoTrade       bool   `yaml:"auto_trade"`
		CandleInterval  string `yaml:"candle_interval"`
		CandleLimit     int    `yaml:"candle_limit"`
		AnalysisEveryMs int    `yaml:"analysis_every_ms"`
		MaxConcurrency  int    `yaml:"max_concurrency"`
	} `yaml:"trading"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := &Config{}
	cfg.Portfolio.InitialBalance = 10000
	cfg.Portfolio.Risk = domain.DefaultRiskParams()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	configPath := "config/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	adapter := exchange.NewBybitAdapter(cfg.Exchange.RESTEndpoint, cfg.Exchange.WSEndpoint, log)
	market := usecase.NewMarketService(adapter)
	forecaster := usecase.NewEnsembleForecaster()

	engine := usecase.NewPortfolioEngine(cfg.Portfolio.InitialBalance, cfg.Portfolio.Risk)

	trader := usecase.NewTraderService(engine, market, forecaster, store, log, usecase.TraderConfig{
		Symbols:        cfg.Symbols,
		CandleInterval: cfg.Trading.CandleInterval,
		CandleLimit:    cfg.Trading.CandleLimit,
		AnalysisEvery:  time.Duration(cfg.Trading.AnalysisEveryMs) * time.Millisecond,
		AutoTrade:      cfg.Trading.AutoTrade,
		MaxConcurrency: cfg.Trading.MaxConcurrency,
	})

	// Every live tick re-marks the matching position and runs the
	// stop-loss / take-profit check.
	adapter.OnPriceUpdate(trader.ProcessTick)
	if err := market.Subscribe(trader.Symbols()); err != nil {
		log.Error("Failed to subscribe tick stream", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	go trader.Run(ctx)

	server := web.NewServer(cfg.Server.Port, trader, store, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Web server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown error", zap.Error(err))
	}
}
