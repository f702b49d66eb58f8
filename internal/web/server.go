package web

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/avolkov/paper_trade_bot/internal/domain"
	"github.com/avolkov/paper_trade_bot/internal/usecase"
)

type Server struct {
	router    *http.ServeMux
	server    *http.Server
	trader    *usecase.TraderService
	tradeRepo domain.TradeRepository
	logger    *zap.Logger
}

func NewServer(
	port int,
	trader *usecase.TraderService,
	tradeRepo domain.TradeRepository,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:    http.NewServeMux(),
		trader:    trader,
		tradeRepo: tradeRepo,
		logger:    logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)

	// Portfolio
	s.router.HandleFunc("GET /portfolio", s.handlePortfolio)

	// Analysis
	s.router.HandleFunc("GET /analysis", s.handleAnalysis)

	// Trades
	s.router.HandleFunc("GET /trades", s.handleTrades)
	s.router.HandleFunc("POST /trade/{symbol}", s.handleExecuteTrade)

	// Monitored symbols
	s.router.HandleFunc("GET /symbols", s.handleListSymbols)
	s.router.HandleFunc("POST /symbols/{symbol}", s.handleAddSymbol)
	s.router.HandleFunc("DELETE /symbols/{symbol}", s.handleRemoveSymbol)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
