package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/avolkov/paper_trade_bot/internal/domain"
	"github.com/avolkov/paper_trade_bot/internal/usecase"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	engine := s.trader.Engine()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":            "Trading Bot Active",
		"total_value":       engine.TotalValue(),
		"positions":         engine.Positions(),
		"monitored_symbols": s.trader.Symbols(),
	})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	engine := s.trader.Engine()
	totalValue := engine.TotalValue()
	initial := engine.InitialBalance()

	trades := engine.Trades()
	if len(trades) > 10 {
		trades = trades[len(trades)-10:]
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"total_value":  totalValue,
		"cash_balance": engine.CashBalance(),
		"positions":    engine.Positions(),
		"trades":       trades,
		"performance": map[string]any{
			"initial_balance": initial,
			"current_total":   totalValue,
			"return_pct":      (totalValue - initial) / initial * 100,
		},
	})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	results := s.trader.AnalyzeAll(r.Context())
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	trades, err := s.tradeRepo.ListTrades(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list trades", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	s.writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleExecuteTrade(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	action := domain.TradeAction(r.URL.Query().Get("action"))
	quantity, err := strconv.ParseFloat(r.URL.Query().Get("quantity"), 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid quantity")
		return
	}

	ok, price, err := s.trader.ExecuteMarketTrade(r.Context(), symbol, action, quantity)
	if errors.Is(err, usecase.ErrInvalidArgument) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("Trade failed", zap.String("symbol", symbol), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	engine := s.trader.Engine()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": ok,
		"trade_details": map[string]any{
			"symbol":    symbol,
			"action":    action,
			"quantity":  quantity,
			"price":     price,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
		"portfolio_update": map[string]any{
			"new_balance": engine.CashBalance(),
			"positions":   engine.Positions(),
		},
	})
}

func (s *Server) handleListSymbols(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"monitored_symbols": s.trader.Symbols(),
	})
}

func (s *Server) handleAddSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if err := s.trader.AddSymbol(r.Context(), symbol); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":           "added " + symbol,
		"monitored_symbols": s.trader.Symbols(),
	})
}

func (s *Server) handleRemoveSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if !s.trader.RemoveSymbol(symbol) {
		s.writeError(w, http.StatusNotFound, "symbol not monitored")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":           "removed " + symbol,
		"monitored_symbols": s.trader.Symbols(),
	})
}
