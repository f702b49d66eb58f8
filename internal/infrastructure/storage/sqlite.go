package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/avolkov/paper_trade_bot/internal/domain"
)

// SQLiteStore is the durable trade journal. The engine's in-memory log
// stays the source of truth; this is the audit trail that survives
// restarts.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			action TEXT NOT NULL,
			quantity REAL NOT NULL,
			price REAL NOT NULL,
			realized_pnl REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);`,
		`CREATE TABLE IF NOT EXISTS position_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			quantity REAL NOT NULL,
			entry_price REAL NOT NULL,
			exit_price REAL NOT NULL,
			realized_pnl REAL NOT NULL,
			opened_at DATETIME NOT NULL,
			closed_at DATETIME NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveTrade(ctx context.Context, trade *domain.Trade) error {
	query := `INSERT INTO trades (id, symbol, action, quantity, price, realized_pnl, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		trade.ID, trade.Symbol, string(trade.Action), trade.Quantity, trade.Price, trade.RealizedPnL, trade.Timestamp)
	return err
}

func (s *SQLiteStore) ListTrades(ctx context.Context, limit int) ([]*domain.Trade, error) {
	query := `SELECT id, symbol, action, quantity, price, realized_pnl, created_at
			  FROM trades ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		var action string
		if err := rows.Scan(&t.ID, &t.Symbol, &action, &t.Quantity, &t.Price, &t.RealizedPnL, &t.Timestamp); err != nil {
			return nil, err
		}
		t.Action = domain.TradeAction(action)
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}

func (s *SQLiteStore) SavePositionHistory(ctx context.Context, history *domain.ClosedPosition) error {
	query := `INSERT INTO position_history (symbol, quantity, entry_price, exit_price, realized_pnl, opened_at, closed_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		history.Symbol, history.Quantity, history.EntryPrice, history.ExitPrice,
		history.RealizedPnL, history.OpenedAt, history.ClosedAt)
	return err
}

func (s *SQLiteStore) ListPositionHistory(ctx context.Context, limit int) ([]*domain.ClosedPosition, error) {
	query := `SELECT id, symbol, quantity, entry_price, exit_price, realized_pnl, opened_at, closed_at
			  FROM position_history ORDER BY closed_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*domain.ClosedPosition
	for rows.Next() {
		var h domain.ClosedPosition
		if err := rows.Scan(&h.ID, &h.Symbol, &h.Quantity, &h.EntryPrice, &h.ExitPrice, &h.RealizedPnL, &h.OpenedAt, &h.ClosedAt); err != nil {
			return nil, err
		}
		history = append(history, &h)
	}
	return history, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
