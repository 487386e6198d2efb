package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/mattn/go-sqlite3"
)

// SQLite is the default ledger backend.
type SQLite struct {
	db   *sql.DB
	mu   sync.Mutex // serializes Append
	opts options
}

var _ Ledger = (*SQLite)(nil)

func NewSQLite(path string, opts ...Option) (*SQLite, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps writers from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db, opts: o}, nil
}

func (j *SQLite) StartBalance() float64 { return j.opts.startBalance }

func (j *SQLite) Append(ctx context.Context, e *Entry) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	prev := j.opts.startBalance
	var last float64
	err = tx.QueryRowContext(ctx, `SELECT running_balance FROM trades ORDER BY id DESC LIMIT 1`).Scan(&last)
	switch {
	case err == nil:
		prev = last
	case !errors.Is(err, sql.ErrNoRows):
		return 0, err
	}
	balance := nextBalance(prev, e.PnL)

	res, err := tx.ExecContext(ctx, `
		INSERT INTO trades
		(trade_id, session_id, opened_at, closed_at, direction, entry_price, exit_price,
		 take_profit_price, stop_loss_price, planned_take_profit, planned_stop_loss,
		 pnl, quality, running_balance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TradeID, e.SessionID, e.OpenedAt.UTC(), e.ClosedAt.UTC(), string(e.Direction),
		e.EntryPrice, e.ExitPrice, e.TakeProfitPrice, e.StopLossPrice,
		e.PlannedTakeProfit, e.PlannedStopLoss, e.PnL, e.Quality, balance,
	)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateTrade, e.TradeID)
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	e.ID = id
	e.RunningBalance = balance
	return id, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
