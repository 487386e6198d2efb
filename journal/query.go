package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// rowScanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e   Entry
		dir string
	)
	err := row.Scan(
		&e.ID,
		&e.TradeID,
		&e.SessionID,
		&e.OpenedAt,
		&e.ClosedAt,
		&dir,
		&e.EntryPrice,
		&e.ExitPrice,
		&e.TakeProfitPrice,
		&e.StopLossPrice,
		&e.PlannedTakeProfit,
		&e.PlannedStopLoss,
		&e.PnL,
		&e.Quality,
		&e.RunningBalance,
	)
	if err != nil {
		return Entry{}, err
	}
	e.Direction = Direction(dir)
	e.OpenedAt = e.OpenedAt.UTC()
	e.ClosedAt = e.ClosedAt.UTC()
	return e, nil
}

func (j *SQLite) list(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ByTradeID returns the entry recorded for a trade id.
func (j *SQLite) ByTradeID(ctx context.Context, tradeID string) (Entry, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM trades WHERE trade_id = ?`, tradeID)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
		}
		return Entry{}, err
	}
	return e, nil
}

// ClosedBetween returns entries whose closed_at is within [start, end), by id.
func (j *SQLite) ClosedBetween(ctx context.Context, start, end time.Time) ([]Entry, error) {
	return j.list(ctx, `
		SELECT `+entryColumns+`
		FROM trades
		WHERE closed_at >= ? AND closed_at < ?
		ORDER BY id ASC`, start.UTC(), end.UTC())
}

func (j *SQLite) OnDate(ctx context.Context, day time.Time) ([]Entry, error) {
	start, end := dayBounds(day)
	return j.ClosedBetween(ctx, start, end)
}

func (j *SQLite) Since(ctx context.Context, t time.Time) ([]Entry, error) {
	return j.list(ctx, `
		SELECT `+entryColumns+`
		FROM trades
		WHERE closed_at >= ?
		ORDER BY closed_at ASC, id ASC`, t.UTC())
}

func (j *SQLite) Latest(ctx context.Context, n int) ([]Entry, error) {
	return j.list(ctx, `
		SELECT `+entryColumns+`
		FROM trades
		ORDER BY id DESC
		LIMIT ?`, n)
}

func (j *SQLite) ByQuality(ctx context.Context, min, max, limit int) ([]Entry, error) {
	return j.list(ctx, `
		SELECT `+entryColumns+`
		FROM trades
		WHERE quality BETWEEN ? AND ?
		ORDER BY closed_at DESC, id DESC
		LIMIT ?`, min, max, limit)
}

func (j *SQLite) All(ctx context.Context) ([]Entry, error) {
	return j.list(ctx, `SELECT `+entryColumns+` FROM trades ORDER BY id ASC`)
}

func (j *SQLite) LatestBalance(ctx context.Context) (float64, bool, error) {
	var b float64
	err := j.db.QueryRowContext(ctx, `SELECT running_balance FROM trades ORDER BY id DESC LIMIT 1`).Scan(&b)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return b, true, nil
}
