// journal/journal.go
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultStartBalance is the balance before the first recorded trade.
const DefaultStartBalance = 60.0

// Direction records which side of the trade the exit landed on.
type Direction string

const (
	TakeProfit Direction = "tp"
	StopLoss   Direction = "sl"
)

// DirectionOf classifies a PnL. A flat trade counts as a stop-loss.
func DirectionOf(pnl float64) Direction {
	if pnl > 0 {
		return TakeProfit
	}
	return StopLoss
}

// Entry is one closed trade. Entries are never updated once appended.
type Entry struct {
	ID        int64     `json:"id"`
	TradeID   string    `json:"trade_id"`
	SessionID string    `json:"session_id"`
	OpenedAt  time.Time `json:"opened_at"`
	ClosedAt  time.Time `json:"closed_at"`
	Direction Direction `json:"direction"`

	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`

	// Set to the exit price on the side that was hit; the other stays nil.
	TakeProfitPrice *float64 `json:"take_profit_price,omitempty"`
	StopLossPrice   *float64 `json:"stop_loss_price,omitempty"`

	// What the user had set on the open trade, if anything.
	PlannedTakeProfit *float64 `json:"planned_take_profit,omitempty"`
	PlannedStopLoss   *float64 `json:"planned_stop_loss,omitempty"`

	PnL            float64 `json:"pnl"`
	Quality        int     `json:"quality"`
	RunningBalance float64 `json:"running_balance"`
}

// Win reports whether the trade made money.
func (e Entry) Win() bool { return e.PnL > 0 }

// ReturnPct is the PnL relative to the entry price, in percent.
func (e Entry) ReturnPct() float64 {
	if e.EntryPrice == 0 {
		return 0
	}
	return e.PnL / e.EntryPrice * 100
}

// PrevBalance is the running balance just before this entry.
func (e Entry) PrevBalance() float64 {
	b, _ := decimal.NewFromFloat(e.RunningBalance).Sub(decimal.NewFromFloat(e.PnL)).Float64()
	return b
}

var (
	ErrDuplicateTrade = errors.New("trade already recorded")
	ErrNotFound       = errors.New("entry not found")
)

// Ledger is the append-only store of closed trades.
type Ledger interface {
	// Append assigns ID and RunningBalance and stores e.
	Append(ctx context.Context, e *Entry) (int64, error)
	ByTradeID(ctx context.Context, tradeID string) (Entry, error)
	// OnDate returns entries closed on day's calendar date, in day's location, by id.
	OnDate(ctx context.Context, day time.Time) ([]Entry, error)
	// Since returns entries closed at or after t, oldest first.
	Since(ctx context.Context, t time.Time) ([]Entry, error)
	// Latest returns up to n entries, newest first.
	Latest(ctx context.Context, n int) ([]Entry, error)
	// ByQuality returns up to limit entries with quality in [min, max], newest first.
	ByQuality(ctx context.Context, min, max, limit int) ([]Entry, error)
	LatestBalance(ctx context.Context) (float64, bool, error)
	All(ctx context.Context) ([]Entry, error)
	StartBalance() float64
	Close() error
}

// Option configures a ledger backend.
type Option func(*options)

type options struct {
	startBalance float64
}

func defaultOptions() options {
	return options{startBalance: DefaultStartBalance}
}

// WithStartBalance sets the balance the first entry builds on.
func WithStartBalance(b float64) Option {
	return func(o *options) { o.startBalance = b }
}

// nextBalance adds pnl to prev in decimal so the prefix sum does not drift.
func nextBalance(prev, pnl float64) float64 {
	b, _ := decimal.NewFromFloat(prev).Add(decimal.NewFromFloat(pnl)).Float64()
	return b
}

// dayBounds returns [start, end) of day's calendar date in day's location.
func dayBounds(day time.Time) (time.Time, time.Time) {
	loc := day.Location()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
