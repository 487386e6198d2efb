package trade

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/pkg/id"
	"github.com/rustyeddy/tradejournal/pkg/logging"
	"github.com/rustyeddy/tradejournal/session"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Desk runs the open-trade state machine for every session:
// NONE -> OPEN -> (CLOSED | CANCELLED).
type Desk struct {
	sessions session.Register
	ledger   journal.Ledger
	log      *zap.Logger

	now   func() time.Time
	newID func(time.Time) string

	locks keyedMutex
}

// Option configures a Desk.
type Option func(*Desk)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Desk) { d.now = now }
}

// WithIDs replaces the trade id generator.
func WithIDs(gen func(time.Time) string) Option {
	return func(d *Desk) { d.newID = gen }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Desk) { d.log = logging.OrNop(l) }
}

func NewDesk(sessions session.Register, ledger journal.Ledger, opts ...Option) *Desk {
	d := &Desk{
		sessions: sessions,
		ledger:   ledger,
		log:      zap.NewNop(),
		now:      time.Now,
		newID:    id.At,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}

// Open starts a trade for the session. An already open trade is never
// overwritten.
func (d *Desk) Open(ctx context.Context, sessionID string, entry float64) (session.OpenTrade, error) {
	if !validPrice(entry) {
		return session.OpenTrade{}, ErrInvalidPrice
	}
	unlock := d.locks.lock(sessionID)
	defer unlock()

	cur, ok, err := d.sessions.Get(sessionID)
	if err != nil {
		return session.OpenTrade{}, fmt.Errorf("load session: %w", err)
	}
	if ok {
		return cur, ErrAlreadyOpen
	}

	now := d.now().UTC()
	t := session.OpenTrade{
		TradeID:    d.newID(now),
		SessionID:  sessionID,
		EntryPrice: entry,
		OpenedAt:   now,
	}
	if err := d.sessions.Put(t); err != nil {
		return session.OpenTrade{}, fmt.Errorf("save session: %w", err)
	}

	d.log.Info("trade_opened",
		zap.String("session", sessionID),
		zap.String("trade_id", t.TradeID),
		zap.Float64("entry", entry),
	)
	return t, nil
}

// Status returns the session's open trade.
func (d *Desk) Status(ctx context.Context, sessionID string) (session.OpenTrade, error) {
	t, ok, err := d.sessions.Get(sessionID)
	if err != nil {
		return session.OpenTrade{}, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return session.OpenTrade{}, ErrNoOpenTrade
	}
	return t, nil
}

func (d *Desk) SetTakeProfit(ctx context.Context, sessionID string, price float64) (session.OpenTrade, error) {
	if !validPrice(price) {
		return session.OpenTrade{}, ErrInvalidPrice
	}
	return d.update(sessionID, "take_profit_set", func(t *session.OpenTrade) {
		t.TakeProfit = &price
	})
}

func (d *Desk) SetStopLoss(ctx context.Context, sessionID string, price float64) (session.OpenTrade, error) {
	if !validPrice(price) {
		return session.OpenTrade{}, ErrInvalidPrice
	}
	return d.update(sessionID, "stop_loss_set", func(t *session.OpenTrade) {
		t.StopLoss = &price
	})
}

func (d *Desk) SetQuality(ctx context.Context, sessionID string, pct int) (session.OpenTrade, error) {
	if pct < 0 || pct > 100 {
		return session.OpenTrade{}, ErrOutOfRange
	}
	return d.update(sessionID, "quality_set", func(t *session.OpenTrade) {
		t.Quality = &pct
	})
}

func (d *Desk) update(sessionID, event string, mutate func(*session.OpenTrade)) (session.OpenTrade, error) {
	unlock := d.locks.lock(sessionID)
	defer unlock()

	t, ok, err := d.sessions.Get(sessionID)
	if err != nil {
		return session.OpenTrade{}, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return session.OpenTrade{}, ErrNoOpenTrade
	}

	mutate(&t)
	if err := d.sessions.Put(t); err != nil {
		return session.OpenTrade{}, fmt.Errorf("save session: %w", err)
	}

	d.log.Info(event, zap.String("session", sessionID), zap.String("trade_id", t.TradeID))
	return t, nil
}

// Close records the trade in the ledger and clears the session.
//
// The ledger append is keyed by trade id. If a previous Close appended
// but died before clearing the session, retrying returns the recorded
// entry and finishes the clear instead of appending twice.
func (d *Desk) Close(ctx context.Context, sessionID string, exit float64) (journal.Entry, error) {
	if !validPrice(exit) {
		return journal.Entry{}, ErrInvalidPrice
	}
	unlock := d.locks.lock(sessionID)
	defer unlock()

	t, ok, err := d.sessions.Get(sessionID)
	if err != nil {
		return journal.Entry{}, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return journal.Entry{}, ErrNoOpenTrade
	}

	recorded, err := d.ledger.ByTradeID(ctx, t.TradeID)
	switch {
	case err == nil:
		d.log.Warn("trade_close_resumed",
			zap.String("session", sessionID),
			zap.String("trade_id", t.TradeID),
			zap.Int64("ledger_id", recorded.ID),
		)
		if err := d.sessions.Delete(sessionID); err != nil {
			return journal.Entry{}, fmt.Errorf("clear session: %w", err)
		}
		return recorded, nil
	case !errors.Is(err, journal.ErrNotFound):
		return journal.Entry{}, fmt.Errorf("look up trade: %w", err)
	}

	e := settle(t, exit, d.now().UTC())
	if _, err := d.ledger.Append(ctx, &e); err != nil {
		return journal.Entry{}, fmt.Errorf("append ledger: %w", err)
	}
	if err := d.sessions.Delete(sessionID); err != nil {
		return journal.Entry{}, fmt.Errorf("clear session: %w", err)
	}

	d.log.Info("trade_closed",
		zap.String("session", sessionID),
		zap.String("trade_id", e.TradeID),
		zap.Int64("ledger_id", e.ID),
		zap.String("direction", string(e.Direction)),
		zap.Float64("pnl", e.PnL),
		zap.Float64("balance", e.RunningBalance),
	)
	return e, nil
}

// settle turns an open trade into the ledger entry for closing at exit.
// A flat close is a stop-loss and its exit goes in StopLossPrice.
func settle(t session.OpenTrade, exit float64, at time.Time) journal.Entry {
	pnl, _ := decimal.NewFromFloat(exit).Sub(decimal.NewFromFloat(t.EntryPrice)).Float64()

	e := journal.Entry{
		TradeID:           t.TradeID,
		SessionID:         t.SessionID,
		OpenedAt:          t.OpenedAt,
		ClosedAt:          at,
		Direction:         journal.DirectionOf(pnl),
		EntryPrice:        t.EntryPrice,
		ExitPrice:         exit,
		PlannedTakeProfit: t.TakeProfit,
		PlannedStopLoss:   t.StopLoss,
		PnL:               pnl,
		Quality:           t.QualityOrZero(),
	}
	x := exit
	if e.Direction == journal.TakeProfit {
		e.TakeProfitPrice = &x
	} else {
		e.StopLossPrice = &x
	}
	return e
}

// Cancel discards the session's open trade without touching the ledger.
func (d *Desk) Cancel(ctx context.Context, sessionID string) (session.OpenTrade, error) {
	unlock := d.locks.lock(sessionID)
	defer unlock()

	t, ok, err := d.sessions.Get(sessionID)
	if err != nil {
		return session.OpenTrade{}, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return session.OpenTrade{}, ErrNoOpenTrade
	}
	if err := d.sessions.Delete(sessionID); err != nil {
		return session.OpenTrade{}, fmt.Errorf("clear session: %w", err)
	}

	d.log.Info("trade_cancelled", zap.String("session", sessionID), zap.String("trade_id", t.TradeID))
	return t, nil
}

// keyedMutex hands out one mutex per key and forgets it when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]*refMutex{}
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
