package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/tradejournal/journal"
)

// Limits bounds the list based reports.
type Limits struct {
	QualityLimit   int
	QualityPreview int
	SignalsLimit   int
	WeekWindow     time.Duration
}

var DefaultLimits = Limits{
	QualityLimit:   10,
	QualityPreview: 5,
	SignalsLimit:   5,
	WeekWindow:     7 * 24 * time.Hour,
}

// Engine answers statistics queries against a ledger.
type Engine struct {
	ledger journal.Ledger
	limits Limits
	loc    *time.Location
}

type Option func(*Engine)

// WithLimits overrides DefaultLimits. Zero fields keep their default.
func WithLimits(l Limits) Option {
	return func(e *Engine) {
		if l.QualityLimit > 0 {
			e.limits.QualityLimit = l.QualityLimit
		}
		if l.QualityPreview > 0 {
			e.limits.QualityPreview = l.QualityPreview
		}
		if l.SignalsLimit > 0 {
			e.limits.SignalsLimit = l.SignalsLimit
		}
		if l.WeekWindow > 0 {
			e.limits.WeekWindow = l.WeekWindow
		}
	}
}

// WithLocation sets the time zone calendar days are taken in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func NewEngine(ledger journal.Ledger, opts ...Option) *Engine {
	e := &Engine{ledger: ledger, limits: DefaultLimits, loc: time.Local}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Limits() Limits { return e.limits }

// Daily reports on the calendar day containing day.
func (e *Engine) Daily(ctx context.Context, day time.Time) (Daily, error) {
	day = day.In(e.loc)
	entries, err := e.ledger.OnDate(ctx, day)
	if err != nil {
		return Daily{}, fmt.Errorf("daily stats: %w", err)
	}
	return ComputeDaily(day.Format("2006-01-02"), entries), nil
}

// Weekly reports on the trailing window ending at now.
func (e *Engine) Weekly(ctx context.Context, now time.Time) (Weekly, error) {
	since := now.Add(-e.limits.WeekWindow)
	entries, err := e.ledger.Since(ctx, since)
	if err != nil {
		return Weekly{}, fmt.Errorf("weekly stats: %w", err)
	}
	return ComputeWeekly(since, entries), nil
}

func (e *Engine) Balance(ctx context.Context) (Balance, error) {
	bal, ok, err := e.ledger.LatestBalance(ctx)
	if err != nil {
		return Balance{}, fmt.Errorf("balance: %w", err)
	}
	if !ok {
		return Balance{Amount: e.ledger.StartBalance(), Initial: true}, nil
	}
	return Balance{Amount: bal}, nil
}

// Quality reports on the most recent trades with quality in [min, max].
func (e *Engine) Quality(ctx context.Context, min, max int) (QualityReport, error) {
	entries, err := e.ledger.ByQuality(ctx, min, max, e.limits.QualityLimit)
	if err != nil {
		return QualityReport{}, fmt.Errorf("quality stats: %w", err)
	}
	return ComputeQuality(min, max, entries, e.limits.QualityPreview), nil
}

// Signals returns the latest closed trades, newest first. n <= 0 uses the
// configured limit.
func (e *Engine) Signals(ctx context.Context, n int) ([]journal.Entry, error) {
	if n <= 0 {
		n = e.limits.SignalsLimit
	}
	entries, err := e.ledger.Latest(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("signals: %w", err)
	}
	return entries, nil
}
