// Package session keeps the one open trade a session may have, and
// persists it so an open trade survives a restart.
package session

import (
	"time"
)

// OpenTrade is a trade that has been opened but not yet closed or cancelled.
type OpenTrade struct {
	TradeID    string    `json:"trade_id" yaml:"trade_id"`
	SessionID  string    `json:"session_id" yaml:"session_id"`
	EntryPrice float64   `json:"entry_price" yaml:"entry_price"`
	OpenedAt   time.Time `json:"opened_at" yaml:"opened_at"`
	TakeProfit *float64  `json:"take_profit,omitempty" yaml:"take_profit,omitempty"`
	StopLoss   *float64  `json:"stop_loss,omitempty" yaml:"stop_loss,omitempty"`
	Quality    *int      `json:"quality,omitempty" yaml:"quality,omitempty"`
}

// QualityOrZero returns the quality, or 0 when it was never set.
func (t OpenTrade) QualityOrZero() int {
	if t.Quality == nil {
		return 0
	}
	return *t.Quality
}

// Clone returns a copy that shares no pointers with t.
func (t OpenTrade) Clone() OpenTrade {
	c := t
	if t.TakeProfit != nil {
		v := *t.TakeProfit
		c.TakeProfit = &v
	}
	if t.StopLoss != nil {
		v := *t.StopLoss
		c.StopLoss = &v
	}
	if t.Quality != nil {
		v := *t.Quality
		c.Quality = &v
	}
	return c
}

// Register maps a session id to at most one OpenTrade. Every mutation is
// durable before it returns.
type Register interface {
	Get(sessionID string) (OpenTrade, bool, error)
	Put(t OpenTrade) error
	Delete(sessionID string) error
	All() ([]OpenTrade, error)
	Close() error
}
