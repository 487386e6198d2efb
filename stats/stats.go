// Package stats derives journal statistics from ledger entries. The
// Compute* functions are pure; Engine only adds the ledger queries.
package stats

import (
	"sort"
	"time"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/shopspring/decimal"
)

// Daily summarizes one calendar day of closed trades.
type Daily struct {
	Date         string        `json:"date"`
	Trades       int           `json:"trades"`
	Wins         int           `json:"wins"`
	Losses       int           `json:"losses"`
	WinRate      float64       `json:"winrate"`
	StartBalance float64       `json:"start_balance"`
	EndBalance   float64       `json:"end_balance"`
	TotalPnL     float64       `json:"total_pnl"`
	ReturnPct    float64       `json:"return_pct"`
	GrossProfit  float64       `json:"gross_profit"`
	GrossLoss    float64       `json:"gross_loss"`
	// ProfitFactor is GrossProfit/GrossLoss, or GrossProfit when no trade lost.
	ProfitFactor float64       `json:"profit_factor"`
	Best         journal.Entry `json:"best"`
	Worst        journal.Entry `json:"worst"`
}

// Empty reports the "no data" result.
func (d Daily) Empty() bool { return d.Trades == 0 }

// Bucket groups trades whose quality falls in [Floor, Floor+9].
type Bucket struct {
	Floor   int     `json:"floor"`
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"winrate"`
}

// Weekly summarizes a trailing window of closed trades.
type Weekly struct {
	Since    time.Time `json:"since"`
	Trades   int       `json:"trades"`
	Wins     int       `json:"wins"`
	Losses   int       `json:"losses"`
	WinRate  float64   `json:"winrate"`
	TotalPnL float64   `json:"total_pnl"`
	Buckets  []Bucket  `json:"buckets"`
}

func (w Weekly) Empty() bool { return w.Trades == 0 }

// QualityReport covers the most recent trades in a quality range.
type QualityReport struct {
	Min     int             `json:"min"`
	Max     int             `json:"max"`
	Trades  int             `json:"trades"`
	Wins    int             `json:"wins"`
	WinRate float64         `json:"winrate"`
	AvgPnL  float64         `json:"avg_pnl"`
	Preview []journal.Entry `json:"preview"`
}

func (q QualityReport) Empty() bool { return q.Trades == 0 }

// Balance is the current account balance.
type Balance struct {
	Amount  float64 `json:"amount"`
	// Initial is true when nothing has been recorded yet.
	Initial bool    `json:"initial"`
}

// QualityBucket maps a quality score to the floor of its decade: 83 -> 80.
func QualityBucket(q int) int {
	if q < 0 {
		return 0
	}
	return q / 10 * 10
}

// pct returns part/whole*100, or 0 when whole is 0.
func pct(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// ComputeDaily summarizes entries, which must be in ledger (id) order.
func ComputeDaily(date string, entries []journal.Entry) Daily {
	d := Daily{Date: date, Trades: len(entries)}
	if len(entries) == 0 {
		return d
	}

	var total, gross, loss decimal.Decimal
	d.Best, d.Worst = entries[0], entries[0]
	for _, e := range entries {
		p := decimal.NewFromFloat(e.PnL)
		total = total.Add(p)
		switch {
		case e.PnL > 0:
			d.Wins++
			gross = gross.Add(p)
		case e.PnL < 0:
			d.Losses++
			loss = loss.Add(p)
		}
		if e.PnL > d.Best.PnL {
			d.Best = e
		}
		if e.PnL < d.Worst.PnL {
			d.Worst = e
		}
	}

	first, last := entries[0], entries[len(entries)-1]
	d.StartBalance = first.PrevBalance()
	d.EndBalance = last.RunningBalance
	d.TotalPnL = toFloat(total)
	d.WinRate = pct(d.Wins, d.Trades)
	d.GrossProfit = toFloat(gross)
	d.GrossLoss = toFloat(loss.Abs())
	if loss.IsZero() {
		d.ProfitFactor = d.GrossProfit
	} else {
		d.ProfitFactor = toFloat(gross.Div(loss.Abs()))
	}
	if d.StartBalance != 0 {
		d.ReturnPct = (d.EndBalance/d.StartBalance - 1) * 100
	}
	return d
}

// ComputeWeekly summarizes entries closed at or after since.
func ComputeWeekly(since time.Time, entries []journal.Entry) Weekly {
	w := Weekly{Since: since}

	var total decimal.Decimal
	byFloor := map[int]*Bucket{}
	for _, e := range entries {
		if e.ClosedAt.Before(since) {
			continue
		}
		w.Trades++
		total = total.Add(decimal.NewFromFloat(e.PnL))

		floor := QualityBucket(e.Quality)
		b, ok := byFloor[floor]
		if !ok {
			b = &Bucket{Floor: floor}
			byFloor[floor] = b
		}
		b.Trades++

		switch {
		case e.PnL > 0:
			w.Wins++
			b.Wins++
		case e.PnL < 0:
			w.Losses++
		}
	}

	w.TotalPnL = toFloat(total)
	w.WinRate = pct(w.Wins, w.Trades)
	for _, b := range byFloor {
		b.WinRate = pct(b.Wins, b.Trades)
		w.Buckets = append(w.Buckets, *b)
	}
	sort.Slice(w.Buckets, func(i, j int) bool { return w.Buckets[i].Floor < w.Buckets[j].Floor })
	return w
}

// ComputeQuality summarizes entries already filtered to [min, max] and
// ordered newest first. The preview keeps the first previewN of them.
func ComputeQuality(min, max int, entries []journal.Entry, previewN int) QualityReport {
	q := QualityReport{Min: min, Max: max, Trades: len(entries)}
	if len(entries) == 0 {
		return q
	}

	var total decimal.Decimal
	for _, e := range entries {
		total = total.Add(decimal.NewFromFloat(e.PnL))
		if e.PnL > 0 {
			q.Wins++
		}
	}
	q.WinRate = pct(q.Wins, q.Trades)
	q.AvgPnL = toFloat(total.Div(decimal.NewFromInt(int64(q.Trades))))

	if previewN > len(entries) {
		previewN = len(entries)
	}
	if previewN > 0 {
		q.Preview = append([]journal.Entry(nil), entries[:previewN]...)
	}
	return q
}
