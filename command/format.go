package command

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/session"
	"github.com/rustyeddy/tradejournal/stats"
)

const rule = "------------------------------"

// Format renders a result as plain text for terminals.
func Format(res Result) string {
	if res.Empty {
		return noData(res.Command, res.Payload)
	}

	var b strings.Builder
	switch p := res.Payload.(type) {
	case session.OpenTrade:
		switch res.Command {
		case "open":
			b.WriteString("TRADE OPENED\n")
		case "cancel":
			fmt.Fprintf(&b, "TRADE CANCELLED (entry %.4f)\n", p.EntryPrice)
			return b.String()
		default:
			b.WriteString("OPEN TRADE\n")
		}
		writeOpenTrade(&b, p)

	case journal.Entry:
		writeClosed(&b, p)

	case stats.Daily:
		writeDaily(&b, p)

	case stats.Weekly:
		writeWeekly(&b, p)

	case stats.Balance:
		fmt.Fprintf(&b, "BALANCE: %.2f\n", p.Amount)
		if p.Initial {
			b.WriteString("no trades recorded yet\n")
		}

	case []journal.Entry:
		fmt.Fprintf(&b, "LAST %d SIGNALS\n%s\n", len(p), rule)
		for _, e := range p {
			fmt.Fprintf(&b, "%s %s | %.4f | %d%% | %+.2f\n",
				mark(e), e.ClosedAt.Format("01-02 15:04"), e.EntryPrice, e.Quality, e.PnL)
		}

	case stats.QualityReport:
		writeQuality(&b, p)

	case []Spec:
		writeHelp(&b, p)

	default:
		fmt.Fprintf(&b, "%v\n", p)
	}
	return b.String()
}

func noData(cmd string, payload any) string {
	switch cmd {
	case "stats":
		return "no trades today\n"
	case "week":
		return "no trades in the last 7 days\n"
	case "quality":
		if q, ok := payload.(stats.QualityReport); ok {
			return fmt.Sprintf("no trades with quality %d-%d%%\n", q.Min, q.Max)
		}
	}
	return "no data\n"
}

func mark(e journal.Entry) string {
	if e.Win() {
		return "+"
	}
	return "-"
}

func writeOpenTrade(b *strings.Builder, t session.OpenTrade) {
	fmt.Fprintf(b, "entry:   %.4f\n", t.EntryPrice)
	fmt.Fprintf(b, "opened:  %s\n", t.OpenedAt.Format("15:04:05"))
	if t.TakeProfit != nil {
		fmt.Fprintf(b, "tp:      %.4f\n", *t.TakeProfit)
	}
	if t.StopLoss != nil {
		fmt.Fprintf(b, "sl:      %.4f\n", *t.StopLoss)
	}
	if t.Quality != nil {
		fmt.Fprintf(b, "quality: %d%%\n", *t.Quality)
	}
}

func writeClosed(b *strings.Builder, e journal.Entry) {
	if e.Direction == journal.TakeProfit {
		b.WriteString("TAKE-PROFIT\n")
	} else {
		b.WriteString("STOP-LOSS\n")
	}
	fmt.Fprintf(b, "%s\n", rule)
	fmt.Fprintf(b, "entry:   %.4f\n", e.EntryPrice)
	fmt.Fprintf(b, "exit:    %.4f\n", e.ExitPrice)
	fmt.Fprintf(b, "pnl:     %+.2f (%+.2f%%)\n", e.PnL, e.ReturnPct())
	fmt.Fprintf(b, "quality: %d%%\n", e.Quality)
	fmt.Fprintf(b, "balance: %.2f\n", e.RunningBalance)
}

func writeDaily(b *strings.Builder, d stats.Daily) {
	fmt.Fprintf(b, "STATS %s\n%s\n", d.Date, rule)
	fmt.Fprintf(b, "start:   %.2f\n", d.StartBalance)
	fmt.Fprintf(b, "end:     %.2f\n", d.EndBalance)
	fmt.Fprintf(b, "pnl:     %+.2f (%+.2f%%)\n", d.TotalPnL, d.ReturnPct)
	fmt.Fprintf(b, "trades:  %d (%d won, %d lost)\n", d.Trades, d.Wins, d.Losses)
	fmt.Fprintf(b, "winrate: %.1f%%\n", d.WinRate)
	fmt.Fprintf(b, "pf:      %.2f\n", d.ProfitFactor)
	fmt.Fprintf(b, "best:    %+.2f\n", d.Best.PnL)
	fmt.Fprintf(b, "worst:   %+.2f\n", d.Worst.PnL)
}

func writeWeekly(b *strings.Builder, w stats.Weekly) {
	fmt.Fprintf(b, "WEEK since %s\n%s\n", w.Since.Format("2006-01-02 15:04"), rule)
	fmt.Fprintf(b, "trades:  %d (%d won, %d lost)\n", w.Trades, w.Wins, w.Losses)
	fmt.Fprintf(b, "winrate: %.1f%%\n", w.WinRate)
	fmt.Fprintf(b, "pnl:     %+.2f\n", w.TotalPnL)
	b.WriteString("by quality:\n")
	for _, bk := range w.Buckets {
		fmt.Fprintf(b, "  %3d%%+ %d/%d (%.0f%%)\n", bk.Floor, bk.Wins, bk.Trades, bk.WinRate)
	}
}

func writeQuality(b *strings.Builder, q stats.QualityReport) {
	fmt.Fprintf(b, "QUALITY %d-%d%%\n%s\n", q.Min, q.Max, rule)
	fmt.Fprintf(b, "winrate: %d/%d (%.0f%%)\n", q.Wins, q.Trades, q.WinRate)
	fmt.Fprintf(b, "avg pnl: %+.2f\n", q.AvgPnL)
	fmt.Fprintf(b, "%s\n", rule)
	for _, e := range q.Preview {
		fmt.Fprintf(b, "%s %s | %.4f | %+.2f\n", mark(e), e.ClosedAt.Format("01-02"), e.EntryPrice, e.PnL)
	}
}

func writeHelp(b *strings.Builder, specs []Spec) {
	group := ""
	for _, s := range specs {
		if s.Group != group {
			group = s.Group
			fmt.Fprintf(b, "%s:\n", strings.ToUpper(group))
		}
		name := "/" + s.Name
		if s.Args != "" {
			name += " " + s.Args
		}
		fmt.Fprintf(b, "  %-22s %s\n", name, s.Help)
	}
}
