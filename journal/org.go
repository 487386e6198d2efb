package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatEntryOrg renders an Entry as an Org-mode block suitable for pasting into a journal.
// Structured facts go in the PROPERTIES drawer; the Review heading is left for notes.
func FormatEntryOrg(e Entry) string {
	outcome := "Stop-loss"
	if e.Direction == TakeProfit {
		outcome = "Take-profit"
	}
	heading := fmt.Sprintf("** %s #%d (%s)", outcome, e.ID, shortID(e.TradeID))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":ID: %d\n", e.ID))
	b.WriteString(fmt.Sprintf(":TRADE_ID: %s\n", e.TradeID))
	b.WriteString(fmt.Sprintf(":SESSION: %s\n", e.SessionID))
	b.WriteString(fmt.Sprintf(":DIRECTION: %s\n", e.Direction))
	b.WriteString(fmt.Sprintf(":ENTRY_PRICE: %.4f\n", e.EntryPrice))
	b.WriteString(fmt.Sprintf(":EXIT_PRICE: %.4f\n", e.ExitPrice))
	if e.PlannedTakeProfit != nil {
		b.WriteString(fmt.Sprintf(":PLANNED_TP: %.4f\n", *e.PlannedTakeProfit))
	}
	if e.PlannedStopLoss != nil {
		b.WriteString(fmt.Sprintf(":PLANNED_SL: %.4f\n", *e.PlannedStopLoss))
	}
	b.WriteString(fmt.Sprintf(":OPENED_AT: %s\n", e.OpenedAt.UTC().Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf(":CLOSED_AT: %s\n", e.ClosedAt.UTC().Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf(":PNL: %+.2f\n", e.PnL))
	b.WriteString(fmt.Sprintf(":RETURN_PCT: %+.2f\n", e.ReturnPct()))
	b.WriteString(fmt.Sprintf(":QUALITY: %d\n", e.Quality))
	b.WriteString(fmt.Sprintf(":BALANCE: %.2f\n", e.RunningBalance))
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatEntriesOrg renders multiple entries separated by blank lines.
func FormatEntriesOrg(entries []Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatEntryOrg(e))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
