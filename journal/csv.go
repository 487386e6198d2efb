// journal/csv.go
package journal

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

var csvHeader = []string{
	"id", "trade_id", "session_id", "opened_at", "closed_at", "direction",
	"entry_price", "exit_price", "take_profit_price", "stop_loss_price",
	"planned_take_profit", "planned_stop_loss", "pnl", "quality", "running_balance",
}

// WriteCSV writes entries with a header row. Unset prices are empty cells.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, e := range entries {
		err := cw.Write([]string{
			strconv.FormatInt(e.ID, 10),
			e.TradeID,
			e.SessionID,
			e.OpenedAt.UTC().Format(time.RFC3339),
			e.ClosedAt.UTC().Format(time.RFC3339),
			string(e.Direction),
			f(e.EntryPrice),
			f(e.ExitPrice),
			fp(e.TakeProfitPrice),
			fp(e.StopLossPrice),
			fp(e.PlannedTakeProfit),
			fp(e.PlannedStopLoss),
			f(e.PnL),
			strconv.Itoa(e.Quality),
			f(e.RunningBalance),
		})
		if err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func fp(x *float64) string {
	if x == nil {
		return ""
	}
	return f(*x)
}
