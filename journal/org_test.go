package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatEntryOrg(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 15, 14, 20, 30, 0, time.UTC)
	e := closed("01HV5ZK3N8QW2Y7T6R4P9X1ABC", at, 98.45, 100.12, 85)
	e.ID = 7
	e.RunningBalance = 61.67
	plan := 101.0
	e.PlannedTakeProfit = &plan

	result := FormatEntryOrg(*e)

	assert.Contains(t, result, "** Take-profit #7 (01HV5ZK3)")
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":TRADE_ID: 01HV5ZK3N8QW2Y7T6R4P9X1ABC")
	assert.Contains(t, result, ":DIRECTION: tp")
	assert.Contains(t, result, ":ENTRY_PRICE: 98.4500")
	assert.Contains(t, result, ":EXIT_PRICE: 100.1200")
	assert.Contains(t, result, ":PLANNED_TP: 101.0000")
	assert.NotContains(t, result, ":PLANNED_SL:")
	assert.Contains(t, result, ":CLOSED_AT: 2024-03-15T14:20:30Z")
	assert.Contains(t, result, ":PNL: +1.67")
	assert.Contains(t, result, ":QUALITY: 85")
	assert.Contains(t, result, ":BALANCE: 61.67")
	assert.Contains(t, result, ":END:")
	assert.Contains(t, result, "*** Review")
}

func TestFormatEntryOrgStopLoss(t *testing.T) {
	t.Parallel()

	e := closed("short", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 100, 100, 0)
	result := FormatEntryOrg(*e)

	assert.Contains(t, result, "** Stop-loss #0 (short)")
	assert.Contains(t, result, ":PNL: +0.00")
}

func TestFormatEntriesOrg(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	a := closed("AAAAAAAAAA", at, 100, 101, 0)
	b := closed("BBBBBBBBBB", at, 100, 99, 0)

	result := FormatEntriesOrg([]Entry{*a, *b})
	assert.Equal(t, 2, strings.Count(result, ":PROPERTIES:"))
	assert.Contains(t, result, "\n\n\n** Stop-loss")
	assert.Empty(t, FormatEntriesOrg(nil))
}
