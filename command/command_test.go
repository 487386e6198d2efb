package command

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/session"
	"github.com/rustyeddy/tradejournal/stats"
	"github.com/rustyeddy/tradejournal/trade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var now = time.Date(2024, 5, 14, 10, 0, 0, 0, time.UTC)

type brokenRegister struct{ session.Register }

func (brokenRegister) Get(string) (session.OpenTrade, bool, error) {
	return session.OpenTrade{}, false, errors.New("disk gone")
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return newServiceWith(t, nil)
}

func newServiceWith(t *testing.T, wrap func(session.Register) session.Register) *Service {
	t.Helper()

	dir := t.TempDir()
	ledger, err := journal.NewSQLite(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	var reg session.Register
	reg, err = session.OpenSnapshot(filepath.Join(dir, "sessions.yaml"))
	require.NoError(t, err)
	if wrap != nil {
		reg = wrap(reg)
	}

	n := 0
	clock := func() time.Time { return now }
	desk := trade.NewDesk(reg, ledger,
		trade.WithClock(clock),
		trade.WithIDs(func(time.Time) string { n++; return fmt.Sprintf("T%04d", n) }),
		trade.WithLogger(zaptest.NewLogger(t)),
	)
	engine := stats.NewEngine(ledger, stats.WithLocation(time.UTC))
	return NewService(desk, engine, WithClock(clock), WithLogger(zaptest.NewLogger(t)))
}

func exec(t *testing.T, s *Service, name, args string) Result {
	t.Helper()
	res, err := s.Execute(context.Background(), "42", name, args)
	require.NoError(t, err)
	return res
}

func assertKind(t *testing.T, want Kind, err error) {
	t.Helper()
	require.Error(t, err)
	k, ok := KindOf(err)
	require.True(t, ok, "not a user error: %v", err)
	assert.Equal(t, want, k)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"open":             "open",
		"/open":            "open",
		"/OPEN":            "open",
		"/open@JournalBot": "open",
		" Close ":          "close",
		"/start":           "start",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestLookupStartIsHelp(t *testing.T) {
	t.Parallel()

	s, ok := Lookup("/start")
	require.True(t, ok)
	assert.Equal(t, "help", s.Name)

	_, ok = Lookup("withdraw")
	assert.False(t, ok)
}

func TestTradeRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestService(t)

	res := exec(t, s, "/open", "100")
	assert.Equal(t, "open", res.Command)
	assert.Equal(t, "42", res.Session)
	ot, ok := res.Payload.(session.OpenTrade)
	require.True(t, ok)
	assert.Equal(t, 100.0, ot.EntryPrice)

	exec(t, s, "settp", "112")
	exec(t, s, "setsl", "95.5")
	exec(t, s, "setq", "83")

	res = exec(t, s, "status", "")
	ot = res.Payload.(session.OpenTrade)
	require.NotNil(t, ot.TakeProfit)
	assert.Equal(t, 112.0, *ot.TakeProfit)
	assert.Equal(t, 83, ot.QualityOrZero())

	res = exec(t, s, "close", "110")
	e, ok := res.Payload.(journal.Entry)
	require.True(t, ok)
	assert.Equal(t, 10.0, e.PnL)
	assert.Equal(t, journal.TakeProfit, e.Direction)
	assert.Equal(t, 70.0, e.RunningBalance)
	assert.Equal(t, 83, e.Quality)

	_, err := s.Execute(context.Background(), "42", "status", "")
	assertKind(t, NoOpenTrade, err)
}

func TestArgumentErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cmd  string
		args string
		want Kind
	}{
		{"open without price", "open", "", MalformedArguments},
		{"open with two prices", "open", "1 2", MalformedArguments},
		{"open with text", "open", "abc", InvalidPrice},
		{"open with zero", "open", "0", InvalidPrice},
		{"open with negative", "open", "-5", InvalidPrice},
		{"open with NaN", "open", "NaN", InvalidPrice},
		{"open with Inf", "open", "+Inf", InvalidPrice},
		{"close without price", "close", "", MalformedArguments},
		{"setq without value", "setq", "", MalformedArguments},
		{"setq with fraction", "setq", "8.5", MalformedArguments},
		{"quality without value", "quality", "", MalformedArguments},
		{"quality with text", "quality", "high", MalformedArguments},
		{"quality with bad upper", "quality", "60-x", MalformedArguments},
		{"quality reversed", "quality", "80-60", OutOfRange},
		{"quality above 100", "quality", "50-120", OutOfRange},
		{"unknown", "withdraw", "", UnknownCommand},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestService(t)
			_, err := s.Execute(context.Background(), "42", tt.cmd, tt.args)
			assertKind(t, tt.want, err)
		})
	}
}

func TestLifecycleErrorsMapToKinds(t *testing.T) {
	t.Parallel()

	s := newTestService(t)
	ctx := context.Background()

	for _, cmd := range []string{"status", "cancel"} {
		_, err := s.Execute(ctx, "42", cmd, "")
		assertKind(t, NoOpenTrade, err)
	}
	_, err := s.Execute(ctx, "42", "close", "101")
	assertKind(t, NoOpenTrade, err)
	_, err = s.Execute(ctx, "42", "settp", "101")
	assertKind(t, NoOpenTrade, err)

	exec(t, s, "open", "100")
	_, err = s.Execute(ctx, "42", "open", "101")
	assertKind(t, AlreadyOpen, err)

	_, err = s.Execute(ctx, "42", "setq", "101")
	assertKind(t, OutOfRange, err)
	_, err = s.Execute(ctx, "42", "setq", "-1")
	assertKind(t, OutOfRange, err)
}

func TestStorageFaultIsNotAUserError(t *testing.T) {
	t.Parallel()

	s := newServiceWith(t, func(r session.Register) session.Register {
		return brokenRegister{r}
	})
	_, err := s.Execute(context.Background(), "42", "status", "")
	require.Error(t, err)
	_, ok := KindOf(err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestQueriesReportNoData(t *testing.T) {
	t.Parallel()

	s := newTestService(t)
	for _, cmd := range []string{"stats", "week", "signals"} {
		res := exec(t, s, cmd, "")
		assert.True(t, res.Empty, cmd)
	}
	res := exec(t, s, "quality", "80")
	assert.True(t, res.Empty)
	q := res.Payload.(stats.QualityReport)
	assert.Equal(t, 80, q.Min)
	assert.Equal(t, 100, q.Max)

	res = exec(t, s, "balance", "")
	assert.False(t, res.Empty)
	assert.Equal(t, stats.Balance{Amount: 60, Initial: true}, res.Payload)
}

func TestQueriesAfterTrades(t *testing.T) {
	t.Parallel()

	s := newTestService(t)
	trades := []struct {
		entry, exit string
		quality     string
	}{
		{"100", "110", "85"},
		{"100", "105", "62"},
		{"100", "97", "81"},
	}
	for _, tr := range trades {
		exec(t, s, "open", tr.entry)
		exec(t, s, "setq", tr.quality)
		exec(t, s, "close", tr.exit)
	}

	d := exec(t, s, "stats", "").Payload.(stats.Daily)
	assert.Equal(t, 3, d.Trades)
	assert.Equal(t, 5.0, d.ProfitFactor)
	assert.Equal(t, 60.0, d.StartBalance)
	assert.Equal(t, 72.0, d.EndBalance)

	w := exec(t, s, "week", "").Payload.(stats.Weekly)
	require.Len(t, w.Buckets, 2)
	assert.Equal(t, 60, w.Buckets[0].Floor)
	assert.Equal(t, 80, w.Buckets[1].Floor)
	assert.Equal(t, 2, w.Buckets[1].Trades)

	b := exec(t, s, "balance", "").Payload.(stats.Balance)
	assert.Equal(t, 72.0, b.Amount)

	sig := exec(t, s, "signals", "").Payload.([]journal.Entry)
	require.Len(t, sig, 3)
	assert.Equal(t, -3.0, sig[0].PnL)

	q := exec(t, s, "quality", "60-82").Payload.(stats.QualityReport)
	assert.Equal(t, 2, q.Trades)
	assert.Equal(t, 1, q.Wins)
	assert.Equal(t, 1.0, q.AvgPnL)
}

func TestHelp(t *testing.T) {
	t.Parallel()

	res := exec(t, newTestService(t), "/start", "")
	assert.Equal(t, "help", res.Command)
	assert.Equal(t, Specs, res.Payload)
}

func TestFormat(t *testing.T) {
	t.Parallel()

	s := newTestService(t)

	out := Format(exec(t, s, "open", "98.45"))
	assert.Contains(t, out, "TRADE OPENED")
	assert.Contains(t, out, "98.4500")

	out = Format(exec(t, s, "close", "100.12"))
	assert.Contains(t, out, "TAKE-PROFIT")
	assert.Contains(t, out, "+1.67")
	assert.Contains(t, out, "61.67")

	assert.Contains(t, Format(exec(t, s, "stats", "")), "STATS 2024-05-14")
	assert.Equal(t, "no trades with quality 90-100%\n", Format(exec(t, s, "quality", "90")))
	assert.Contains(t, Format(exec(t, s, "help", "")), "/quality <N> | <N-M>")
}
