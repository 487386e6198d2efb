// Package command is the single entry point a transport calls with
// (session, command name, argument text).
package command

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/tradejournal/pkg/logging"
	"github.com/rustyeddy/tradejournal/stats"
	"github.com/rustyeddy/tradejournal/trade"
	"go.uber.org/zap"
)

// Spec describes one command for help output.
type Spec struct {
	Name  string `json:"name"`
	Args  string `json:"args,omitempty"`
	Help  string `json:"help"`
	Group string `json:"group"`
}

// Specs lists every command in help order.
var Specs = []Spec{
	{Name: "open", Args: "<price>", Help: "open a trade at the entry price", Group: "trades"},
	{Name: "close", Args: "<price>", Help: "close the open trade at the exit price", Group: "trades"},
	{Name: "status", Help: "show the open trade", Group: "trades"},
	{Name: "cancel", Help: "discard the open trade", Group: "trades"},
	{Name: "settp", Args: "<price>", Help: "set the take-profit", Group: "annotate"},
	{Name: "setsl", Args: "<price>", Help: "set the stop-loss", Group: "annotate"},
	{Name: "setq", Args: "<0-100>", Help: "set the setup quality", Group: "annotate"},
	{Name: "stats", Help: "today's statistics", Group: "stats"},
	{Name: "week", Help: "statistics for the last 7 days", Group: "stats"},
	{Name: "balance", Help: "current balance", Group: "stats"},
	{Name: "signals", Help: "last 5 closed trades", Group: "stats"},
	{Name: "quality", Args: "<N> | <N-M>", Help: "recent trades by quality", Group: "stats"},
	{Name: "help", Help: "list commands", Group: "help"},
}

// Lookup finds a command by its normalized name.
func Lookup(name string) (Spec, bool) {
	n := Normalize(name)
	if n == "start" {
		n = "help"
	}
	for _, s := range Specs {
		if s.Name == n {
			return s, true
		}
	}
	return Spec{}, false
}

// Normalize lowercases a command name and strips a leading slash and a
// trailing @botname.
func Normalize(name string) string {
	n := strings.TrimSpace(name)
	n = strings.TrimPrefix(n, "/")
	if i := strings.IndexByte(n, '@'); i >= 0 {
		n = n[:i]
	}
	return strings.ToLower(n)
}

// Result is a successful command. Payload's type depends on the command.
type Result struct {
	Command string `json:"command"`
	Session string `json:"session"`
	Payload any    `json:"result"`
	// Empty marks a query that found nothing to report.
	Empty bool `json:"empty,omitempty"`
}

// Service dispatches commands to the trade desk and the stats engine.
type Service struct {
	desk   *trade.Desk
	engine *stats.Engine
	now    func() time.Time
	log    *zap.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = logging.OrNop(l) }
}

func NewService(desk *trade.Desk, engine *stats.Engine, opts ...Option) *Service {
	s := &Service{desk: desk, engine: engine, now: time.Now, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs one command. User mistakes come back as *Error; any other
// error is a storage fault.
func (s *Service) Execute(ctx context.Context, session, name, args string) (Result, error) {
	spec, ok := Lookup(name)
	if !ok {
		return Result{}, newError(UnknownCommand, "unknown command %q", Normalize(name))
	}
	fields := strings.Fields(args)

	res, err := s.dispatch(ctx, session, spec.Name, fields)
	if err != nil {
		err = classify(err)
		if k, ok := KindOf(err); ok {
			s.log.Debug("command_rejected",
				zap.String("session", session),
				zap.String("command", spec.Name),
				zap.String("kind", string(k)),
			)
		} else {
			s.log.Error("command_failed",
				zap.String("session", session),
				zap.String("command", spec.Name),
				zap.Error(err),
			)
		}
		return Result{}, err
	}
	res.Command = spec.Name
	res.Session = session
	return res, nil
}

func (s *Service) dispatch(ctx context.Context, session, name string, args []string) (Result, error) {
	switch name {
	case "open":
		p, err := priceArg(args, "open 98.45")
		if err != nil {
			return Result{}, err
		}
		t, err := s.desk.Open(ctx, session, p)
		return Result{Payload: t}, err

	case "close":
		p, err := priceArg(args, "close 100.12")
		if err != nil {
			return Result{}, err
		}
		e, err := s.desk.Close(ctx, session, p)
		return Result{Payload: e}, err

	case "status":
		t, err := s.desk.Status(ctx, session)
		return Result{Payload: t}, err

	case "cancel":
		t, err := s.desk.Cancel(ctx, session)
		return Result{Payload: t}, err

	case "settp":
		p, err := priceArg(args, "settp 100.12")
		if err != nil {
			return Result{}, err
		}
		t, err := s.desk.SetTakeProfit(ctx, session, p)
		return Result{Payload: t}, err

	case "setsl":
		p, err := priceArg(args, "setsl 97.96")
		if err != nil {
			return Result{}, err
		}
		t, err := s.desk.SetStopLoss(ctx, session, p)
		return Result{Payload: t}, err

	case "setq":
		q, err := qualityArg(args)
		if err != nil {
			return Result{}, err
		}
		t, err := s.desk.SetQuality(ctx, session, q)
		return Result{Payload: t}, err

	case "stats":
		d, err := s.engine.Daily(ctx, s.now())
		return Result{Payload: d, Empty: d.Empty()}, err

	case "week":
		w, err := s.engine.Weekly(ctx, s.now())
		return Result{Payload: w, Empty: w.Empty()}, err

	case "balance":
		b, err := s.engine.Balance(ctx)
		return Result{Payload: b}, err

	case "signals":
		entries, err := s.engine.Signals(ctx, 0)
		return Result{Payload: entries, Empty: len(entries) == 0}, err

	case "quality":
		min, max, err := qualityRange(args)
		if err != nil {
			return Result{}, err
		}
		q, err := s.engine.Quality(ctx, min, max)
		return Result{Payload: q, Empty: q.Empty()}, err

	case "help":
		return Result{Payload: Specs}, nil
	}
	return Result{}, newError(UnknownCommand, "unknown command %q", name)
}

func priceArg(args []string, usage string) (float64, error) {
	if len(args) != 1 {
		return 0, newError(MalformedArguments, "expected one price, e.g. %s", usage)
	}
	p, err := strconv.ParseFloat(args[0], 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return 0, newError(InvalidPrice, "%q is not a valid price, e.g. %s", args[0], usage)
	}
	return p, nil
}

func qualityArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, newError(MalformedArguments, "expected a quality, e.g. setq 85")
	}
	q, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, newError(MalformedArguments, "%q is not a whole number, e.g. setq 85", args[0])
	}
	return q, nil
}

// qualityRange parses "N" as [N, 100] and "N-M" as [N, M].
func qualityRange(args []string) (int, int, error) {
	if len(args) != 1 {
		return 0, 0, newError(MalformedArguments, "expected a quality, e.g. quality 80 or quality 60-80")
	}
	lo, hi, ranged := strings.Cut(args[0], "-")
	min, err := strconv.Atoi(lo)
	if err != nil {
		return 0, 0, newError(MalformedArguments, "%q is not a quality, e.g. quality 80 or quality 60-80", args[0])
	}
	max := 100
	if ranged {
		if max, err = strconv.Atoi(hi); err != nil {
			return 0, 0, newError(MalformedArguments, "%q is not a quality range, e.g. quality 60-80", args[0])
		}
	}
	if min < 0 || max > 100 || min > max {
		return 0, 0, newError(OutOfRange, "quality range %d-%d must lie within 0-100", min, max)
	}
	return min, max, nil
}
