package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/rustyeddy/tradejournal/command"
	"github.com/rustyeddy/tradejournal/config"
	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/pkg/logging"
	"github.com/rustyeddy/tradejournal/session"
	"github.com/rustyeddy/tradejournal/stats"
	"github.com/rustyeddy/tradejournal/trade"
	"go.uber.org/zap"
)

// app holds everything a command needs, built from one config.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	ledger   journal.Ledger
	sessions session.Register
	engine   *stats.Engine
	svc      *command.Service
}

func openLedger(ctx context.Context, cfg *config.Config) (journal.Ledger, error) {
	opts := []journal.Option{journal.WithStartBalance(cfg.Account.StartBalance)}
	switch cfg.Ledger.Type {
	case "postgres":
		return journal.NewPostgres(ctx, cfg.Ledger.DatabaseURL, journal.PoolConfigFromEnv(), opts...)
	default:
		return journal.NewSQLite(cfg.Ledger.DBPath, opts...)
	}
}

func openSessions(cfg *config.Config) (session.Register, error) {
	switch cfg.Sessions.Type {
	case "pebble":
		return session.OpenPebble(cfg.Sessions.Path)
	default:
		return session.OpenSnapshot(cfg.Sessions.Path)
	}
}

// newEngine builds a stats engine from the config's limits and time zone.
func newEngine(cfg *config.Config, ledger journal.Ledger) (*stats.Engine, error) {
	loc, err := cfg.Account.Location()
	if err != nil {
		return nil, err
	}
	window, err := cfg.Stats.ParseWeekWindow()
	if err != nil {
		return nil, err
	}
	return stats.NewEngine(ledger,
		stats.WithLocation(loc),
		stats.WithLimits(stats.Limits{
			QualityLimit:   cfg.Stats.QualityLimit,
			QualityPreview: cfg.Stats.QualityPreview,
			SignalsLimit:   cfg.Stats.SignalsLimit,
			WeekWindow:     window,
		}),
	), nil
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	ledger, err := openLedger(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	sessions, err := openSessions(cfg)
	if err != nil {
		ledger.Close()
		return nil, fmt.Errorf("open sessions: %w", err)
	}

	engine, err := newEngine(cfg, ledger)
	if err != nil {
		ledger.Close()
		sessions.Close()
		return nil, err
	}

	desk := trade.NewDesk(sessions, ledger, trade.WithLogger(log))
	svc := command.NewService(desk, engine, command.WithLogger(log))

	log.Debug("app_opened",
		zap.String("ledger", cfg.Ledger.Type),
		zap.String("sessions", cfg.Sessions.Type),
		zap.Float64("start_balance", cfg.Account.StartBalance),
	)
	return &app{
		cfg:      cfg,
		log:      log,
		ledger:   ledger,
		sessions: sessions,
		engine:   engine,
		svc:      svc,
	}, nil
}

func (a *app) Close() error {
	err := errors.Join(a.sessions.Close(), a.ledger.Close())
	_ = a.log.Sync()
	return err
}
