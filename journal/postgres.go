package journal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig tunes the pgx connection pool.
type PoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:          4,
		MinConns:          1,
		MaxConnLifetime:   30 * time.Minute,
		MaxConnIdleTime:   5 * time.Minute,
		HealthCheckPeriod: 30 * time.Second,
	}
}

// PoolConfigFromEnv reads DB_MAX_CONNS, DB_MIN_CONNS, DB_MAX_CONN_LIFETIME,
// DB_MAX_CONN_IDLE_TIME and DB_HEALTHCHECK_PERIOD on top of the defaults.
func PoolConfigFromEnv() PoolConfig {
	cfg := DefaultPoolConfig()

	if v := strings.TrimSpace(os.Getenv("DB_MAX_CONNS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			cfg.MaxConns = int32(n)
		}
	}
	if v := strings.TrimSpace(os.Getenv("DB_MIN_CONNS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			cfg.MinConns = int32(n)
		}
	}
	if v := strings.TrimSpace(os.Getenv("DB_MAX_CONN_LIFETIME")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.MaxConnLifetime = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("DB_MAX_CONN_IDLE_TIME")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.MaxConnIdleTime = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("DB_HEALTHCHECK_PERIOD")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HealthCheckPeriod = d
		}
	}

	if cfg.MaxConns < 1 {
		cfg.MaxConns = 1
	}
	if cfg.MinConns < 0 {
		cfg.MinConns = 0
	}
	if cfg.MinConns > cfg.MaxConns {
		cfg.MinConns = cfg.MaxConns
	}
	return cfg
}

// Postgres is the ledger backend for a shared database.
type Postgres struct {
	pool *pgxpool.Pool
	mu   sync.Mutex // serializes Append within this process
	opts options
}

var _ Ledger = (*Postgres)(nil)

func NewPostgres(ctx context.Context, databaseURL string, pc PoolConfig, opts ...Option) (*Postgres, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	poolCfg, err := pgxpool.ParseConfig(withSSLMode(databaseURL))
	if err != nil {
		return nil, err
	}
	poolCfg.MaxConns = pc.MaxConns
	poolCfg.MinConns = pc.MinConns
	poolCfg.MaxConnLifetime = pc.MaxConnLifetime
	poolCfg.MaxConnIdleTime = pc.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = pc.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	for _, stmt := range PostgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &Postgres{pool: pool, opts: o}, nil
}

// withSSLMode defaults sslmode to "prefer" when the URL does not say.
func withSSLMode(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil {
		return dbURL
	}
	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "prefer")
		u.RawQuery = q.Encode()
	}
	return strings.TrimSpace(u.String())
}

func (p *Postgres) StartBalance() float64 { return p.opts.startBalance }

func (p *Postgres) Append(ctx context.Context, e *Entry) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	// Other processes writing the same table queue up behind this lock.
	if _, err := tx.Exec(ctx, `lock table trades in share row exclusive mode`); err != nil {
		return 0, err
	}

	prev := p.opts.startBalance
	var last float64
	err = tx.QueryRow(ctx, `select running_balance from trades order by id desc limit 1`).Scan(&last)
	switch {
	case err == nil:
		prev = last
	case !errors.Is(err, pgx.ErrNoRows):
		return 0, err
	}
	balance := nextBalance(prev, e.PnL)

	var id int64
	err = tx.QueryRow(ctx, `
		insert into trades
		(trade_id, session_id, opened_at, closed_at, direction, entry_price, exit_price,
		 take_profit_price, stop_loss_price, planned_take_profit, planned_stop_loss,
		 pnl, quality, running_balance)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		returning id`,
		e.TradeID, e.SessionID, e.OpenedAt.UTC(), e.ClosedAt.UTC(), string(e.Direction),
		e.EntryPrice, e.ExitPrice, e.TakeProfitPrice, e.StopLossPrice,
		e.PlannedTakeProfit, e.PlannedStopLoss, e.PnL, e.Quality, balance,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateTrade, e.TradeID)
		}
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	e.ID = id
	e.RunningBalance = balance
	return id, nil
}

func (p *Postgres) list(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Postgres) ByTradeID(ctx context.Context, tradeID string) (Entry, error) {
	row := p.pool.QueryRow(ctx, `select `+entryColumns+` from trades where trade_id = $1`, tradeID)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
		}
		return Entry{}, err
	}
	return e, nil
}

func (p *Postgres) OnDate(ctx context.Context, day time.Time) ([]Entry, error) {
	start, end := dayBounds(day)
	return p.list(ctx, `
		select `+entryColumns+`
		from trades
		where closed_at >= $1 and closed_at < $2
		order by id asc`, start, end)
}

func (p *Postgres) Since(ctx context.Context, t time.Time) ([]Entry, error) {
	return p.list(ctx, `
		select `+entryColumns+`
		from trades
		where closed_at >= $1
		order by closed_at asc, id asc`, t)
}

func (p *Postgres) Latest(ctx context.Context, n int) ([]Entry, error) {
	return p.list(ctx, `select `+entryColumns+` from trades order by id desc limit $1`, n)
}

func (p *Postgres) ByQuality(ctx context.Context, min, max, limit int) ([]Entry, error) {
	return p.list(ctx, `
		select `+entryColumns+`
		from trades
		where quality between $1 and $2
		order by closed_at desc, id desc
		limit $3`, min, max, limit)
}

func (p *Postgres) All(ctx context.Context) ([]Entry, error) {
	return p.list(ctx, `select `+entryColumns+` from trades order by id asc`)
}

func (p *Postgres) LatestBalance(ctx context.Context) (float64, bool, error) {
	var b float64
	err := p.pool.QueryRow(ctx, `select running_balance from trades order by id desc limit 1`).Scan(&b)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return b, true, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
