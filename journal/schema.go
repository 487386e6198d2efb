// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trade_id TEXT NOT NULL UNIQUE,
	session_id TEXT NOT NULL,
	opened_at DATETIME NOT NULL,
	closed_at DATETIME NOT NULL,
	direction TEXT NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	take_profit_price REAL,
	stop_loss_price REAL,
	planned_take_profit REAL,
	planned_stop_loss REAL,
	pnl REAL NOT NULL,
	quality INTEGER NOT NULL DEFAULT 0,
	running_balance REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_closed_at ON trades(closed_at);
CREATE INDEX IF NOT EXISTS idx_trades_quality ON trades(quality);
`

// PostgresSchema mirrors Schema for the pgx backend.
var PostgresSchema = []string{
	`create table if not exists trades (
		id bigserial primary key,
		trade_id text not null unique,
		session_id text not null,
		opened_at timestamptz not null,
		closed_at timestamptz not null,
		direction text not null,
		entry_price double precision not null,
		exit_price double precision not null,
		take_profit_price double precision null,
		stop_loss_price double precision null,
		planned_take_profit double precision null,
		planned_stop_loss double precision null,
		pnl double precision not null,
		quality int not null default 0,
		running_balance double precision not null
	);`,
	`create index if not exists trades_closed_at_idx on trades(closed_at);`,
	`create index if not exists trades_quality_idx on trades(quality);`,
}

const entryColumns = `id, trade_id, session_id, opened_at, closed_at, direction,
	entry_price, exit_price, take_profit_price, stop_loss_price,
	planned_take_profit, planned_stop_loss, pnl, quality, running_balance`
