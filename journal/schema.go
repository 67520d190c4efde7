package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	strategy TEXT NOT NULL,
	pair TEXT NOT NULL,
	dataset TEXT NOT NULL,
	config BLOB,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	trades INTEGER NOT NULL,
	buys INTEGER NOT NULL,
	sells INTEGER NOT NULL,
	pl REAL NOT NULL,
	max_drawdown REAL NOT NULL,
	norm_profit REAL NOT NULL,
	final_pos REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	time DATETIME NOT NULL,
	price REAL NOT NULL,
	size REAL NOT NULL,
	pos REAL NOT NULL,
	pl REAL NOT NULL,
	neutral_price REAL NOT NULL,
	norm_accum REAL NOT NULL,
	norm_profit REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS strategy_state (
	key TEXT PRIMARY KEY,
	updated DATETIME NOT NULL,
	record TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created);
`
