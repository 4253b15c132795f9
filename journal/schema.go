package journal

const Schema = `
CREATE TABLE IF NOT EXISTS ticks (
	tick_id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	status TEXT NOT NULL,
	reason TEXT NOT NULL,
	equity REAL NOT NULL,
	pnl_today REAL NOT NULL,
	positions INTEGER NOT NULL,
	trades_today INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ticks_time ON ticks(time);

CREATE TABLE IF NOT EXISTS actions (
	tick_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	kind TEXT NOT NULL,
	symbol TEXT NOT NULL,
	reason TEXT NOT NULL,
	err TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_actions_time ON actions(time);
CREATE INDEX IF NOT EXISTS idx_actions_tick ON actions(tick_id);
`
