package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTick(t TickRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO ticks
		(tick_id, time, status, reason, equity, pnl_today, positions, trades_today)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TickID, t.Time, t.Status, t.Reason, t.Equity, t.PnLToday, t.Positions, t.TradesToday,
	)
	return err
}

func (j *SQLite) RecordAction(a ActionRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO actions
		(tick_id, time, kind, symbol, reason, err)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.TickID, a.Time, a.Kind, a.Symbol, a.Reason, a.Err,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
