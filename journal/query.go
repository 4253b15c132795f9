package journal

import (
	"database/sql"
	"fmt"
	"time"
)

// GetTick returns a single tick record by ID.
func (j *SQLite) GetTick(tickID string) (TickRecord, error) {
	var rec TickRecord

	row := j.db.QueryRow(`
		SELECT tick_id, time, status, reason, equity, pnl_today, positions, trades_today
		FROM ticks
		WHERE tick_id = ?`, tickID)

	err := row.Scan(
		&rec.TickID,
		&rec.Time,
		&rec.Status,
		&rec.Reason,
		&rec.Equity,
		&rec.PnLToday,
		&rec.Positions,
		&rec.TradesToday,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return TickRecord{}, fmt.Errorf("tick %q not found", tickID)
		}
		return TickRecord{}, err
	}
	return rec, nil
}

// ListTicksBetween returns ticks whose time is within [start, end).
func (j *SQLite) ListTicksBetween(start, end time.Time) ([]TickRecord, error) {
	rows, err := j.db.Query(`
		SELECT tick_id, time, status, reason, equity, pnl_today, positions, trades_today
		FROM ticks
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TickRecord
	for rows.Next() {
		var rec TickRecord
		if err := rows.Scan(
			&rec.TickID,
			&rec.Time,
			&rec.Status,
			&rec.Reason,
			&rec.Equity,
			&rec.PnLToday,
			&rec.Positions,
			&rec.TradesToday,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListActionsBetween returns actions whose time is within [start, end).
func (j *SQLite) ListActionsBetween(start, end time.Time) ([]ActionRecord, error) {
	rows, err := j.db.Query(`
		SELECT tick_id, time, kind, symbol, reason, err
		FROM actions
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActionRecord
	for rows.Next() {
		var rec ActionRecord
		if err := rows.Scan(
			&rec.TickID,
			&rec.Time,
			&rec.Kind,
			&rec.Symbol,
			&rec.Reason,
			&rec.Err,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListActionsByTick returns the actions recorded for one tick.
func (j *SQLite) ListActionsByTick(tickID string) ([]ActionRecord, error) {
	rows, err := j.db.Query(`
		SELECT tick_id, time, kind, symbol, reason, err
		FROM actions
		WHERE tick_id = ?
		ORDER BY time ASC`, tickID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActionRecord
	for rows.Next() {
		var rec ActionRecord
		if err := rows.Scan(
			&rec.TickID,
			&rec.Time,
			&rec.Kind,
			&rec.Symbol,
			&rec.Reason,
			&rec.Err,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
