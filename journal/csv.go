package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// CSVJournal appends ticks and actions to two CSV files. It has no query
// support; use the SQLite backend when history needs to be read back.
type CSVJournal struct {
	ticks   *csv.Writer
	actions *csv.Writer
	tf, af  *os.File
}

func NewCSV(ticksPath, actionsPath string) (*CSVJournal, error) {
	tf, err := os.Create(ticksPath)
	if err != nil {
		return nil, err
	}
	af, err := os.Create(actionsPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	aw := csv.NewWriter(af)

	if err := tw.Write([]string{"tick_id", "time", "status", "reason", "equity", "pnl_today", "positions", "trades_today"}); err != nil {
		return nil, err
	}
	if err := aw.Write([]string{"tick_id", "time", "kind", "symbol", "reason", "err"}); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	aw.Flush()
	if err := aw.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{tw, aw, tf, af}, nil
}

func (j *CSVJournal) RecordTick(t TickRecord) error {
	err := j.ticks.Write([]string{
		t.TickID,
		t.Time.Format(time.RFC3339),
		t.Status,
		t.Reason,
		f(t.Equity),
		f(t.PnLToday),
		strconv.Itoa(t.Positions),
		strconv.Itoa(t.TradesToday),
	})
	if err != nil {
		return err
	}
	j.ticks.Flush()
	return j.ticks.Error()
}

func (j *CSVJournal) RecordAction(a ActionRecord) error {
	err := j.actions.Write([]string{
		a.TickID,
		a.Time.Format(time.RFC3339),
		a.Kind,
		a.Symbol,
		a.Reason,
		a.Err,
	})
	if err != nil {
		return err
	}
	j.actions.Flush()
	return j.actions.Error()
}

func (j *CSVJournal) Close() error {
	j.ticks.Flush()
	j.actions.Flush()
	if err := j.tf.Close(); err != nil {
		j.af.Close()
		return err
	}
	return j.af.Close()
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
