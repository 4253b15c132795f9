// Package journal records what every tick decided and did, for audit. The
// control loop journals best-effort: a journaling failure is logged, never
// fatal to the tick.
package journal

import "time"

// TickRecord is one control-loop invocation.
type TickRecord struct {
	TickID      string
	Time        time.Time
	Status      string
	Reason      string
	Equity      float64
	PnLToday    float64
	Positions   int
	TradesToday int
}

// ActionRecord is one side effect taken during a tick: a closure, a pending
// trigger or an auto-entry.
type ActionRecord struct {
	TickID string
	Time   time.Time
	Kind   string // close_all | close_symbol | pending_trigger | auto_entry
	Symbol string
	Reason string
	Err    string
}

// Journal persists tick history.
type Journal interface {
	RecordTick(TickRecord) error
	RecordAction(ActionRecord) error
	Close() error
}

// Noop discards everything. Used when journaling is disabled.
type Noop struct{}

func (Noop) RecordTick(TickRecord) error     { return nil }
func (Noop) RecordAction(ActionRecord) error { return nil }
func (Noop) Close() error                    { return nil }
