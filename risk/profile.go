// Package risk maps the operator-selected risk mode to the numeric limits the
// control loop enforces. The mapping is pure configuration: no I/O, no state.
package risk

import "fmt"

// Mode is the operator risk appetite. It drives both the per-trade and daily
// thresholds and the daily trade cap.
type Mode string

const (
	Low    Mode = "low"
	Medium Mode = "medium"
	High   Mode = "high"
)

// ParseMode validates a string against the known modes. An unknown value is a
// configuration error and must never silently fall back to a default.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Low, Medium, High:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown risk mode %q (want low|medium|high)", s)
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	_, err := ParseMode(string(m))
	return err == nil
}

// Thresholds are fractions of position value (per-trade) or account equity
// (daily).
type Thresholds struct {
	TakeProfit   float64 // per-trade unrealized gain that closes the position
	StopLoss     float64 // per-trade unrealized loss that closes the position
	DailyTarget  float64 // day P/L fraction of equity that flattens the book
	DailyMaxLoss float64 // day loss fraction of equity that flattens the book
}

var profiles = map[Mode]Thresholds{
	Low:    {TakeProfit: 0.15, StopLoss: 0.08, DailyTarget: 0.02, DailyMaxLoss: 0.01},
	Medium: {TakeProfit: 0.20, StopLoss: 0.10, DailyTarget: 0.03, DailyMaxLoss: 0.015},
	High:   {TakeProfit: 0.30, StopLoss: 0.15, DailyTarget: 0.05, DailyMaxLoss: 0.02},
}

// Several historical variants of this table disagree; these values are the
// fixed choice for this codebase, treat them as configuration.
var maxTrades = map[Mode]int{
	Low:    1,
	Medium: 3,
	High:   5,
}

// ProfileFor returns the thresholds for a mode. Unknown modes error rather
// than default.
func ProfileFor(m Mode) (Thresholds, error) {
	t, ok := profiles[m]
	if !ok {
		return Thresholds{}, fmt.Errorf("no risk profile for mode %q", m)
	}
	return t, nil
}

// MaxTradesPerDay returns the daily auto-entry cap for a mode. The cap is
// always derived from the mode, never stored independently.
func MaxTradesPerDay(m Mode) (int, error) {
	n, ok := maxTrades[m]
	if !ok {
		return 0, fmt.Errorf("no trade cap for mode %q", m)
	}
	return n, nil
}
