package engine

import (
	"time"

	"github.com/bdvlabs/autopilot/broker"
	"github.com/bdvlabs/autopilot/config"
	"github.com/bdvlabs/autopilot/pending"
	"github.com/bdvlabs/autopilot/risk"
)

// Status is the terminal outcome of one tick.
type Status string

const (
	StatusSkipped          Status = "skipped"
	StatusClosedAll        Status = "closed-all"
	StatusPartialClose     Status = "partial-close"
	StatusPendingProcessed Status = "pending-processed"
	StatusAutoEntry        Status = "auto-entry"
	StatusOK               Status = "ok"
)

// CloseAction is one per-symbol closure attempt.
type CloseAction struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
	Err    string `json:"err,omitempty"`
}

// EntryAction describes the auto-entry attempt, if any. Either Skipped is set
// or the order fields are.
type EntryAction struct {
	Symbol  string      `json:"symbol,omitempty"`
	Side    broker.Side `json:"side,omitempty"`
	Qty     int         `json:"qty,omitempty"`
	OrderID string      `json:"order_id,omitempty"`
	Skipped string      `json:"skipped,omitempty"`
	Err     string      `json:"err,omitempty"`
}

// Report aggregates everything a tick observed and did. Every tick returns
// one; there is no silent failure path.
type Report struct {
	TickID string    `json:"tick_id"`
	Time   time.Time `json:"time"`
	Status Status    `json:"status"`
	Reason string    `json:"reason,omitempty"`

	ExecutionMode config.ExecutionMode `json:"execution_mode,omitempty"`
	RiskMode      risk.Mode            `json:"risk_mode,omitempty"`
	Thresholds    risk.Thresholds      `json:"thresholds,omitempty"`
	TradesToday   int                  `json:"trades_today"`
	MaxTrades     int                  `json:"max_trades_per_day"`

	Equity    float64 `json:"equity,omitempty"`
	PnLToday  float64 `json:"pnl_today,omitempty"`
	Positions int     `json:"positions"`

	Closed   []CloseAction           `json:"closed,omitempty"`
	Triggers []pending.TriggerResult `json:"triggers,omitempty"`
	Entry    *EntryAction            `json:"entry,omitempty"`

	Errors []string `json:"errors,omitempty"`
}
