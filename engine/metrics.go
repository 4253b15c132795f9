package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_ticks_total",
			Help: "Control loop ticks by terminal status",
		},
		[]string{"status"},
	)

	mtxCloses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_closes_total",
			Help: "Position closures by rule",
		},
		[]string{"rule"}, // forced_close|daily_target|daily_max_loss|take_profit|stop_loss
	)

	mtxTriggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_pending_triggers_total",
			Help: "Conditional order evaluations by outcome",
		},
		[]string{"outcome"},
	)

	mtxEntries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "autopilot_auto_entries_total",
			Help: "Auto-entry orders submitted",
		},
	)

	mtxEquity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "autopilot_equity_usd",
			Help: "Account equity at the last tick",
		},
	)

	mtxPnLToday = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "autopilot_pnl_today_usd",
			Help: "Equity minus prior close at the last tick",
		},
	)
)

func init() {
	prometheus.MustRegister(
		mtxTicks, mtxCloses, mtxTriggers, mtxEntries, mtxEquity, mtxPnLToday,
	)
}
