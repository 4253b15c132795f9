// Package engine is the control loop: once per tick it reads the runtime
// configuration, applies the liquidation rules, evaluates conditional orders
// and optionally opens one new position, all under the daily risk budget.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bdvlabs/autopilot/broker"
	"github.com/bdvlabs/autopilot/config"
	"github.com/bdvlabs/autopilot/journal"
	"github.com/bdvlabs/autopilot/notify"
	"github.com/bdvlabs/autopilot/pending"
	"github.com/bdvlabs/autopilot/pkg/id"
	"github.com/bdvlabs/autopilot/recommend"
	"github.com/bdvlabs/autopilot/risk"
	"github.com/bdvlabs/autopilot/session"
)

// Deps wires the engine's collaborators. Store, Clock, Broker, Quotes and
// Book are required; the rest default to no-ops.
type Deps struct {
	Store       *config.Store
	Clock       *session.Clock
	Broker      broker.Broker
	Quotes      broker.QuoteSource
	Book        *pending.Book
	Recommender recommend.Recommender
	Notifier    notify.Notifier
	Journal     journal.Journal
	EntryQty    int
}

// Engine runs the per-tick decision procedure. Ticks are serialized: trade
// counting and order submission are not idempotent, so an invocation that
// would overlap a running one is reported as skipped instead.
type Engine struct {
	mu sync.Mutex

	store    *config.Store
	clock    *session.Clock
	broker   broker.Broker
	quotes   broker.QuoteSource
	book     *pending.Book
	rec      recommend.Recommender
	notifier notify.Notifier
	journal  journal.Journal
	entryQty int
}

// New validates deps and builds an engine.
func New(d Deps) (*Engine, error) {
	if d.Store == nil || d.Clock == nil || d.Broker == nil || d.Quotes == nil || d.Book == nil {
		return nil, fmt.Errorf("engine: store, clock, broker, quotes and book are required")
	}
	if d.Notifier == nil {
		d.Notifier = notify.Noop{}
	}
	if d.Journal == nil {
		d.Journal = journal.Noop{}
	}
	if d.EntryQty <= 0 {
		d.EntryQty = 1
	}
	return &Engine{
		store:    d.Store,
		clock:    d.Clock,
		broker:   d.Broker,
		quotes:   d.Quotes,
		book:     d.Book,
		rec:      d.Recommender,
		notifier: d.Notifier,
		journal:  d.Journal,
		entryQty: d.EntryQty,
	}, nil
}

// Tick runs one invocation of the control loop. The returned error is
// non-nil only when a mandatory step failed (unknown risk mode, account or
// position snapshot unavailable); every per-action failure is captured in
// the report instead.
func (e *Engine) Tick(ctx context.Context, now time.Time) (Report, error) {
	rep := Report{TickID: id.NewAt(now.UTC()), Time: now}

	if !e.mu.TryLock() {
		rep.Status = StatusSkipped
		rep.Reason = "previous tick still running"
		mtxTicks.WithLabelValues(string(StatusSkipped)).Inc()
		return rep, nil
	}
	defer e.mu.Unlock()

	defer func() {
		mtxTicks.WithLabelValues(string(rep.Status)).Inc()
		e.recordTick(rep)
	}()

	// 1. Session gate.
	if !e.clock.InsideSession(now) {
		rep.Status = StatusSkipped
		rep.Reason = "outside trading session"
		return rep, nil
	}

	// 2. Mode gate. In manual mode the tick must not touch the broker at all.
	st := e.store.Status()
	rep.ExecutionMode = st.ExecutionMode
	rep.RiskMode = st.RiskMode
	rep.TradesToday = st.TradesToday
	rep.MaxTrades = st.MaxTradesPerDay

	if st.ExecutionMode != config.Auto {
		rep.Status = StatusSkipped
		rep.Reason = "execution_mode is not auto"
		return rep, nil
	}

	th, err := risk.ProfileFor(st.RiskMode)
	if err != nil {
		rep.Status = StatusSkipped
		rep.Reason = "configuration error"
		return rep, fmt.Errorf("risk thresholds: %w", err)
	}
	rep.Thresholds = th

	// 3. Account snapshot. Without it no risk decision can be made, so a
	// failure here aborts the whole tick and the scheduler retries next time.
	acct, err := e.broker.GetAccount(ctx)
	if err != nil {
		rep.Status = StatusSkipped
		rep.Reason = "account snapshot unavailable"
		return rep, fmt.Errorf("get account: %w", err)
	}
	positions, err := e.broker.GetPositions(ctx)
	if err != nil {
		rep.Status = StatusSkipped
		rep.Reason = "positions unavailable"
		return rep, fmt.Errorf("get positions: %w", err)
	}

	pnlToday := acct.Equity - acct.LastEquity
	rep.Equity = acct.Equity
	rep.PnLToday = pnlToday
	rep.Positions = len(positions)
	mtxEquity.Set(acct.Equity)
	mtxPnLToday.Set(pnlToday)

	// 4. Whole-book liquidation rules. These outrank per-position TP/SL and
	// end the tick: after a close-all nothing else may run until the next
	// scheduled invocation.
	if len(positions) > 0 {
		if rule, reason := e.closeAllRule(now, acct, th, pnlToday); rule != "" {
			rep.Status = StatusClosedAll
			rep.Reason = reason
			mtxCloses.WithLabelValues(rule).Inc()

			errStr := ""
			if cerr := e.broker.CloseAll(ctx); cerr != nil {
				errStr = cerr.Error()
				rep.Errors = append(rep.Errors, fmt.Sprintf("close all: %v", cerr))
			}
			e.recordAction(rep.TickID, now, "close_all", "", reason, errStr)
			e.send(ctx, fmt.Sprintf("closed all positions: %s (pnl today %+.2f)", reason, pnlToday))
			return rep, nil
		}
	}

	// 5. Per-position take profit / stop loss. One symbol's failure never
	// blocks the rest.
	closed := map[string]bool{}
	for _, pos := range positions {
		var rule, reason string
		switch {
		case pos.UnrealizedPLPct >= th.TakeProfit:
			rule = "take_profit"
			reason = fmt.Sprintf("take profit (%.2f%%)", pos.UnrealizedPLPct*100)
		case pos.UnrealizedPLPct <= -th.StopLoss:
			rule = "stop_loss"
			reason = fmt.Sprintf("stop loss (%.2f%%)", pos.UnrealizedPLPct*100)
		default:
			continue
		}

		action := CloseAction{Symbol: pos.Symbol, Reason: reason}
		if cerr := e.broker.CloseSymbol(ctx, pos.Symbol); cerr != nil {
			action.Err = cerr.Error()
			rep.Errors = append(rep.Errors, fmt.Sprintf("close %s: %v", pos.Symbol, cerr))
		} else {
			closed[pos.Symbol] = true
			mtxCloses.WithLabelValues(rule).Inc()
			e.send(ctx, fmt.Sprintf("closed %s: %s", pos.Symbol, reason))
		}
		rep.Closed = append(rep.Closed, action)
		e.recordAction(rep.TickID, now, "close_symbol", pos.Symbol, reason, action.Err)
	}

	// 6. Conditional orders.
	rep.Triggers = e.book.Evaluate(ctx, now, e.fetchQuotes(ctx), e.broker)
	for _, tr := range rep.Triggers {
		mtxTriggers.WithLabelValues(string(tr.Outcome)).Inc()
		errStr := ""
		if tr.Err != nil {
			errStr = tr.Err.Error()
			rep.Errors = append(rep.Errors, fmt.Sprintf("pending %s: %v", tr.ID, tr.Err))
		}
		e.recordAction(rep.TickID, now, "pending_trigger", tr.Symbol, string(tr.Outcome), errStr)
		if tr.Outcome == pending.OutcomeTriggered {
			e.send(ctx, fmt.Sprintf("pending trade %s triggered: %s %s at %.2f", tr.ID, tr.Side, tr.Symbol, tr.Price))
		}
	}

	// 7. Auto-entry, only when flat and under the daily cap. Orders placed by
	// step 6 count as open exposure.
	remaining := len(positions) - len(closed) + triggeredCount(rep.Triggers)
	entered := false
	if remaining == 0 {
		entered = e.autoEnter(ctx, now, &rep, st)
	}

	// 8. Terminal status for the report.
	switch {
	case len(rep.Closed) > 0:
		rep.Status = StatusPartialClose
	case entered:
		rep.Status = StatusAutoEntry
	case len(rep.Triggers) > 0:
		rep.Status = StatusPendingProcessed
	default:
		rep.Status = StatusOK
	}
	return rep, nil
}

// closeAllRule returns the liquidation rule hit this tick, or "" if none.
// Forced close is checked first; the daily limits use equity as the base.
func (e *Engine) closeAllRule(now time.Time, acct broker.Account, th risk.Thresholds, pnlToday float64) (rule, reason string) {
	switch {
	case e.clock.PastForcedClose(now):
		return "forced_close", "forced end-of-day liquidation"
	case pnlToday >= acct.Equity*th.DailyTarget:
		return "daily_target", fmt.Sprintf("daily target reached (%+.2f)", pnlToday)
	case pnlToday <= -acct.Equity*th.DailyMaxLoss:
		return "daily_max_loss", fmt.Sprintf("daily max loss reached (%+.2f)", pnlToday)
	}
	return "", ""
}

// fetchQuotes pulls the latest price for every symbol with a pending order.
// A symbol whose quote fails is simply absent from the map; the book skips it
// this tick.
func (e *Engine) fetchQuotes(ctx context.Context) map[string]float64 {
	quotes := map[string]float64{}
	for _, sym := range e.book.PendingSymbols() {
		q, err := e.quotes.GetQuote(ctx, sym)
		if err != nil {
			log.Printf("[engine] quote %s: %v", sym, err)
			continue
		}
		quotes[sym] = q.Price
	}
	return quotes
}

// autoEnter runs step 7. It reports true only when an order was submitted.
// The cap is checked before the recommendation service is called.
func (e *Engine) autoEnter(ctx context.Context, now time.Time, rep *Report, st config.Status) bool {
	if st.TradesToday >= st.MaxTradesPerDay {
		rep.Entry = &EntryAction{Skipped: "cap-reached"}
		return false
	}
	if e.rec == nil {
		rep.Entry = &EntryAction{Skipped: "no-signal"}
		return false
	}

	pick, err := e.rec.Recommend(ctx)
	if err != nil {
		rep.Entry = &EntryAction{Skipped: "no-signal", Err: err.Error()}
		rep.Errors = append(rep.Errors, fmt.Sprintf("recommendation: %v", err))
		return false
	}
	side, ok := pick.Direction.Side()
	if !ok {
		rep.Entry = &EntryAction{Skipped: "no-signal"}
		return false
	}

	req := broker.OrderRequest{Symbol: pick.Symbol, Side: side, Qty: e.entryQty}
	order, err := e.broker.SubmitMarketOrder(ctx, req)
	if err != nil {
		rep.Entry = &EntryAction{Symbol: pick.Symbol, Side: side, Qty: e.entryQty, Err: err.Error()}
		rep.Errors = append(rep.Errors, fmt.Sprintf("auto-entry %s: %v", pick.Symbol, err))
		e.recordAction(rep.TickID, now, "auto_entry", pick.Symbol, string(pick.Direction), err.Error())
		return false
	}

	rep.Entry = &EntryAction{Symbol: pick.Symbol, Side: side, Qty: e.entryQty, OrderID: order.ID}
	mtxEntries.Inc()
	e.recordAction(rep.TickID, now, "auto_entry", pick.Symbol, string(pick.Direction), "")
	e.send(ctx, fmt.Sprintf("auto-entry: %s %s x%d (%s %+.2f%%)", side, pick.Symbol, e.entryQty, pick.Direction, pick.ChangePct))

	if _, err := e.store.IncrementTradesToday(); err != nil {
		log.Printf("[engine] increment trades counter: %v", err)
		rep.Errors = append(rep.Errors, fmt.Sprintf("increment trades counter: %v", err))
	} else {
		rep.TradesToday = st.TradesToday + 1
	}
	return true
}

func triggeredCount(triggers []pending.TriggerResult) int {
	n := 0
	for _, t := range triggers {
		if t.Outcome == pending.OutcomeTriggered {
			n++
		}
	}
	return n
}

// send delivers a notification best-effort. A failing channel is logged and
// otherwise ignored.
func (e *Engine) send(ctx context.Context, text string) {
	if err := e.notifier.Notify(ctx, text); err != nil {
		log.Printf("[engine] notify: %v", err)
	}
}

func (e *Engine) recordTick(rep Report) {
	err := e.journal.RecordTick(journal.TickRecord{
		TickID:      rep.TickID,
		Time:        rep.Time,
		Status:      string(rep.Status),
		Reason:      rep.Reason,
		Equity:      rep.Equity,
		PnLToday:    rep.PnLToday,
		Positions:   rep.Positions,
		TradesToday: rep.TradesToday,
	})
	if err != nil {
		log.Printf("[engine] journal tick: %v", err)
	}
}

func (e *Engine) recordAction(tickID string, now time.Time, kind, symbol, reason, errStr string) {
	err := e.journal.RecordAction(journal.ActionRecord{
		TickID: tickID,
		Time:   now,
		Kind:   kind,
		Symbol: symbol,
		Reason: reason,
		Err:    errStr,
	})
	if err != nil {
		log.Printf("[engine] journal action: %v", err)
	}
}
