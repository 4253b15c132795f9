package pending

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdvlabs/autopilot/broker"
)

type fakeSubmitter struct {
	calls []broker.OrderRequest
	err   error
}

func (f *fakeSubmitter) SubmitMarketOrder(_ context.Context, req broker.OrderRequest) (broker.Order, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return broker.Order{}, f.err
	}
	return broker.Order{ID: "ord-1", Symbol: req.Symbol, Side: req.Side, Qty: req.Qty, Status: "accepted"}, nil
}

func ptr[T any](v T) *T { return &v }

func breakout(id string) Trade {
	return Trade{
		ID:           id,
		Symbol:       "QQQ",
		Side:         broker.Buy,
		Qty:          1,
		TriggerPrice: 445,
		MaxPrice:     ptr(446.0),
	}
}

func TestAddRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	b := NewBook()
	_, err := b.Add(breakout("pt-1"))
	require.NoError(t, err)

	_, err = b.Add(breakout("pt-1"))
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Len(t, b.List(), 1)
}

func TestAddValidation(t *testing.T) {
	t.Parallel()

	b := NewBook()

	bad := breakout("pt-1")
	bad.Qty = 0
	_, err := b.Add(bad)
	assert.Error(t, err)

	bad = breakout("pt-2")
	bad.Side = "hold"
	_, err = b.Add(bad)
	assert.Error(t, err)

	bad = breakout("")
	_, err = b.Add(bad)
	assert.Error(t, err)

	assert.Empty(t, b.List())
}

func TestCancel(t *testing.T) {
	t.Parallel()

	b := NewBook()
	_, err := b.Add(breakout("pt-1"))
	require.NoError(t, err)

	tr, err := b.Cancel("pt-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, tr.Status)

	// Idempotent on repeat.
	tr, err = b.Cancel("pt-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, tr.Status)

	_, err = b.Cancel("nope")
	assert.ErrorIs(t, err, ErrUnknownID)
}

func TestEvaluateBreakoutWindow(t *testing.T) {
	t.Parallel()

	b := NewBook()
	_, err := b.Add(breakout("pt-1"))
	require.NoError(t, err)

	sub := &fakeSubmitter{}
	now := time.Now()

	// Below the trigger: nothing happens.
	results := b.Evaluate(context.Background(), now, map[string]float64{"QQQ": 444.50}, sub)
	assert.Empty(t, results)
	assert.Empty(t, sub.calls)

	// Inside the window: one order, status becomes triggered.
	results = b.Evaluate(context.Background(), now, map[string]float64{"QQQ": 445.50}, sub)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeTriggered, results[0].Outcome)
	assert.Equal(t, "ord-1", results[0].OrderID)
	require.Len(t, sub.calls, 1)

	tr, err := b.Get("pt-1")
	require.NoError(t, err)
	assert.Equal(t, StatusTriggered, tr.Status)
}

func TestEvaluateAboveMaxPriceDoesNotTrigger(t *testing.T) {
	t.Parallel()

	b := NewBook()
	_, err := b.Add(breakout("pt-1"))
	require.NoError(t, err)

	sub := &fakeSubmitter{}
	results := b.Evaluate(context.Background(), time.Now(), map[string]float64{"QQQ": 447.00}, sub)
	assert.Empty(t, results)
	assert.Empty(t, sub.calls)
}

func TestEvaluateSellSideMirror(t *testing.T) {
	t.Parallel()

	b := NewBook()
	_, err := b.Add(Trade{
		ID:           "pt-sell",
		Symbol:       "SPY",
		Side:         broker.Sell,
		Qty:          2,
		TriggerPrice: 500,
		MaxPrice:     ptr(498.0), // floor on the way down
	})
	require.NoError(t, err)

	sub := &fakeSubmitter{}

	// Above the trigger: no fire.
	results := b.Evaluate(context.Background(), time.Now(), map[string]float64{"SPY": 501}, sub)
	assert.Empty(t, results)

	// Below the floor: no fire.
	results = b.Evaluate(context.Background(), time.Now(), map[string]float64{"SPY": 497}, sub)
	assert.Empty(t, results)

	// Inside the window.
	results = b.Evaluate(context.Background(), time.Now(), map[string]float64{"SPY": 499}, sub)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeTriggered, results[0].Outcome)
	require.Len(t, sub.calls, 1)
	assert.Equal(t, broker.Sell, sub.calls[0].Side)
	assert.Equal(t, 2, sub.calls[0].Qty)
}

func TestEvaluateTerminalStatesAreNoOps(t *testing.T) {
	t.Parallel()

	b := NewBook()
	_, err := b.Add(breakout("pt-1"))
	require.NoError(t, err)

	sub := &fakeSubmitter{}
	quotes := map[string]float64{"QQQ": 445.50}

	results := b.Evaluate(context.Background(), time.Now(), quotes, sub)
	require.Len(t, results, 1)
	require.Len(t, sub.calls, 1)

	// Re-evaluating a triggered record must not submit again.
	results = b.Evaluate(context.Background(), time.Now(), quotes, sub)
	assert.Empty(t, results)
	assert.Len(t, sub.calls, 1)
}

func TestEvaluateExpiryBeatsPriceCondition(t *testing.T) {
	t.Parallel()

	b := NewBook()
	tr := breakout("pt-1")
	tr.ValidUntil = ptr(time.Now().Add(-time.Minute))
	_, err := b.Add(tr)
	require.NoError(t, err)

	sub := &fakeSubmitter{}
	// Price satisfies the trigger, but the record is already expired.
	results := b.Evaluate(context.Background(), time.Now(), map[string]float64{"QQQ": 445.50}, sub)

	require.Len(t, results, 1)
	assert.Equal(t, OutcomeExpired, results[0].Outcome)
	assert.Empty(t, sub.calls)

	got, err := b.Get("pt-1")
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)
}

func TestEvaluateDryRunKeepsTriggerPending(t *testing.T) {
	t.Parallel()

	b := NewBook()
	_, err := b.Add(breakout("pt-1"))
	require.NoError(t, err)

	results := b.Evaluate(context.Background(), time.Now(), map[string]float64{"QQQ": 445.50}, nil)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeTriggerDetected, results[0].Outcome)

	got, err := b.Get("pt-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestEvaluateDryRunStillExpires(t *testing.T) {
	t.Parallel()

	b := NewBook()
	tr := breakout("pt-1")
	tr.ValidUntil = ptr(time.Now().Add(-time.Minute))
	_, err := b.Add(tr)
	require.NoError(t, err)

	// Expiry is a fact of the clock, not of order placement, so it sticks
	// even without a submitter.
	results := b.Evaluate(context.Background(), time.Now(), map[string]float64{"QQQ": 445.50}, nil)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeExpired, results[0].Outcome)

	got, err := b.Get("pt-1")
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)
}

func TestEvaluateMissingQuoteSkips(t *testing.T) {
	t.Parallel()

	b := NewBook()
	_, err := b.Add(breakout("pt-1"))
	require.NoError(t, err)

	sub := &fakeSubmitter{}
	results := b.Evaluate(context.Background(), time.Now(), map[string]float64{}, sub)
	assert.Empty(t, results)

	got, err := b.Get("pt-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestEvaluateSubmitFailureKeepsPending(t *testing.T) {
	t.Parallel()

	b := NewBook()
	_, err := b.Add(breakout("pt-1"))
	require.NoError(t, err)

	sub := &fakeSubmitter{err: errors.New("venue down")}
	results := b.Evaluate(context.Background(), time.Now(), map[string]float64{"QQQ": 445.50}, sub)

	require.Len(t, results, 1)
	assert.Equal(t, OutcomeSubmitFailed, results[0].Outcome)
	assert.Error(t, results[0].Err)

	got, err := b.Get("pt-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status, "failed submit retries next tick")
}

func TestPendingSymbols(t *testing.T) {
	t.Parallel()

	b := NewBook()
	_, err := b.Add(breakout("pt-1"))
	require.NoError(t, err)

	other := breakout("pt-2")
	other.Symbol = "SPY"
	_, err = b.Add(other)
	require.NoError(t, err)

	_, err = b.Cancel("pt-2")
	require.NoError(t, err)

	assert.Equal(t, []string{"QQQ"}, b.PendingSymbols())
}

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pending.json")

	b := OpenBook(path)
	_, err := b.Add(breakout("pt-1"))
	require.NoError(t, err)
	_, err = b.Cancel("pt-1")
	require.NoError(t, err)

	reloaded := OpenBook(path)
	got, err := reloaded.Get("pt-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestBooksInSeparateProcessesStayCoherent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pending.json")

	// The daemon and an admin command each hold their own handle on the
	// snapshot.
	daemon := OpenBook(path)
	admin := OpenBook(path)

	_, err := admin.Add(breakout("pt-1"))
	require.NoError(t, err)

	// The daemon sees the operator's new order on its next read.
	assert.Equal(t, []string{"QQQ"}, daemon.PendingSymbols())

	sub := &fakeSubmitter{}
	results := daemon.Evaluate(context.Background(), time.Now(), map[string]float64{"QQQ": 445.50}, sub)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeTriggered, results[0].Outcome)

	// The daemon's own snapshot carries the record instead of dropping it.
	got, err := OpenBook(path).Get("pt-1")
	require.NoError(t, err)
	assert.Equal(t, StatusTriggered, got.Status)
}
