// Package recommend produces the opaque directional signal the control loop
// uses for auto-entry. The signal is a black box to the loop: symbol plus
// direction, nothing more.
package recommend

import (
	"context"
	"log"
	"math"

	"github.com/bdvlabs/autopilot/broker"
)

// Direction is the bias of a pick.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

// Side maps the bias to an order side. Neutral has no side.
func (d Direction) Side() (broker.Side, bool) {
	switch d {
	case Bullish:
		return broker.Buy, true
	case Bearish:
		return broker.Sell, true
	}
	return "", false
}

// Pick is one recommendation. A Neutral pick means "no trade".
type Pick struct {
	Symbol    string
	Direction Direction
	ChangePct float64
}

// Recommender yields at most one directional pick per call.
type Recommender interface {
	Recommend(ctx context.Context) (Pick, error)
}

// BarSource supplies the percent change between the last two daily closes.
// The alpaca client satisfies it.
type BarSource interface {
	DailyChangePct(ctx context.Context, symbol string) (float64, error)
}

// DailyChange scores a watchlist by previous-day momentum: a close-to-close
// move beyond the threshold is a directional pick, anything inside the band
// is neutral.
type DailyChange struct {
	bars         BarSource
	symbols      []string
	thresholdPct float64
}

// NewDailyChange builds the recommender. thresholdPct is in percent; zero
// defaults to 0.8.
func NewDailyChange(bars BarSource, symbols []string, thresholdPct float64) *DailyChange {
	if thresholdPct <= 0 {
		thresholdPct = 0.8
	}
	return &DailyChange{bars: bars, symbols: symbols, thresholdPct: thresholdPct}
}

// Recommend returns the strongest directional pick on the watchlist, or a
// Neutral pick when no symbol clears the threshold. A symbol whose data fetch
// fails is skipped; the rest of the list still gets scored.
func (r *DailyChange) Recommend(ctx context.Context) (Pick, error) {
	best := Pick{Direction: Neutral}

	for _, sym := range r.symbols {
		change, err := r.bars.DailyChangePct(ctx, sym)
		if err != nil {
			log.Printf("[recommend] %s: %v", sym, err)
			continue
		}
		if math.Abs(change) <= r.thresholdPct {
			continue
		}
		if best.Direction != Neutral && math.Abs(change) <= math.Abs(best.ChangePct) {
			continue
		}

		best = Pick{Symbol: sym, ChangePct: change, Direction: Bullish}
		if change < 0 {
			best.Direction = Bearish
		}
	}

	return best, nil
}
