// Package session answers two questions about wall-clock time: is the venue
// open right now, and has the end-of-day liquidation window started. All
// comparisons happen in the venue's civil time so DST transitions behave.
package session

import (
	"fmt"
	"time"
)

// Clock models a single venue's regular trading session. Weekends are never
// trading days; holiday calendars are out of scope.
type Clock struct {
	loc         *time.Location
	openHour    int
	openMin     int
	closeHour   int
	closeMin    int
	closeBuffer time.Duration
}

// New builds a Clock for the given IANA time zone and "HH:MM" open/close
// times. closeBuffer is how long before the close the forced-liquidation
// window starts.
func New(tz, open, close string, closeBuffer time.Duration) (*Clock, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load venue timezone %q: %w", tz, err)
	}

	oh, om, err := parseHHMM(open)
	if err != nil {
		return nil, fmt.Errorf("session open: %w", err)
	}
	ch, cm, err := parseHHMM(close)
	if err != nil {
		return nil, fmt.Errorf("session close: %w", err)
	}
	if closeBuffer < 0 {
		return nil, fmt.Errorf("close buffer must not be negative")
	}

	return &Clock{
		loc:         loc,
		openHour:    oh,
		openMin:     om,
		closeHour:   ch,
		closeMin:    cm,
		closeBuffer: closeBuffer,
	}, nil
}

// NewYorkEquities returns the clock for US equities regular hours,
// 09:30–16:00 America/New_York, with a 15 minute liquidation buffer.
func NewYorkEquities() *Clock {
	c, err := New("America/New_York", "09:30", "16:00", 15*time.Minute)
	if err != nil {
		// The zone is in the embedded tzdata on every supported platform.
		panic(err)
	}
	return c
}

func parseHHMM(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("parse %q as HH:MM: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// bounds returns today's open and close instants in venue time for the day
// containing now. Constructing them with time.Date in the venue location is
// what keeps DST transitions correct; a fixed UTC offset would drift twice a
// year.
func (c *Clock) bounds(now time.Time) (open, close time.Time) {
	local := now.In(c.loc)
	y, m, d := local.Date()
	open = time.Date(y, m, d, c.openHour, c.openMin, 0, 0, c.loc)
	close = time.Date(y, m, d, c.closeHour, c.closeMin, 0, 0, c.loc)
	return open, close
}

func (c *Clock) tradingDay(now time.Time) bool {
	switch now.In(c.loc).Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// InsideSession reports whether now falls within regular hours on a trading
// day. The open is inclusive, the close exclusive.
func (c *Clock) InsideSession(now time.Time) bool {
	if !c.tradingDay(now) {
		return false
	}
	open, close := c.bounds(now)
	local := now.In(c.loc)
	return !local.Before(open) && local.Before(close)
}

// PastForcedClose reports whether the pre-close liquidation window has been
// reached on a trading day.
func (c *Clock) PastForcedClose(now time.Time) bool {
	if !c.tradingDay(now) {
		return false
	}
	_, close := c.bounds(now)
	return !now.In(c.loc).Before(close.Add(-c.closeBuffer))
}

// Location exposes the venue time zone for display and journaling.
func (c *Clock) Location() *time.Location { return c.loc }
