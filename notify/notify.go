// Package notify sends best-effort text alerts. Delivery failure is an
// intentional isolation boundary: callers log the error and move on, a dead
// notifier must never fail a tick.
package notify

import "context"

// Notifier delivers one text alert.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Noop discards every alert. Used when no channel is configured and in tests.
type Noop struct{}

func (Noop) Notify(context.Context, string) error { return nil }
