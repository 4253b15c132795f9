// Package pending holds conditional orders waiting for a trigger price. The
// Book exclusively owns the records; callers get copies and mutate state only
// through its methods.
package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/bdvlabs/autopilot/broker"
	"github.com/bdvlabs/autopilot/pkg/atomicfile"
)

// Status is the lifecycle state of a conditional order. The three terminal
// states are never re-evaluated.
type Status string

const (
	StatusPending   Status = "pending"
	StatusTriggered Status = "triggered"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Trade is one conditional order. For buys the trigger fires when the price
// breaks out above TriggerPrice without exceeding MaxPrice; sells mirror the
// comparison downward.
type Trade struct {
	ID           string     `json:"id"`
	Symbol       string     `json:"symbol"`
	Side         broker.Side `json:"side"`
	Qty          int        `json:"qty"`
	TriggerPrice float64    `json:"trigger_price"`
	MaxPrice     *float64   `json:"max_price,omitempty"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Outcome classifies one Evaluate result.
type Outcome string

const (
	OutcomeExpired         Outcome = "expired"
	OutcomeTriggered       Outcome = "triggered"
	OutcomeTriggerDetected Outcome = "trigger_detected" // dry run, no order placed
	OutcomeSubmitFailed    Outcome = "submit_failed"
)

// TriggerResult reports what Evaluate did with one record.
type TriggerResult struct {
	ID      string
	Symbol  string
	Side    broker.Side
	Outcome Outcome
	Price   float64
	OrderID string
	Err     error
}

// Validation errors surfaced at the boundary. Nothing is mutated when these
// are returned.
var (
	ErrDuplicateID = errors.New("pending: duplicate trade id")
	ErrUnknownID   = errors.New("pending: unknown trade id")
)

// Submitter places the real order once a trigger fires. broker.Broker
// satisfies it.
type Submitter interface {
	SubmitMarketOrder(ctx context.Context, req broker.OrderRequest) (broker.Order, error)
}

// Book is the mutex-guarded collection of conditional orders, keyed by id.
// When opened with a path it snapshots itself to disk after every mutation.
// The admin commands run in a separate process against the same snapshot, so
// a file-backed book re-reads it before every operation; otherwise the next
// snapshot written here would drop records added over there.
type Book struct {
	mu     sync.Mutex
	path   string
	trades map[string]*Trade
}

// NewBook returns an in-memory book.
func NewBook() *Book {
	return &Book{trades: make(map[string]*Trade)}
}

// loadTrades reads a snapshot from path. A missing or malformed snapshot
// yields an empty map rather than an error.
func loadTrades(path string) map[string]*Trade {
	trades := make(map[string]*Trade)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[pending] read %s: %v; starting empty", path, err)
		}
		return trades
	}

	var list []*Trade
	if err := json.Unmarshal(data, &list); err != nil {
		log.Printf("[pending] parse %s: %v; starting empty", path, err)
		return trades
	}
	for _, t := range list {
		if t.ID == "" {
			continue
		}
		trades[t.ID] = t
	}
	return trades
}

// OpenBook loads a snapshot from path.
func OpenBook(path string) *Book {
	return &Book{path: path, trades: loadTrades(path)}
}

// reloadLocked refreshes the cached records from the snapshot so orders
// added or cancelled by another process are visible here. In-memory books
// keep their records.
func (b *Book) reloadLocked() {
	if b.path == "" {
		return
	}
	b.trades = loadTrades(b.path)
}

func (b *Book) saveLocked() {
	if b.path == "" {
		return
	}
	list := b.listLocked()
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		log.Printf("[pending] marshal snapshot: %v", err)
		return
	}
	// Snapshot is best-effort; the in-memory book stays authoritative.
	if err := atomicfile.WriteFile(b.path, data, 0o600); err != nil {
		log.Printf("[pending] persist snapshot: %v", err)
	}
}

func validate(t Trade) error {
	if t.ID == "" {
		return fmt.Errorf("pending: trade id is required")
	}
	if t.Symbol == "" {
		return fmt.Errorf("pending: trade %s: symbol is required", t.ID)
	}
	if _, ok := broker.ParseSide(string(t.Side)); !ok {
		return fmt.Errorf("pending: trade %s: unknown side %q", t.ID, t.Side)
	}
	if t.Qty <= 0 {
		return fmt.Errorf("pending: trade %s: qty must be positive", t.ID)
	}
	if t.TriggerPrice <= 0 {
		return fmt.Errorf("pending: trade %s: trigger price must be positive", t.ID)
	}
	return nil
}

// Add registers a new conditional order. Duplicate ids are rejected with
// ErrDuplicateID.
func (b *Book) Add(t Trade) (Trade, error) {
	if err := validate(t); err != nil {
		return Trade{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.reloadLocked()

	if _, exists := b.trades[t.ID]; exists {
		return Trade{}, fmt.Errorf("trade %q: %w", t.ID, ErrDuplicateID)
	}

	now := time.Now().UTC()
	t.Status = StatusPending
	t.CreatedAt = now
	t.UpdatedAt = now

	stored := t
	b.trades[t.ID] = &stored
	b.saveLocked()
	return t, nil
}

// Cancel marks an order cancelled. Cancelling an already-cancelled order is a
// no-op; an unknown id errors with ErrUnknownID; an order that already fired
// or expired refuses the transition.
func (b *Book) Cancel(id string) (Trade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reloadLocked()

	t, ok := b.trades[id]
	if !ok {
		return Trade{}, fmt.Errorf("trade %q: %w", id, ErrUnknownID)
	}

	switch t.Status {
	case StatusPending:
		t.Status = StatusCancelled
		t.UpdatedAt = time.Now().UTC()
		b.saveLocked()
	case StatusCancelled:
		// idempotent
	default:
		return Trade{}, fmt.Errorf("trade %q: cannot cancel, status is %s", id, t.Status)
	}
	return *t, nil
}

// Get returns a copy of one order.
func (b *Book) Get(id string) (Trade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reloadLocked()

	t, ok := b.trades[id]
	if !ok {
		return Trade{}, fmt.Errorf("trade %q: %w", id, ErrUnknownID)
	}
	return *t, nil
}

func (b *Book) listLocked() []Trade {
	out := make([]Trade, 0, len(b.trades))
	for _, t := range b.trades {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// List returns a copy of every order, oldest first.
func (b *Book) List() []Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reloadLocked()
	return b.listLocked()
}

// PendingSymbols returns the distinct symbols with at least one pending
// order, so the caller knows which quotes to fetch.
func (b *Book) PendingSymbols() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reloadLocked()

	seen := map[string]bool{}
	var out []string
	for _, t := range b.trades {
		if t.Status == StatusPending && !seen[t.Symbol] {
			seen[t.Symbol] = true
			out = append(out, t.Symbol)
		}
	}
	sort.Strings(out)
	return out
}

// triggerHit reports whether the price satisfies the trade's condition. Buys
// break out upward through the trigger, bounded above by MaxPrice; sells
// break down through the trigger, bounded below.
func triggerHit(t *Trade, price float64) bool {
	if t.Side == broker.Buy {
		if price < t.TriggerPrice {
			return false
		}
		return t.MaxPrice == nil || price <= *t.MaxPrice
	}
	if price > t.TriggerPrice {
		return false
	}
	return t.MaxPrice == nil || price >= *t.MaxPrice
}

// Evaluate walks every pending record once. Expiry wins over a simultaneously
// satisfied price condition. Records whose symbol has no quote this tick are
// skipped, not failed. With a nil submitter no orders are placed and satisfied
// triggers are only reported as detected; elapsed records are still marked
// expired either way. A failed submission keeps the record pending so the
// next tick retries it.
func (b *Book) Evaluate(ctx context.Context, now time.Time, quotes map[string]float64, sub Submitter) []TriggerResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reloadLocked()

	var results []TriggerResult
	dirty := false

	for _, t := range b.listLocked() {
		rec := b.trades[t.ID]
		if rec.Status != StatusPending {
			continue
		}

		if rec.ValidUntil != nil && now.After(*rec.ValidUntil) {
			rec.Status = StatusExpired
			rec.UpdatedAt = now.UTC()
			dirty = true
			results = append(results, TriggerResult{
				ID: rec.ID, Symbol: rec.Symbol, Side: rec.Side, Outcome: OutcomeExpired,
			})
			continue
		}

		price, ok := quotes[rec.Symbol]
		if !ok {
			continue
		}
		if !triggerHit(rec, price) {
			continue
		}

		if sub == nil {
			results = append(results, TriggerResult{
				ID: rec.ID, Symbol: rec.Symbol, Side: rec.Side,
				Outcome: OutcomeTriggerDetected, Price: price,
			})
			continue
		}

		order, err := sub.SubmitMarketOrder(ctx, broker.OrderRequest{
			Symbol: rec.Symbol,
			Side:   rec.Side,
			Qty:    rec.Qty,
		})
		if err != nil {
			results = append(results, TriggerResult{
				ID: rec.ID, Symbol: rec.Symbol, Side: rec.Side,
				Outcome: OutcomeSubmitFailed, Price: price, Err: err,
			})
			continue
		}

		rec.Status = StatusTriggered
		rec.UpdatedAt = now.UTC()
		dirty = true
		results = append(results, TriggerResult{
			ID: rec.ID, Symbol: rec.Symbol, Side: rec.Side,
			Outcome: OutcomeTriggered, Price: price, OrderID: order.ID,
		})
	}

	if dirty {
		b.saveLocked()
	}
	return results
}
