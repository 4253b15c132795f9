package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/bdvlabs/autopilot/pkg/atomicfile"
	"github.com/bdvlabs/autopilot/risk"
)

// ExecutionMode gates whether the control loop may touch the broker at all.
type ExecutionMode string

const (
	Manual ExecutionMode = "manual"
	Auto   ExecutionMode = "auto"
)

// ParseExecutionMode validates a string against the known modes.
func ParseExecutionMode(s string) (ExecutionMode, error) {
	switch ExecutionMode(s) {
	case Manual, Auto:
		return ExecutionMode(s), nil
	}
	return "", fmt.Errorf("unknown execution mode %q (want manual|auto)", s)
}

// Status is a consistent view of the runtime configuration. MaxTradesPerDay
// is always recomputed from RiskMode on the way out, never trusted from a
// stored value.
type Status struct {
	ExecutionMode   ExecutionMode `json:"execution_mode"`
	RiskMode        risk.Mode     `json:"risk_mode"`
	MaxTradesPerDay int           `json:"max_trades_per_day"`
	TradesToday     int           `json:"trades_today"`
}

// persisted is the on-disk shape. The derived cap is deliberately absent so a
// hand-edited file can never smuggle a stale value back in.
type persisted struct {
	ExecutionMode ExecutionMode `json:"execution_mode"`
	RiskMode      risk.Mode     `json:"risk_mode"`
	TradesToday   int           `json:"trades_today"`
}

// Store is the runtime configuration shared between the control loop and the
// administrative commands. The admin commands run in a separate process
// against the same file, so in-memory state is only a cache: every access
// re-reads the file under the mutex before acting, and mutations apply to the
// freshly loaded state. Without the re-read a daemon persist would silently
// revert an operator change made between ticks.
type Store struct {
	mu    sync.Mutex
	path  string
	state persisted
}

// loadState reads runtime state from path. A missing or malformed file yields
// defaults (manual, low risk, zero trades) rather than an error.
func loadState(path string) persisted {
	def := persisted{
		ExecutionMode: Manual,
		RiskMode:      risk.Low,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[config] read %s: %v; using defaults", path, err)
		}
		return def
	}

	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		log.Printf("[config] parse %s: %v; using defaults", path, err)
		return def
	}
	if !p.RiskMode.Valid() {
		log.Printf("[config] %s has unknown risk mode %q; using defaults", path, p.RiskMode)
		return def
	}
	if _, err := ParseExecutionMode(string(p.ExecutionMode)); err != nil {
		log.Printf("[config] %s: %v; using defaults", path, err)
		return def
	}
	if p.TradesToday < 0 {
		p.TradesToday = 0
	}
	return p
}

// OpenStore loads runtime state from path.
func OpenStore(path string) *Store {
	s := &Store{
		path: path,
		state: persisted{
			ExecutionMode: Manual,
			RiskMode:      risk.Low,
		},
	}
	if path != "" {
		s.state = loadState(path)
	}
	return s
}

// NewStore returns an in-memory store that never persists. Used by tests and
// dry runs.
func NewStore() *Store {
	return OpenStore("")
}

// reloadLocked refreshes the cached state from the file so changes written by
// another process are visible here. In-memory stores keep their state.
func (s *Store) reloadLocked() {
	if s.path == "" {
		return
	}
	s.state = loadState(s.path)
}

func (s *Store) statusLocked() Status {
	cap, err := risk.MaxTradesPerDay(s.state.RiskMode)
	if err != nil {
		// Unreachable: every mutation path validates the mode first.
		log.Printf("[config] %v", err)
	}
	return Status{
		ExecutionMode:   s.state.ExecutionMode,
		RiskMode:        s.state.RiskMode,
		MaxTradesPerDay: cap,
		TradesToday:     s.state.TradesToday,
	}
}

func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config state: %w", err)
	}
	if err := atomicfile.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("persist config state: %w", err)
	}
	return nil
}

// Status returns the current configuration with the trade cap re-derived
// from the risk mode.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadLocked()
	return s.statusLocked()
}

// SetExecutionMode switches between manual and auto. It does not touch the
// trade limits.
func (s *Store) SetExecutionMode(m ExecutionMode) (Status, error) {
	if _, err := ParseExecutionMode(string(m)); err != nil {
		return Status{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadLocked()
	s.state.ExecutionMode = m
	if err := s.persistLocked(); err != nil {
		return Status{}, err
	}
	return s.statusLocked(), nil
}

// SetRiskMode switches the risk appetite. The daily trade cap follows the
// mode automatically.
func (s *Store) SetRiskMode(m risk.Mode) (Status, error) {
	if _, err := risk.ParseMode(string(m)); err != nil {
		return Status{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadLocked()
	s.state.RiskMode = m
	if err := s.persistLocked(); err != nil {
		return Status{}, err
	}
	return s.statusLocked(), nil
}

// ResetTradesToday zeroes the daily counter. Intended to run once per
// trading day.
func (s *Store) ResetTradesToday() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadLocked()
	s.state.TradesToday = 0
	if err := s.persistLocked(); err != nil {
		return Status{}, err
	}
	return s.statusLocked(), nil
}

// IncrementTradesToday bumps the daily counter after a successful
// auto-entry.
func (s *Store) IncrementTradesToday() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadLocked()
	s.state.TradesToday++
	if err := s.persistLocked(); err != nil {
		return Status{}, err
	}
	return s.statusLocked(), nil
}
