// Package config holds the two configuration layers of the bot: static
// Settings loaded once at startup, and the mutable runtime Store shared
// between the control loop and the administrative commands.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the static process configuration.
type Settings struct {
	Venue   VenueSettings   `json:"venue" yaml:"venue"`
	Trading TradingSettings `json:"trading" yaml:"trading"`
	State   StateSettings   `json:"state" yaml:"state"`
	Journal JournalSettings `json:"journal" yaml:"journal"`
	Run     RunSettings     `json:"run" yaml:"run"`
}

// VenueSettings describes the trading session of the venue.
type VenueSettings struct {
	Timezone    string `json:"timezone" yaml:"timezone"`
	Open        string `json:"open" yaml:"open"`   // "09:30"
	Close       string `json:"close" yaml:"close"` // "16:00"
	CloseBuffer string `json:"close_buffer" yaml:"close_buffer"`
}

// TradingSettings controls auto-entry behavior.
type TradingSettings struct {
	Symbols            []string `json:"symbols" yaml:"symbols"`
	EntryQty           int      `json:"entry_qty" yaml:"entry_qty"`
	ChangeThresholdPct float64  `json:"change_threshold_pct" yaml:"change_threshold_pct"`
}

// StateSettings locates the durable runtime state files.
type StateSettings struct {
	ConfigPath  string `json:"config_path" yaml:"config_path"`
	PendingPath string `json:"pending_path" yaml:"pending_path"`
}

// JournalSettings selects the tick/action history backend.
type JournalSettings struct {
	Type        string `json:"type" yaml:"type"` // "sqlite", "csv" or "none"
	DBPath      string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	TicksFile   string `json:"ticks_file,omitempty" yaml:"ticks_file,omitempty"`
	ActionsFile string `json:"actions_file,omitempty" yaml:"actions_file,omitempty"`
}

// RunSettings controls the daemon loop.
type RunSettings struct {
	Interval    string `json:"interval" yaml:"interval"`
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr"`
}

// ParseCloseBuffer converts the close buffer string to a duration.
func (v VenueSettings) ParseCloseBuffer() (time.Duration, error) {
	if v.CloseBuffer == "" {
		return 15 * time.Minute, nil
	}
	return time.ParseDuration(v.CloseBuffer)
}

// ParseInterval converts the tick interval string to a duration.
func (r RunSettings) ParseInterval() (time.Duration, error) {
	if r.Interval == "" {
		return time.Minute, nil
	}
	return time.ParseDuration(r.Interval)
}

// LoadSettings loads settings from a file, trying YAML first and falling back
// to JSON.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	s := DefaultSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		if jerr := json.Unmarshal(data, s); jerr != nil {
			return nil, fmt.Errorf("parse settings (tried YAML and JSON): %w", err)
		}
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// Validate checks the settings for obvious misconfiguration.
func (s *Settings) Validate() error {
	if s.Venue.Timezone == "" {
		return fmt.Errorf("venue.timezone is required")
	}
	if s.Venue.Open == "" || s.Venue.Close == "" {
		return fmt.Errorf("venue.open and venue.close are required")
	}
	if _, err := s.Venue.ParseCloseBuffer(); err != nil {
		return fmt.Errorf("venue.close_buffer: %w", err)
	}
	if len(s.Trading.Symbols) == 0 {
		return fmt.Errorf("trading.symbols must list at least one symbol")
	}
	if s.Trading.EntryQty <= 0 {
		return fmt.Errorf("trading.entry_qty must be positive")
	}
	if s.State.ConfigPath == "" {
		return fmt.Errorf("state.config_path is required")
	}
	switch s.Journal.Type {
	case "sqlite":
		if s.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite journal")
		}
	case "csv":
		if s.Journal.TicksFile == "" || s.Journal.ActionsFile == "" {
			return fmt.Errorf("journal ticks_file and actions_file required for csv journal")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}
	if _, err := s.Run.ParseInterval(); err != nil {
		return fmt.Errorf("run.interval: %w", err)
	}
	return nil
}

// DefaultSettings returns settings for US equities on the Alpaca paper
// environment with state kept in the working directory.
func DefaultSettings() *Settings {
	return &Settings{
		Venue: VenueSettings{
			Timezone:    "America/New_York",
			Open:        "09:30",
			Close:       "16:00",
			CloseBuffer: "15m",
		},
		Trading: TradingSettings{
			Symbols:            []string{"QQQ", "SPY", "NVDA"},
			EntryQty:           1,
			ChangeThresholdPct: 0.8,
		},
		State: StateSettings{
			ConfigPath:  "./autopilot-config.json",
			PendingPath: "./autopilot-pending.json",
		},
		Journal: JournalSettings{
			Type:   "sqlite",
			DBPath: "./autopilot.sqlite",
		},
		Run: RunSettings{
			Interval:    "1m",
			MetricsAddr: ":9090",
		},
	}
}

// SaveSettings writes settings to a file, YAML for .yaml/.yml extensions and
// indented JSON otherwise.
func (s *Settings) SaveSettings(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}
