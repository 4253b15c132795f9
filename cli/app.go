package cli

import (
	"fmt"

	"github.com/bdvlabs/autopilot/broker/alpaca"
	"github.com/bdvlabs/autopilot/config"
	"github.com/bdvlabs/autopilot/engine"
	"github.com/bdvlabs/autopilot/journal"
	"github.com/bdvlabs/autopilot/notify"
	"github.com/bdvlabs/autopilot/pending"
	"github.com/bdvlabs/autopilot/recommend"
	"github.com/bdvlabs/autopilot/session"
)

func loadSettings() (*config.Settings, error) {
	if settingsPath == "" {
		return config.DefaultSettings(), nil
	}
	return config.LoadSettings(settingsPath)
}

func newJournal(cfg *config.Settings) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "csv":
		return journal.NewCSV(cfg.Journal.TicksFile, cfg.Journal.ActionsFile)
	case "none":
		return journal.Noop{}, nil
	default:
		return journal.NewSQLite(cfg.Journal.DBPath)
	}
}

// app holds the fully wired runtime for commands that talk to the venue.
// Commands that only mutate local state (config, pending add/cancel) load
// the pieces they need directly instead.
type app struct {
	settings *config.Settings
	store    *config.Store
	book     *pending.Book
	journal  journal.Journal
	clock    *session.Clock
	broker   *alpaca.Client
	engine   *engine.Engine
}

func newApp() (*app, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	buf, err := cfg.Venue.ParseCloseBuffer()
	if err != nil {
		return nil, fmt.Errorf("close buffer: %w", err)
	}
	clock, err := session.New(cfg.Venue.Timezone, cfg.Venue.Open, cfg.Venue.Close, buf)
	if err != nil {
		return nil, fmt.Errorf("session clock: %w", err)
	}

	client, err := alpaca.NewClientFromEnv()
	if err != nil {
		return nil, fmt.Errorf("brokerage client: %w", err)
	}

	j, err := newJournal(cfg)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	store := config.OpenStore(cfg.State.ConfigPath)
	book := pending.OpenBook(cfg.State.PendingPath)

	eng, err := engine.New(engine.Deps{
		Store:       store,
		Clock:       clock,
		Broker:      client,
		Quotes:      client,
		Book:        book,
		Recommender: recommend.NewDailyChange(client, cfg.Trading.Symbols, cfg.Trading.ChangeThresholdPct),
		Notifier:    notify.FromEnv(),
		Journal:     j,
		EntryQty:    cfg.Trading.EntryQty,
	})
	if err != nil {
		j.Close()
		return nil, err
	}

	return &app{
		settings: cfg,
		store:    store,
		book:     book,
		journal:  j,
		clock:    clock,
		broker:   client,
		engine:   eng,
	}, nil
}

func (a *app) Close() {
	if err := a.journal.Close(); err != nil {
		fmt.Printf("close journal: %v\n", err)
	}
}
