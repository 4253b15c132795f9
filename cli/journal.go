package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bdvlabs/autopilot/config"
	"github.com/bdvlabs/autopilot/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query tick and action history",
	Long: `Query and display control-loop records from the SQLite journal.

Subcommands:
  tick   - Show a tick and its actions by ID
  today  - List ticks recorded today
  day    - List ticks recorded on a specific day

Examples:
  autopilot journal tick <tick-id>
  autopilot journal today
  autopilot journal day 2026-01-15`,
}

var journalTickCmd = &cobra.Command{
	Use:   "tick <tick-id>",
	Short: "Show a tick and its actions",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTick,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List ticks recorded today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List ticks recorded on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTickCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
}

func openSQLiteJournal() (*journal.SQLite, *config.Settings, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}
	if cfg.Journal.Type != "" && cfg.Journal.Type != "sqlite" {
		return nil, nil, fmt.Errorf("journal queries need a sqlite journal, settings use %q", cfg.Journal.Type)
	}
	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	return j, cfg, nil
}

func printTick(t journal.TickRecord) {
	fmt.Printf("%s  %s  status=%-18s reason=%-32q equity=%.2f pnl=%+.2f positions=%d trades=%d\n",
		t.TickID, t.Time.Format("15:04:05"), t.Status, t.Reason, t.Equity, t.PnLToday, t.Positions, t.TradesToday)
}

func printAction(a journal.ActionRecord) {
	fmt.Printf("  %s  %-15s %-6s %s", a.Time.Format("15:04:05"), a.Kind, a.Symbol, a.Reason)
	if a.Err != "" {
		fmt.Printf("  err=%s", a.Err)
	}
	fmt.Println()
}

func runJournalTick(cmd *cobra.Command, args []string) error {
	j, _, err := openSQLiteJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	tick, err := j.GetTick(args[0])
	if err != nil {
		return fmt.Errorf("get tick: %w", err)
	}
	printTick(tick)

	actions, err := j.ListActionsByTick(args[0])
	if err != nil {
		return fmt.Errorf("list actions: %w", err)
	}
	for _, a := range actions {
		printAction(a)
	}
	return nil
}

func listDay(day string) error {
	j, cfg, err := openSQLiteJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	loc, err := time.LoadLocation(cfg.Venue.Timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	if day == "" {
		day = time.Now().In(loc).Format("2006-01-02")
	}
	start, end, err := dayBounds(loc, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	ticks, err := j.ListTicksBetween(start, end)
	if err != nil {
		return fmt.Errorf("query ticks: %w", err)
	}
	if len(ticks) == 0 {
		fmt.Printf("no ticks recorded on %s\n", day)
		return nil
	}
	for _, t := range ticks {
		printTick(t)
	}
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return listDay("")
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return listDay(args[0])
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start, end, nil
}
