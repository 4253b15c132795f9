package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bdvlabs/autopilot/broker"
	"github.com/bdvlabs/autopilot/pending"
	"github.com/bdvlabs/autopilot/pkg/id"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Manage conditional breakout orders",
	Long: `Manage the book of conditional orders the loop evaluates each tick.

Subcommands:
  list   - List all conditional orders
  add    - Register a new conditional order
  cancel - Cancel a pending conditional order
  check  - Dry-run trigger evaluation against live quotes

Examples:
  autopilot pending add --symbol QQQ --side buy --qty 1 --trigger 445 --max 446
  autopilot pending list
  autopilot pending cancel <id>
  autopilot pending check`,
}

var pendingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all conditional orders",
	Args:  cobra.NoArgs,
	RunE:  runPendingList,
}

var pendingAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new conditional order",
	Args:  cobra.NoArgs,
	RunE:  runPendingAdd,
}

var pendingCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a pending conditional order",
	Args:  cobra.ExactArgs(1),
	RunE:  runPendingCancel,
}

var pendingCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Dry-run trigger evaluation against live quotes",
	Long: `Fetch live quotes for every pending symbol and report which orders
would fire right now. No orders are submitted; orders past their expiry are
marked expired, as they would be on the next tick.`,
	Args: cobra.NoArgs,
	RunE: runPendingCheck,
}

var (
	pendingSymbol  string
	pendingSide    string
	pendingQty     int
	pendingTrigger float64
	pendingMax     float64
	pendingUntil   string
)

func init() {
	rootCmd.AddCommand(pendingCmd)
	pendingCmd.AddCommand(pendingListCmd)
	pendingCmd.AddCommand(pendingAddCmd)
	pendingCmd.AddCommand(pendingCancelCmd)
	pendingCmd.AddCommand(pendingCheckCmd)

	pendingAddCmd.Flags().StringVar(&pendingSymbol, "symbol", "", "ticker symbol (required)")
	pendingAddCmd.Flags().StringVar(&pendingSide, "side", "buy", "order side: buy or sell")
	pendingAddCmd.Flags().IntVar(&pendingQty, "qty", 1, "order quantity in shares")
	pendingAddCmd.Flags().Float64Var(&pendingTrigger, "trigger", 0, "trigger price (required)")
	pendingAddCmd.Flags().Float64Var(&pendingMax, "max", 0, "price ceiling for buys, floor for sells (0 = none)")
	pendingAddCmd.Flags().StringVar(&pendingUntil, "until", "", "expiry as RFC3339 timestamp (empty = good till cancelled)")
	pendingAddCmd.MarkFlagRequired("symbol")
	pendingAddCmd.MarkFlagRequired("trigger")
}

func openBook() (*pending.Book, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return pending.OpenBook(cfg.State.PendingPath), nil
}

func printTrade(t pending.Trade) {
	limit := "-"
	if t.MaxPrice != nil {
		limit = fmt.Sprintf("%.2f", *t.MaxPrice)
	}
	until := "gtc"
	if t.ValidUntil != nil {
		until = t.ValidUntil.Format(time.RFC3339)
	}
	fmt.Printf("%-28s %-6s %-4s %4d  trigger=%.2f limit=%s until=%s status=%s\n",
		t.ID, t.Symbol, t.Side, t.Qty, t.TriggerPrice, limit, until, t.Status)
}

func runPendingList(cmd *cobra.Command, args []string) error {
	book, err := openBook()
	if err != nil {
		return err
	}

	trades := book.List()
	if len(trades) == 0 {
		fmt.Println("no conditional orders")
		return nil
	}
	for _, t := range trades {
		printTrade(t)
	}
	return nil
}

func runPendingAdd(cmd *cobra.Command, args []string) error {
	side, ok := broker.ParseSide(pendingSide)
	if !ok {
		return fmt.Errorf("invalid side %q, want buy or sell", pendingSide)
	}

	trade := pending.Trade{
		ID:           id.New(),
		Symbol:       pendingSymbol,
		Side:         side,
		Qty:          pendingQty,
		TriggerPrice: pendingTrigger,
	}
	if pendingMax > 0 {
		limit := pendingMax
		trade.MaxPrice = &limit
	}
	if pendingUntil != "" {
		until, err := time.Parse(time.RFC3339, pendingUntil)
		if err != nil {
			return fmt.Errorf("until: %w", err)
		}
		trade.ValidUntil = &until
	}

	book, err := openBook()
	if err != nil {
		return err
	}
	added, err := book.Add(trade)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Registered conditional order\n")
	printTrade(added)
	return nil
}

func runPendingCancel(cmd *cobra.Command, args []string) error {
	book, err := openBook()
	if err != nil {
		return err
	}
	t, err := book.Cancel(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("✓ Cancelled %s\n", t.ID)
	return nil
}

func runPendingCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	quotes := map[string]float64{}
	for _, sym := range a.book.PendingSymbols() {
		q, err := a.broker.GetQuote(ctx, sym)
		if err != nil {
			fmt.Printf("quote %s: %v\n", sym, err)
			continue
		}
		quotes[sym] = q.Price
	}

	results := a.book.Evaluate(ctx, time.Now(), quotes, nil)
	if len(results) == 0 {
		fmt.Println("nothing would fire")
		return nil
	}
	for _, r := range results {
		fmt.Printf("%-28s %-6s %-4s %-16s price=%.2f\n", r.ID, r.Symbol, r.Side, r.Outcome, r.Price)
	}
	return nil
}
