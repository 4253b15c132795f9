package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Execute a single tick and print the decision report",
	Long: `Run one invocation of the control loop and print the report as JSON.

Useful for cron-style scheduling and for inspecting what the loop would
do right now.

Example:
  autopilot tick --settings autopilot.yaml`,
	Args: cobra.NoArgs,
	RunE: runTick,
}

func init() {
	rootCmd.AddCommand(tickCmd)
}

func runTick(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rep, tickErr := a.engine.Tick(context.Background(), time.Now())

	out, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	fmt.Println(string(out))

	return tickErr
}
