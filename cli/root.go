// Package cli wires the cobra command tree for the autopilot binary.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "autopilot",
	Short: "Risk-managed control loop for a discretionary brokerage account",
	Long: `Autopilot polls a brokerage account and enforces a daily risk budget.

It provides tools for:
  - Running the control loop on a fixed interval
  - Executing a single tick and inspecting the decision report
  - Switching execution mode (manual/auto) and risk mode (low/medium/high)
  - Managing conditional breakout orders
  - Querying the tick and action journal`,
	SilenceUsage: true,
}

var settingsPath string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&settingsPath, "settings", "s", "", "path to settings file (YAML or JSON), defaults used when empty")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("autopilot (dev)")
		},
	})
}
