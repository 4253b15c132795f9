package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bdvlabs/autopilot/config"
	"github.com/bdvlabs/autopilot/risk"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or change the runtime configuration",
	Long: `Inspect and mutate the runtime configuration shared with the loop.

Subcommands:
  status         - Print the current configuration
  execution-mode - Set execution mode (manual or auto)
  risk-mode      - Set risk mode (low, medium or high)
  reset-trades   - Reset the daily trade counter to zero
  init           - Generate a default settings file

Examples:
  autopilot config status
  autopilot config execution-mode auto
  autopilot config risk-mode medium
  autopilot config reset-trades`,
}

var configStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current runtime configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigStatus,
}

var configExecutionModeCmd = &cobra.Command{
	Use:   "execution-mode <manual|auto>",
	Short: "Set the execution mode",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigExecutionMode,
}

var configRiskModeCmd = &cobra.Command{
	Use:   "risk-mode <low|medium|high>",
	Short: "Set the risk mode",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigRiskMode,
}

var configResetTradesCmd = &cobra.Command{
	Use:   "reset-trades",
	Short: "Reset the daily trade counter to zero",
	Args:  cobra.NoArgs,
	RunE:  runConfigResetTrades,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default settings file",
	RunE:  runConfigInit,
}

var configInitOutput string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configStatusCmd)
	configCmd.AddCommand(configExecutionModeCmd)
	configCmd.AddCommand(configRiskModeCmd)
	configCmd.AddCommand(configResetTradesCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "autopilot.yaml", "output settings file path")
}

func openStore() (*config.Store, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return config.OpenStore(cfg.State.ConfigPath), nil
}

func printStatus(st config.Status) error {
	out, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runConfigStatus(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	return printStatus(store.Status())
}

func runConfigExecutionMode(cmd *cobra.Command, args []string) error {
	mode, err := config.ParseExecutionMode(args[0])
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	st, err := store.SetExecutionMode(mode)
	if err != nil {
		return err
	}
	return printStatus(st)
}

func runConfigRiskMode(cmd *cobra.Command, args []string) error {
	mode, err := risk.ParseMode(args[0])
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	st, err := store.SetRiskMode(mode)
	if err != nil {
		return err
	}
	return printStatus(st)
}

func runConfigResetTrades(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	st, err := store.ResetTradesToday()
	if err != nil {
		return err
	}
	return printStatus(st)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultSettings()
	if err := cfg.SaveSettings(configInitOutput); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	fmt.Printf("✓ Created default settings: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  autopilot run --settings %s\n", configInitOutput)
	return nil
}
