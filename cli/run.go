package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the control loop on a fixed interval",
	Long: `Run the control loop until interrupted.

Each interval the loop reads the runtime configuration, applies the
liquidation rules, evaluates conditional orders and optionally opens one
new position. Prometheus metrics are served on the configured address.

Example:
  autopilot run --settings autopilot.yaml`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var runInterval string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runInterval, "interval", "i", "", "tick interval, overrides the settings file (e.g. 30s, 1m)")
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	interval, err := a.settings.Run.ParseInterval()
	if err != nil {
		return fmt.Errorf("interval: %w", err)
	}
	if runInterval != "" {
		interval, err = time.ParseDuration(runInterval)
		if err != nil {
			return fmt.Errorf("interval: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if addr := a.settings.Run.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("[run] metrics server: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("[run] metrics on %s/metrics", addr)
	}

	log.Printf("[run] ticking every %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		rep, err := a.engine.Tick(ctx, time.Now())
		if err != nil {
			log.Printf("[run] tick %s: %v", rep.TickID, err)
		}
		log.Printf("[run] tick %s status=%s reason=%q positions=%d trades_today=%d/%d",
			rep.TickID, rep.Status, rep.Reason, rep.Positions, rep.TradesToday, rep.MaxTrades)

		select {
		case <-ctx.Done():
			log.Printf("[run] shutting down")
			return nil
		case <-ticker.C:
		}
	}
}
