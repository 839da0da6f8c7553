package main

import (
	"fmt"

	"github.com/cuemby/bluegreen/pkg/fleet"
	"github.com/cuemby/bluegreen/pkg/types"
	"github.com/spf13/cobra"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Roll out a fleet of services from a config file",
	Long: `Roll out every service listed in a fleet config file, in order.

Under the default fail-fast policy the run stops at the first service
that does not complete; continue-on-error attempts every service and
reports per-service outcomes. Either way the command exits non-zero
when any attempted service failed or rolled back.

Example config:
  policy: continue-on-error
  services:
    - name: accounts
      namespace: banking
      healthCheckPath: /healthz
      image: registry.local/accounts:v2
    - name: ledger
      namespace: banking
      image: registry.local/ledger:v2`,
	Args: cobra.NoArgs,
	RunE: runFleet,
}

func init() {
	fleetCmd.Flags().StringP("file", "f", "fleet.yaml", "Fleet config file")
	fleetCmd.Flags().Int("concurrency", 1, "Max rollouts in flight (continue-on-error only)")
}

func runFleet(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	cfg, err := fleet.LoadConfig(path)
	if err != nil {
		return err
	}

	opts, err := loadOptions()
	if err != nil {
		return err
	}

	controller, broker := buildController(cmd, opts)
	defer broker.Stop()

	sub := broker.Subscribe()
	done := make(chan struct{})
	go printProgress(sub, done)

	runner := fleet.NewRunner(controller, cfg.Policy).WithConcurrency(concurrency)
	report := runner.Run(cmd.Context(), cfg.Targets())

	broker.Unsubscribe(sub)
	<-done

	printFleetReport(cfg, report)
	if report.Failed() {
		return fmt.Errorf("fleet run failed")
	}
	return nil
}

func printFleetReport(cfg *fleet.Config, report fleet.Report) {
	fmt.Printf("\nFleet report (%d of %d attempted):\n", len(report.Order), len(cfg.Services))
	for _, key := range report.Order {
		res := report.Results[key]
		switch {
		case res.Skipped:
			fmt.Printf("  - %-30s skipped, image already live\n", key)
		case res.State == types.StateCompleted:
			fmt.Printf("  ✓ %-30s completed in %v (%s → %s)\n",
				key, res.Duration.Round(timeRound), res.FromColor, res.ToColor)
		case res.State == types.StateRolledBack:
			fmt.Printf("  ✗ %-30s rolled back to %s\n", key, res.FromColor)
		default:
			fmt.Printf("  ✗ %-30s failed: %v\n", key, res.Err)
		}
	}
	if skipped := len(cfg.Services) - len(report.Order); skipped > 0 {
		fmt.Printf("  %d service(s) not attempted after fail-fast stop\n", skipped)
	}
}
