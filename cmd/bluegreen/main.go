package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/cuemby/bluegreen/pkg/controlplane"
	"github.com/cuemby/bluegreen/pkg/events"
	"github.com/cuemby/bluegreen/pkg/log"
	"github.com/cuemby/bluegreen/pkg/metrics"
	"github.com/cuemby/bluegreen/pkg/rollout"
	"github.com/cuemby/bluegreen/pkg/router"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bluegreen",
	Short: "bluegreen - zero-downtime blue/green deployment orchestrator",
	Long: `bluegreen performs zero-downtime version upgrades of services behind
a traffic router, with health-gated promotion and automatic rollback
on failure.

It is a deployment-control tool consumed by pipelines: an external
build step supplies the image, bluegreen deploys it into the inactive
slot, gates it on health, switches traffic atomically, verifies the
switch end-to-end, and decommissions the old slot.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		jsonOut, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
	},
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"bluegreen version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("router-url", "http://localhost:7070", "Traffic router management endpoint")
	rootCmd.PersistentFlags().String("cluster-url", "http://localhost:6060", "Cluster control plane endpoint")
	rootCmd.PersistentFlags().String("domain", "svc.cluster.local", "Cluster DNS suffix for probe URLs")
	rootCmd.PersistentFlags().String("scheme", "http", "Probe URL scheme (http or https)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit JSON logs instead of console output")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address while running (e.g. :9090)")

	// Add subcommands
	rootCmd.AddCommand(rolloutCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(fleetCmd)
}

// loadOptions reads rollout options from BLUEGREEN_* environment
// variables and validates them
func loadOptions() (rollout.Options, error) {
	opts, err := rollout.OptionsFromEnv()
	if err != nil {
		return rollout.Options{}, err
	}
	if err := opts.Validate(); err != nil {
		return rollout.Options{}, err
	}
	return opts, nil
}

// buildController wires the controller from the root flags. The broker
// is started and fed to a progress printer; callers stop it when done.
func buildController(cmd *cobra.Command, opts rollout.Options) (*rollout.Controller, *events.Broker) {
	routerURL, _ := cmd.Flags().GetString("router-url")
	clusterURL, _ := cmd.Flags().GetString("cluster-url")
	domain, _ := cmd.Flags().GetString("domain")
	scheme, _ := cmd.Flags().GetString("scheme")

	broker := events.NewBroker()
	broker.Start()

	controller := rollout.NewController(
		router.NewHTTPRouter(routerURL),
		controlplane.NewHTTPClient(clusterURL),
		rollout.ClusterEndpoints{Scheme: scheme, Domain: domain},
		opts,
	).WithBroker(broker)

	startMetricsServer(cmd)
	return controller, broker
}

// startMetricsServer exposes Prometheus metrics while a run executes,
// if an address was given
func startMetricsServer(cmd *cobra.Command) {
	addr, _ := cmd.Flags().GetString("metrics-addr")
	if addr == "" {
		return
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger := log.WithComponent("metrics")
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
}

// printProgress consumes broker events and prints human-readable
// progress lines until the subscription closes
func printProgress(sub events.Subscriber, done chan<- struct{}) {
	for event := range sub {
		switch event.Type {
		case events.EventRolloutStarted:
			fmt.Printf("==> %s: rollout started\n", event.Service.Key())
		case events.EventSlotDeployed:
			fmt.Printf("  ✓ %s: deployed slot %s\n", event.Service.Key(), event.Slot)
		case events.EventHealthGatePassed:
			fmt.Printf("  ✓ %s: health gate passed (%s)\n", event.Service.Key(), event.Message)
		case events.EventHealthGateFailed:
			fmt.Printf("  ✗ %s: health gate failed (%s)\n", event.Service.Key(), event.Message)
		case events.EventTrafficSwitched:
			fmt.Printf("  ✓ %s: %s\n", event.Service.Key(), event.Message)
		case events.EventSlotDeleted:
			fmt.Printf("  ✓ %s: removed slot %s\n", event.Service.Key(), event.Slot)
		case events.EventRolloutRolledBack:
			fmt.Printf("  ✗ %s: rolled back to %s\n", event.Service.Key(), event.Slot)
		case events.EventRolloutSkipped:
			fmt.Printf("  - %s: desired image already live, skipped\n", event.Service.Key())
		}
	}
	close(done)
}
