package main

import (
	"fmt"
	"time"

	"github.com/cuemby/bluegreen/pkg/types"
	"github.com/spf13/cobra"
)

// timeRound keeps printed durations readable
const timeRound = 100 * time.Millisecond

var rolloutCmd = &cobra.Command{
	Use:   "rollout [service]",
	Short: "Roll out a new image for one service",
	Long: `Roll out a new image for one service using the blue/green strategy.

The target color is always the complement of whatever is currently
live; the bootstrap case (no selector set) deploys to blue.

Examples:
  # Upgrade the accounts service
  bluegreen rollout accounts --namespace banking --image registry.local/accounts:v2

  # Skip the swap when the image is already live
  bluegreen rollout accounts -n banking -i registry.local/accounts:v2 --skip-if-live`,
	Args: cobra.ExactArgs(1),
	RunE: runRollout,
}

var planCmd = &cobra.Command{
	Use:   "plan [service]",
	Short: "Show what a rollout would do without mutating anything",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlan,
}

func init() {
	for _, cmd := range []*cobra.Command{rolloutCmd, planCmd} {
		cmd.Flags().StringP("namespace", "n", "default", "Service namespace")
		cmd.Flags().StringP("image", "i", "", "Image reference to roll out (required)")
		cmd.Flags().String("health-path", "/healthz", "Health check path on the service")
		_ = cmd.MarkFlagRequired("image")
	}
	rolloutCmd.Flags().Bool("skip-if-live", false, "Short-circuit when the live slot already runs the image")
}

func serviceFromFlags(cmd *cobra.Command, args []string) (types.Service, string) {
	namespace, _ := cmd.Flags().GetString("namespace")
	image, _ := cmd.Flags().GetString("image")
	healthPath, _ := cmd.Flags().GetString("health-path")

	return types.Service{
		Name:            args[0],
		Namespace:       namespace,
		HealthCheckPath: healthPath,
	}, image
}

func runRollout(cmd *cobra.Command, args []string) error {
	service, image := serviceFromFlags(cmd, args)

	opts, err := loadOptions()
	if err != nil {
		return err
	}
	if skip, _ := cmd.Flags().GetBool("skip-if-live"); skip {
		// Flag wins over the environment for this invocation
		opts.SkipIfLive = true
	}

	controller, broker := buildController(cmd, opts)
	defer broker.Stop()

	sub := broker.Subscribe()
	done := make(chan struct{})
	go printProgress(sub, done)

	result := controller.Rollout(cmd.Context(), service, image)

	broker.Unsubscribe(sub)
	<-done

	printResult(result)
	if !result.Succeeded() {
		return fmt.Errorf("rollout ended %s: %v", result.State, result.Err)
	}
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	service, image := serviceFromFlags(cmd, args)

	opts, err := loadOptions()
	if err != nil {
		return err
	}

	controller, broker := buildController(cmd, opts)
	defer broker.Stop()

	plan, err := controller.Plan(cmd.Context(), service, image)
	if err != nil {
		return err
	}

	fmt.Printf("Service:     %s\n", service.Key())
	fmt.Printf("Image:       %s\n", image)
	fmt.Printf("Live color:  %s\n", plan.FromColor)
	fmt.Printf("Target:      %s (deployment %s)\n", plan.ToColor, types.SlotName(service, plan.ToColor))
	if plan.FromColor == types.SlotNone {
		fmt.Println("First-ever rollout: nothing to clean up afterwards")
	} else {
		fmt.Printf("On success:  %s will be scaled down and deleted\n", types.SlotName(service, plan.FromColor))
	}
	return nil
}

func printResult(result types.RolloutResult) {
	fmt.Println()
	switch result.State {
	case types.StateCompleted:
		if result.Skipped {
			fmt.Printf("✓ %s unchanged, %s already live\n", result.Service.Key(), result.ImageRef)
			return
		}
		fmt.Printf("✓ %s completed in %v (%s → %s)\n",
			result.Service.Key(), result.Duration.Round(timeRound), result.FromColor, result.ToColor)
		if result.Err != nil {
			fmt.Printf("  warning: %v\n", result.Err)
		}
	case types.StateRolledBack:
		fmt.Printf("✗ %s rolled back to %s: new version failed validation\n",
			result.Service.Key(), result.FromColor)
	case types.StateFailed:
		fmt.Printf("✗ %s failed (%v)\n", result.Service.Key(), result.Err)
	}
}
