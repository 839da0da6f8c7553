package rollout

import (
	"fmt"
	"time"

	"github.com/cuemby/bluegreen/pkg/health"
	"github.com/kelseyhightower/envconfig"
)

// Options holds the tunable budgets of the rollout state machine. Every
// blocking step is bounded by one of these; there is no unbounded wait
// anywhere in a rollout.
type Options struct {
	// PreSwitchHealthAttempts is the number of probes against the new
	// slot before giving up on promoting it
	PreSwitchHealthAttempts int `envconfig:"PRE_SWITCH_HEALTH_ATTEMPTS" default:"30"`

	// PreSwitchHealthInterval is the pause between pre-switch probes
	PreSwitchHealthInterval time.Duration `envconfig:"PRE_SWITCH_HEALTH_INTERVAL" default:"10s"`

	// PostSwitchHealthAttempts is the number of probes through the
	// router after switching
	PostSwitchHealthAttempts int `envconfig:"POST_SWITCH_HEALTH_ATTEMPTS" default:"6"`

	// PostSwitchHealthInterval is the pause between post-switch probes
	PostSwitchHealthInterval time.Duration `envconfig:"POST_SWITCH_HEALTH_INTERVAL" default:"5s"`

	// ProbeTimeout bounds each individual health probe
	ProbeTimeout time.Duration `envconfig:"PROBE_TIMEOUT" default:"5s"`

	// DeployReadyTimeout bounds the wait for the new slot to become
	// available
	DeployReadyTimeout time.Duration `envconfig:"DEPLOY_READY_TIMEOUT" default:"600s"`

	// ScaleDownGracePeriod is the delay between scaling the old slot to
	// zero and deleting it, so in-flight requests can finish
	ScaleDownGracePeriod time.Duration `envconfig:"SCALE_DOWN_GRACE_PERIOD" default:"30s"`

	// RolloutTimeout caps a whole attempt. Zero means derive it from
	// the step budgets, so a stuck rollout surfaces as Failed instead
	// of hanging the fleet.
	RolloutTimeout time.Duration `envconfig:"ROLLOUT_TIMEOUT" default:"0"`

	// SkipIfLive short-circuits the attempt when the live slot already
	// runs the desired image, instead of performing a redundant swap
	SkipIfLive bool `envconfig:"SKIP_IF_LIVE" default:"false"`
}

// DefaultOptions returns the option set observed in the source pipeline
func DefaultOptions() Options {
	return Options{
		PreSwitchHealthAttempts:  30,
		PreSwitchHealthInterval:  10 * time.Second,
		PostSwitchHealthAttempts: 6,
		PostSwitchHealthInterval: 5 * time.Second,
		ProbeTimeout:             5 * time.Second,
		DeployReadyTimeout:       600 * time.Second,
		ScaleDownGracePeriod:     30 * time.Second,
	}
}

// OptionsFromEnv loads options from BLUEGREEN_* environment variables,
// falling back to the defaults above
func OptionsFromEnv() (Options, error) {
	var opts Options
	if err := envconfig.Process("bluegreen", &opts); err != nil {
		return Options{}, fmt.Errorf("failed to load options from environment: %w", err)
	}
	return opts, nil
}

// Validate rejects option sets that would disable a health gate or a
// deploy bound entirely
func (o Options) Validate() error {
	if o.PreSwitchHealthAttempts < 1 {
		return fmt.Errorf("preSwitchHealthAttempts must be at least 1, got %d", o.PreSwitchHealthAttempts)
	}
	if o.PostSwitchHealthAttempts < 1 {
		return fmt.Errorf("postSwitchHealthAttempts must be at least 1, got %d", o.PostSwitchHealthAttempts)
	}
	if o.DeployReadyTimeout <= 0 {
		return fmt.Errorf("deployReadyTimeout must be positive, got %v", o.DeployReadyTimeout)
	}
	if o.ScaleDownGracePeriod < 0 {
		return fmt.Errorf("scaleDownGracePeriod must not be negative, got %v", o.ScaleDownGracePeriod)
	}
	return nil
}

// preSwitchConfig returns the polling window for the pre-switch gate
func (o Options) preSwitchConfig() health.PollConfig {
	return health.PollConfig{
		MaxAttempts: o.PreSwitchHealthAttempts,
		Interval:    o.PreSwitchHealthInterval,
		Timeout:     o.ProbeTimeout,
	}
}

// postSwitchConfig returns the polling window for the post-switch gate
func (o Options) postSwitchConfig() health.PollConfig {
	return health.PollConfig{
		MaxAttempts: o.PostSwitchHealthAttempts,
		Interval:    o.PostSwitchHealthInterval,
		Timeout:     o.ProbeTimeout,
	}
}

// rolloutBudget returns the global per-attempt timeout: the configured
// RolloutTimeout, or the sum of all step budgets plus slack when unset
func (o Options) rolloutBudget() time.Duration {
	if o.RolloutTimeout > 0 {
		return o.RolloutTimeout
	}

	pre := time.Duration(o.PreSwitchHealthAttempts) * (o.PreSwitchHealthInterval + o.ProbeTimeout)
	post := time.Duration(o.PostSwitchHealthAttempts) * (o.PostSwitchHealthInterval + o.ProbeTimeout)
	return o.DeployReadyTimeout + pre + post + o.ScaleDownGracePeriod + time.Minute
}
