package fleet

import (
	"context"
	"sync"

	"github.com/cuemby/bluegreen/pkg/log"
	"github.com/cuemby/bluegreen/pkg/rollout"
	"github.com/cuemby/bluegreen/pkg/types"
)

// Target pairs a service with the image a fleet run should roll out to it
type Target struct {
	Service types.Service
	Image   string
}

// Report aggregates the per-service outcomes of one fleet run
type Report struct {
	// Results holds the outcome for every attempted service, keyed by
	// Service.Key(). Services skipped by a fail-fast stop do not appear.
	Results map[string]types.RolloutResult

	// Order lists attempted service keys in execution order
	Order []string
}

// Failed reports whether any attempted service ended Failed or RolledBack
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		if !res.Succeeded() {
			return true
		}
	}
	return false
}

// Runner drives rollouts across an ordered list of services. List order
// is significant and preserved: later services may depend on earlier
// ones being live.
type Runner struct {
	controller  *rollout.Controller
	policy      types.FleetPolicy
	concurrency int
}

// NewRunner creates a fleet runner with the given failure policy
func NewRunner(controller *rollout.Controller, policy types.FleetPolicy) *Runner {
	if !policy.Valid() {
		policy = types.PolicyFailFast
	}
	return &Runner{
		controller:  controller,
		policy:      policy,
		concurrency: 1,
	}
}

// WithConcurrency allows up to n rollouts in flight at once. Only
// honored under ContinueOnError: fail-fast keeps the sequential
// ordering guarantee so "first failure stops the rest" is well defined.
// Per-service switch serialization holds either way via the
// controller's per-service locks.
func (r *Runner) WithConcurrency(n int) *Runner {
	if n > 0 {
		r.concurrency = n
	}
	return r
}

// Run rolls out every target per the configured policy and returns the
// per-service report
func (r *Runner) Run(ctx context.Context, targets []Target) Report {
	logger := log.WithComponent("fleet")
	logger.Info().
		Int("services", len(targets)).
		Str("policy", string(r.policy)).
		Msg("fleet run started")

	var report Report
	if r.policy == types.PolicyContinueOnError && r.concurrency > 1 {
		report = r.runConcurrent(ctx, targets)
	} else {
		report = r.runSequential(ctx, targets)
	}

	logger.Info().
		Int("attempted", len(report.Order)).
		Bool("failed", report.Failed()).
		Msg("fleet run finished")
	return report
}

// runSequential processes targets one at a time in list order
func (r *Runner) runSequential(ctx context.Context, targets []Target) Report {
	report := Report{Results: make(map[string]types.RolloutResult)}

	for _, target := range targets {
		key := target.Service.Key()
		result := r.controller.Rollout(ctx, target.Service, target.Image)
		report.Results[key] = result
		report.Order = append(report.Order, key)

		if r.policy == types.PolicyFailFast && !result.Succeeded() {
			logger := log.WithComponent("fleet")
			logger.Error().
				Str("service", key).
				Str("state", string(result.State)).
				Msg("stopping fleet after failure")
			break
		}
	}
	return report
}

// runConcurrent processes targets with a bounded worker pool. All
// targets are attempted regardless of failures; the report still lists
// them in input order.
func (r *Runner) runConcurrent(ctx context.Context, targets []Target) Report {
	report := Report{Results: make(map[string]types.RolloutResult)}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, r.concurrency)
	)

	for _, target := range targets {
		key := target.Service.Key()
		report.Order = append(report.Order, key)

		wg.Add(1)
		go func(target Target, key string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result := r.controller.Rollout(ctx, target.Service, target.Image)

			mu.Lock()
			report.Results[key] = result
			mu.Unlock()
		}(target, key)
	}

	wg.Wait()
	return report
}
