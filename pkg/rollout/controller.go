package rollout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/bluegreen/pkg/controlplane"
	"github.com/cuemby/bluegreen/pkg/events"
	"github.com/cuemby/bluegreen/pkg/health"
	"github.com/cuemby/bluegreen/pkg/log"
	"github.com/cuemby/bluegreen/pkg/metrics"
	"github.com/cuemby/bluegreen/pkg/router"
	"github.com/cuemby/bluegreen/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Controller drives one rollout attempt at a time per service through
// the blue-green state machine. It owns no durable state: the attempt
// record lives only for the duration of the call, and recovery after a
// crash is simply re-resolving the active color from the router.
type Controller struct {
	resolver  *ColorResolver
	router    router.Client
	cluster   controlplane.Client
	endpoints EndpointResolver
	opts      Options
	broker    *events.Broker

	// locks serializes the resolve-through-switch span per service, so
	// two concurrent invocations can never compute conflicting target
	// colors. Cross-service rollouts share nothing and run freely.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewController creates a rollout controller
func NewController(r router.Client, cluster controlplane.Client, endpoints EndpointResolver, opts Options) *Controller {
	return &Controller{
		resolver:  NewColorResolver(r),
		router:    r,
		cluster:   cluster,
		endpoints: endpoints,
		opts:      opts,
		locks:     make(map[string]*sync.Mutex),
	}
}

// WithBroker attaches an event broker; every observable step of a
// rollout is published to it
func (c *Controller) WithBroker(b *events.Broker) *Controller {
	c.broker = b
	return c
}

// Plan resolves the active color and reports what a rollout would do,
// without mutating anything.
func (c *Controller) Plan(ctx context.Context, service types.Service, imageRef string) (types.RolloutResult, error) {
	from, err := c.resolver.ResolveActive(ctx, service)
	if err != nil {
		return types.RolloutResult{}, fmt.Errorf("%w: %w", ErrRouterUnreachable, err)
	}

	return types.RolloutResult{
		Service:   service,
		ImageRef:  imageRef,
		State:     types.StateIdle,
		FromColor: from,
		ToColor:   from.Opposite(),
	}, nil
}

// Rollout drives one full rollout of imageRef for the service and
// returns the terminal result. The result's State is always one of
// Completed, Failed, or RolledBack, and Err carries the triggering
// error for the latter two.
func (c *Controller) Rollout(ctx context.Context, service types.Service, imageRef string) types.RolloutResult {
	res := types.RolloutResult{
		AttemptID: uuid.NewString(),
		Service:   service,
		ImageRef:  imageRef,
		State:     types.StateIdle,
		StartedAt: time.Now(),
	}

	logger := log.WithComponent("rollout").With().
		Str("attempt_id", res.AttemptID).
		Str("service", service.Key()).
		Str("image", imageRef).
		Logger()

	// Cap the whole attempt so a stuck step surfaces as Failed instead
	// of hanging the fleet
	if budget := c.opts.rolloutBudget(); budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	logger.Info().Msg("rollout started")
	c.publish(events.EventRolloutStarted, &res, types.SlotNone, "rollout started")

	// The resolve-through-switch span holds the per-service lock
	lock := c.serviceLock(service.Key())
	lock.Lock()
	locked := true
	unlock := func() {
		if locked {
			locked = false
			lock.Unlock()
		}
	}
	defer unlock()

	// Resolve which color is live; the router is the only authority
	res.State = types.StateResolvingActive
	from, err := c.resolver.ResolveActive(ctx, service)
	if err != nil {
		return c.fail(&res, logger, fmt.Errorf("%w: %w", ErrRouterUnreachable, err))
	}
	res.FromColor = from
	res.ToColor = from.Opposite()

	logger = logger.With().
		Str("from_color", res.FromColor.String()).
		Str("to_color", res.ToColor.String()).
		Logger()
	logger.Info().Msg("resolved active color")

	// Optional short-circuit: don't swap when the live slot already
	// runs the desired image. Advisory only, so a SlotImage error just
	// means we proceed with the full rollout.
	if c.opts.SkipIfLive && res.FromColor != types.SlotNone {
		live, imgErr := c.cluster.SlotImage(ctx, service, res.FromColor)
		if imgErr == nil && live == imageRef {
			logger.Info().Msg("desired image already live, skipping rollout")
			res.Skipped = true
			res.State = types.StateCompleted
			c.publish(events.EventRolloutSkipped, &res, res.FromColor, "desired image already live")
			return c.finish(&res, logger)
		}
	}

	// Deploy the new image into the inactive slot. Failure here is
	// terminal but harmless: the live slot was never touched.
	res.State = types.StateDeployingInactive
	logger.Info().Str("deployment", types.SlotName(service, res.ToColor)).Msg("deploying inactive slot")

	deployCtx, cancelDeploy := context.WithTimeout(ctx, c.opts.DeployReadyTimeout)
	err = c.cluster.EnsureSlotDeployed(deployCtx, service, res.ToColor, imageRef)
	cancelDeploy()
	if err != nil {
		c.abandonSlot(service, res.ToColor, &res, logger)
		kind := ErrDeployFailure
		if errors.Is(err, context.DeadlineExceeded) {
			kind = ErrDeployTimeout
		}
		return c.fail(&res, logger, fmt.Errorf("%w: %w", kind, err))
	}
	c.publish(events.EventSlotDeployed, &res, res.ToColor, "inactive slot deployed")

	// Gate the new slot on health before any traffic moves, probing the
	// slot directly
	res.State = types.StateHealthCheckingNew
	slotURL := c.endpoints.SlotURL(service, res.ToColor)
	logger.Info().Str("url", slotURL).Msg("health checking new slot")

	gate := health.Poll(ctx, health.NewHTTPChecker(slotURL), c.opts.preSwitchConfig())
	if !gate.Healthy {
		metrics.HealthProbesTotal.WithLabelValues("pre_switch", "fail").Inc()
		c.publish(events.EventHealthGateFailed, &res, res.ToColor, gate.Message)
		c.abandonSlot(service, res.ToColor, &res, logger)
		return c.fail(&res, logger, fmt.Errorf("%w: %s", ErrPreSwitchHealthFailure, gate.Message))
	}
	metrics.HealthProbesTotal.WithLabelValues("pre_switch", "pass").Inc()
	c.publish(events.EventHealthGatePassed, &res, res.ToColor, gate.Message)

	// Last point where cancellation is honored: abandoning here has no
	// live-traffic impact
	if err := ctx.Err(); err != nil {
		c.abandonSlot(service, res.ToColor, &res, logger)
		return c.fail(&res, logger, fmt.Errorf("rollout cancelled before switching traffic: %w", err))
	}

	// Switch traffic. The single selector write is the only point where
	// user-facing behavior changes; from here through the post-switch
	// gate, cancellation is deferred so the system is never left
	// mid-switch without verification.
	res.State = types.StateSwitchingTraffic
	switchCtx := context.WithoutCancel(ctx)
	if err := c.router.SetSelector(switchCtx, service, res.ToColor); err != nil {
		// The new slot stays deployed but not live. Ambiguous router
		// state is never retried automatically.
		return c.fail(&res, logger, fmt.Errorf("%w: %w", ErrSwitchWriteFailure, err))
	}
	metrics.TrafficSwitchesTotal.WithLabelValues("forward").Inc()
	logger.Info().Msg("traffic switched")
	c.publish(events.EventTrafficSwitched, &res, res.ToColor, "selector now points at "+res.ToColor.String())
	unlock()

	// Verify the switch end-to-end through the router
	res.State = types.StatePostSwitchHealth
	publicURL := c.endpoints.ServiceURL(service)
	logger.Info().Str("url", publicURL).Msg("verifying service through router")

	verify := health.Poll(switchCtx, health.NewHTTPChecker(publicURL), c.opts.postSwitchConfig())
	if !verify.Healthy {
		metrics.HealthProbesTotal.WithLabelValues("post_switch", "fail").Inc()
		c.publish(events.EventHealthGateFailed, &res, res.ToColor, verify.Message)
		return c.rollback(switchCtx, &res, logger, verify.Message)
	}
	metrics.HealthProbesTotal.WithLabelValues("post_switch", "pass").Inc()
	c.publish(events.EventHealthGatePassed, &res, res.ToColor, verify.Message)

	// Decommission the old slot. Traffic has already moved correctly,
	// so a failure here is logged and the attempt still completes.
	if res.FromColor != types.SlotNone {
		res.State = types.StateCleaningUpOld
		if err := c.cleanupOld(switchCtx, service, res.FromColor, &res, logger); err != nil {
			metrics.CleanupFailuresTotal.Inc()
			logger.Warn().Err(err).Msg("old slot left orphaned, reconcile out-of-band")
			res.Err = fmt.Errorf("%w: %w", ErrCleanupFailure, err)
		}
	}

	res.State = types.StateCompleted
	return c.finish(&res, logger)
}

// rollback reverts the selector to the prior color after a failed
// post-switch verification. The bad slot is left deployed for
// post-mortem inspection. With no prior color there is nothing to
// revert to: the attempt ends Failed with traffic still on the new,
// apparently unhealthy slot.
func (c *Controller) rollback(ctx context.Context, res *types.RolloutResult, logger zerolog.Logger, reason string) types.RolloutResult {
	gateErr := fmt.Errorf("%w: %s", ErrPostSwitchHealthFailure, reason)

	if res.FromColor == types.SlotNone {
		logger.Error().Msg("no prior color to roll back to, traffic remains on unhealthy slot")
		return c.fail(res, logger, fmt.Errorf("%w (no prior color, operator action required)", gateErr))
	}

	if err := c.router.SetSelector(ctx, res.Service, res.FromColor); err != nil {
		// The revert write itself failed; we cannot claim RolledBack
		logger.Error().Err(err).Msg("rollback selector write failed")
		return c.fail(res, logger, fmt.Errorf("%w: rollback to %s failed: %w", ErrSwitchWriteFailure, res.FromColor, err))
	}

	metrics.TrafficSwitchesTotal.WithLabelValues("rollback").Inc()
	logger.Warn().Msg("traffic rolled back to prior color")

	res.State = types.StateRolledBack
	res.Err = gateErr
	c.publish(events.EventRolloutRolledBack, res, res.FromColor, reason)
	return c.finish(res, logger)
}

// cleanupOld scales the old slot to zero, waits out the grace period so
// in-flight requests can finish, then deletes it
func (c *Controller) cleanupOld(ctx context.Context, service types.Service, slot types.Slot, res *types.RolloutResult, logger zerolog.Logger) error {
	logger.Info().Str("deployment", types.SlotName(service, slot)).Msg("cleaning up old slot")

	if err := c.cluster.ScaleSlotToZero(ctx, service, slot); err != nil {
		return fmt.Errorf("failed to scale down: %w", err)
	}

	if c.opts.ScaleDownGracePeriod > 0 {
		time.Sleep(c.opts.ScaleDownGracePeriod)
	}

	if err := c.cluster.DeleteSlot(ctx, service, slot); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	c.publish(events.EventSlotDeleted, res, slot, "old slot decommissioned")
	return nil
}

// abandonSlot best-effort deletes a half-created slot so a failed
// attempt doesn't leak a deployment. Runs detached from the attempt's
// context: the attempt may already be cancelled.
func (c *Controller) abandonSlot(service types.Service, slot types.Slot, res *types.RolloutResult, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.cluster.DeleteSlot(ctx, service, slot); err != nil {
		logger.Warn().Err(err).Str("deployment", types.SlotName(service, slot)).Msg("failed to delete abandoned slot")
		return
	}
	c.publish(events.EventSlotDeleted, res, slot, "abandoned slot deleted")
}

// fail marks the attempt Failed with the triggering error
func (c *Controller) fail(res *types.RolloutResult, logger zerolog.Logger, err error) types.RolloutResult {
	res.State = types.StateFailed
	res.Err = err
	logger.Error().Err(err).Msg("rollout failed")
	c.publish(events.EventRolloutFailed, res, res.ToColor, err.Error())
	return c.finish(res, logger)
}

// finish stamps the duration, records metrics, and publishes the
// terminal event for completed attempts
func (c *Controller) finish(res *types.RolloutResult, logger zerolog.Logger) types.RolloutResult {
	res.Duration = time.Since(res.StartedAt)
	metrics.RolloutsTotal.WithLabelValues(string(res.State)).Inc()
	metrics.RolloutDuration.WithLabelValues(string(res.State)).Observe(res.Duration.Seconds())

	if res.State == types.StateCompleted {
		logger.Info().Dur("duration", res.Duration).Msg("rollout completed")
		c.publish(events.EventRolloutCompleted, res, res.ToColor, "rollout completed")
	}
	return *res
}

// serviceLock returns the mutex guarding one service's switch span
func (c *Controller) serviceLock(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	return lock
}

// publish sends an event to the broker, if one is attached
func (c *Controller) publish(t events.EventType, res *types.RolloutResult, slot types.Slot, msg string) {
	if c.broker == nil {
		return
	}
	c.broker.Publish(&events.Event{
		AttemptID: res.AttemptID,
		Type:      t,
		Service:   res.Service,
		Slot:      slot,
		State:     res.State,
		Message:   msg,
	})
}
