package rollout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/bluegreen/pkg/controlplane"
	"github.com/cuemby/bluegreen/pkg/log"
	"github.com/cuemby/bluegreen/pkg/router"
	"github.com/cuemby/bluegreen/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testService = types.Service{Name: "accounts", Namespace: "banking", HealthCheckPath: "/healthz"}

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true, Output: io.Discard})
	os.Exit(m.Run())
}

// harness wires a controller against an in-memory router and control
// plane, with httptest endpoints whose health is toggled per slot. The
// routed endpoint consults the router's live selector, so post-switch
// verification behaves end-to-end like the real thing.
type harness struct {
	router       *router.Memory
	cluster      *controlplane.Memory
	blueHealthy  atomic.Bool
	greenHealthy atomic.Bool

	// routedDown forces the routed endpoint to fail regardless of slot
	// health, emulating a release that only breaks under real traffic
	routedDown atomic.Bool

	blueServer    *httptest.Server
	greenServer   *httptest.Server
	serviceServer *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		router:  router.NewMemory(),
		cluster: controlplane.NewMemory(),
	}
	h.blueHealthy.Store(true)
	h.greenHealthy.Store(true)

	serve := func(flag *atomic.Bool) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if flag.Load() {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}

	h.blueServer = httptest.NewServer(serve(&h.blueHealthy))
	h.greenServer = httptest.NewServer(serve(&h.greenHealthy))

	// The routed endpoint serves whatever slot the selector points at
	h.serviceServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.routedDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		slot, err := h.router.GetSelector(r.Context(), testService)
		if err != nil || slot == types.SlotNone {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		flag := &h.blueHealthy
		if slot == types.SlotGreen {
			flag = &h.greenHealthy
		}
		if flag.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	t.Cleanup(h.blueServer.Close)
	t.Cleanup(h.greenServer.Close)
	t.Cleanup(h.serviceServer.Close)
	return h
}

func (h *harness) SlotURL(service types.Service, slot types.Slot) string {
	if slot == types.SlotBlue {
		return h.blueServer.URL + service.HealthCheckPath
	}
	return h.greenServer.URL + service.HealthCheckPath
}

func (h *harness) ServiceURL(service types.Service) string {
	return h.serviceServer.URL + service.HealthCheckPath
}

func (h *harness) liveSlot(t *testing.T) types.Slot {
	t.Helper()
	slot, err := h.router.GetSelector(context.Background(), testService)
	require.NoError(t, err)
	return slot
}

func testOptions() Options {
	return Options{
		PreSwitchHealthAttempts:  3,
		PreSwitchHealthInterval:  time.Millisecond,
		PostSwitchHealthAttempts: 3,
		PostSwitchHealthInterval: time.Millisecond,
		ProbeTimeout:             time.Second,
		DeployReadyTimeout:       5 * time.Second,
		ScaleDownGracePeriod:     0,
		RolloutTimeout:           30 * time.Second,
	}
}

func (h *harness) controller(opts Options) *Controller {
	return NewController(h.router, h.cluster, h, opts)
}

// TestRollout_Bootstrap covers the first-ever rollout: no selector set,
// target defaults to blue, no cleanup step runs
func TestRollout_Bootstrap(t *testing.T) {
	h := newHarness(t)
	c := h.controller(testOptions())

	res := c.Rollout(context.Background(), testService, "registry.local/accounts:v1")

	assert.Equal(t, types.StateCompleted, res.State)
	assert.Equal(t, types.SlotNone, res.FromColor)
	assert.Equal(t, types.SlotBlue, res.ToColor)
	assert.NoError(t, res.Err)
	assert.Equal(t, types.SlotBlue, h.liveSlot(t))

	image, err := h.cluster.SlotImage(context.Background(), testService, types.SlotBlue)
	require.NoError(t, err)
	assert.Equal(t, "registry.local/accounts:v1", image)

	// Nothing existed before, so nothing may have been cleaned up
	_, greenExists := h.cluster.Replicas(testService, types.SlotGreen)
	assert.False(t, greenExists)
}

// TestRollout_NormalUpgrade covers blue → green with both gates passing:
// green goes live, blue is scaled down and deleted
func TestRollout_NormalUpgrade(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.controller(testOptions())

	require.NoError(t, h.cluster.EnsureSlotDeployed(ctx, testService, types.SlotBlue, "registry.local/accounts:v1"))
	require.NoError(t, h.router.SetSelector(ctx, testService, types.SlotBlue))

	res := c.Rollout(ctx, testService, "registry.local/accounts:v2")

	assert.Equal(t, types.StateCompleted, res.State)
	assert.Equal(t, types.SlotBlue, res.FromColor)
	assert.Equal(t, types.SlotGreen, res.ToColor)
	assert.Equal(t, types.SlotGreen, h.liveSlot(t))

	// Old slot fully decommissioned
	_, blueExists := h.cluster.Replicas(testService, types.SlotBlue)
	assert.False(t, blueExists, "old slot must be deleted after a successful rollout")

	image, err := h.cluster.SlotImage(ctx, testService, types.SlotGreen)
	require.NoError(t, err)
	assert.Equal(t, "registry.local/accounts:v2", image)
}

// TestRollout_PreSwitchHealthFailure covers a bad release caught before
// the switch: the new slot is deleted and the selector never moves
func TestRollout_PreSwitchHealthFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.controller(testOptions())

	require.NoError(t, h.cluster.EnsureSlotDeployed(ctx, testService, types.SlotBlue, "registry.local/accounts:v1"))
	require.NoError(t, h.router.SetSelector(ctx, testService, types.SlotBlue))
	h.greenHealthy.Store(false)

	res := c.Rollout(ctx, testService, "registry.local/accounts:v2")

	assert.Equal(t, types.StateFailed, res.State)
	assert.ErrorIs(t, res.Err, ErrPreSwitchHealthFailure)
	assert.Equal(t, types.SlotBlue, h.liveSlot(t), "live selector must be unchanged")

	_, greenExists := h.cluster.Replicas(testService, types.SlotGreen)
	assert.False(t, greenExists, "abandoned slot must be deleted")
}

// TestRollout_PostSwitchRollback covers a bad release caught after the
// switch: the selector reverts to blue and green is left deployed for
// inspection
func TestRollout_PostSwitchRollback(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.controller(testOptions())

	require.NoError(t, h.cluster.EnsureSlotDeployed(ctx, testService, types.SlotBlue, "registry.local/accounts:v1"))
	require.NoError(t, h.router.SetSelector(ctx, testService, types.SlotBlue))

	// Green answers its direct probe but the service breaks once real
	// traffic arrives through the router
	h.routedDown.Store(true)

	res := c.Rollout(ctx, testService, "registry.local/accounts:v2")

	assert.Equal(t, types.StateRolledBack, res.State)
	assert.ErrorIs(t, res.Err, ErrPostSwitchHealthFailure)
	assert.Equal(t, types.SlotBlue, h.liveSlot(t), "selector must be reverted to the prior color")

	_, greenExists := h.cluster.Replicas(testService, types.SlotGreen)
	assert.True(t, greenExists, "bad slot must be left deployed for post-mortem")
}

// TestRollout_BootstrapPostSwitchFailure covers the degraded terminal
// state: first-ever rollout fails verification and there is nothing to
// roll back to
func TestRollout_BootstrapPostSwitchFailure(t *testing.T) {
	h := newHarness(t)
	c := h.controller(testOptions())

	h.routedDown.Store(true)

	res := c.Rollout(context.Background(), testService, "registry.local/accounts:v1")

	assert.Equal(t, types.StateFailed, res.State)
	assert.ErrorIs(t, res.Err, ErrPostSwitchHealthFailure)
	assert.Equal(t, types.SlotBlue, h.liveSlot(t),
		"with no prior color, traffic stays on the new slot")

	_, blueExists := h.cluster.Replicas(testService, types.SlotBlue)
	assert.True(t, blueExists)
}

// failingRouter wraps a router and fails selected operations
type failingRouter struct {
	inner   router.Client
	failGet bool
	failSet bool
}

func (f *failingRouter) GetSelector(ctx context.Context, service types.Service) (types.Slot, error) {
	if f.failGet {
		return types.SlotNone, errors.New("connection refused")
	}
	return f.inner.GetSelector(ctx, service)
}

func (f *failingRouter) SetSelector(ctx context.Context, service types.Service, slot types.Slot) error {
	if f.failSet {
		return errors.New("selector store unavailable")
	}
	return f.inner.SetSelector(ctx, service, slot)
}

func TestRollout_RouterUnreachable(t *testing.T) {
	h := newHarness(t)
	broken := &failingRouter{inner: h.router, failGet: true}
	c := NewController(broken, h.cluster, h, testOptions())

	res := c.Rollout(context.Background(), testService, "registry.local/accounts:v1")

	assert.Equal(t, types.StateFailed, res.State)
	assert.ErrorIs(t, res.Err, ErrRouterUnreachable)

	// No cluster mutation may have been attempted
	_, blueExists := h.cluster.Replicas(testService, types.SlotBlue)
	_, greenExists := h.cluster.Replicas(testService, types.SlotGreen)
	assert.False(t, blueExists)
	assert.False(t, greenExists)
}

func TestRollout_SwitchWriteFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.cluster.EnsureSlotDeployed(ctx, testService, types.SlotBlue, "registry.local/accounts:v1"))
	require.NoError(t, h.router.SetSelector(ctx, testService, types.SlotBlue))

	broken := &failingRouter{inner: h.router, failSet: true}
	c := NewController(broken, h.cluster, h, testOptions())

	res := c.Rollout(ctx, testService, "registry.local/accounts:v2")

	assert.Equal(t, types.StateFailed, res.State)
	assert.ErrorIs(t, res.Err, ErrSwitchWriteFailure)
	assert.Equal(t, types.SlotBlue, h.liveSlot(t))

	// The new slot remains deployed but not live, for the operator
	_, greenExists := h.cluster.Replicas(testService, types.SlotGreen)
	assert.True(t, greenExists)
}

// failingCluster wraps a control plane and fails selected operations
type failingCluster struct {
	controlplane.Client
	failEnsure bool
	failDelete bool
	failScale  bool
}

func (f *failingCluster) EnsureSlotDeployed(ctx context.Context, service types.Service, slot types.Slot, imageRef string) error {
	if f.failEnsure {
		return fmt.Errorf("deployment rejected: %w", context.DeadlineExceeded)
	}
	return f.Client.EnsureSlotDeployed(ctx, service, slot, imageRef)
}

func (f *failingCluster) ScaleSlotToZero(ctx context.Context, service types.Service, slot types.Slot) error {
	if f.failScale {
		return errors.New("scale endpoint unavailable")
	}
	return f.Client.ScaleSlotToZero(ctx, service, slot)
}

func (f *failingCluster) DeleteSlot(ctx context.Context, service types.Service, slot types.Slot) error {
	if f.failDelete {
		return errors.New("delete endpoint unavailable")
	}
	return f.Client.DeleteSlot(ctx, service, slot)
}

func TestRollout_DeployTimeout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.cluster.EnsureSlotDeployed(ctx, testService, types.SlotBlue, "registry.local/accounts:v1"))
	require.NoError(t, h.router.SetSelector(ctx, testService, types.SlotBlue))

	broken := &failingCluster{Client: h.cluster, failEnsure: true}
	c := NewController(h.router, broken, h, testOptions())

	res := c.Rollout(ctx, testService, "registry.local/accounts:v2")

	assert.Equal(t, types.StateFailed, res.State)
	assert.ErrorIs(t, res.Err, ErrDeployTimeout)
	assert.Equal(t, types.SlotBlue, h.liveSlot(t), "live slot must never be touched by a deploy failure")
}

// TestRollout_CleanupFailureStillCompletes verifies that failing to
// decommission the old slot does not revert the switch
func TestRollout_CleanupFailureStillCompletes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.cluster.EnsureSlotDeployed(ctx, testService, types.SlotBlue, "registry.local/accounts:v1"))
	require.NoError(t, h.router.SetSelector(ctx, testService, types.SlotBlue))

	broken := &failingCluster{Client: h.cluster, failScale: true}
	c := NewController(h.router, broken, h, testOptions())

	res := c.Rollout(ctx, testService, "registry.local/accounts:v2")

	assert.Equal(t, types.StateCompleted, res.State, "cleanup failure is non-fatal")
	assert.ErrorIs(t, res.Err, ErrCleanupFailure, "the cleanup error is still reported")
	assert.Equal(t, types.SlotGreen, h.liveSlot(t))

	// The old slot is orphaned, to be reconciled out-of-band
	_, blueExists := h.cluster.Replicas(testService, types.SlotBlue)
	assert.True(t, blueExists)
}

// TestRollout_Reinvocation verifies that running twice with the same
// image performs a full valid swap back the other way
func TestRollout_Reinvocation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.controller(testOptions())

	first := c.Rollout(ctx, testService, "registry.local/accounts:v1")
	require.Equal(t, types.StateCompleted, first.State)
	require.Equal(t, types.SlotBlue, h.liveSlot(t))

	second := c.Rollout(ctx, testService, "registry.local/accounts:v1")
	assert.Equal(t, types.StateCompleted, second.State)
	assert.Equal(t, types.SlotBlue, second.FromColor)
	assert.Equal(t, types.SlotGreen, second.ToColor)
	assert.Equal(t, types.SlotGreen, h.liveSlot(t))
}

// TestRollout_SkipIfLive verifies the higher-layer short-circuit: the
// same image on the live slot becomes a no-op instead of a swap
func TestRollout_SkipIfLive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	opts := testOptions()
	opts.SkipIfLive = true
	c := h.controller(opts)

	first := c.Rollout(ctx, testService, "registry.local/accounts:v1")
	require.Equal(t, types.StateCompleted, first.State)
	require.False(t, first.Skipped)

	second := c.Rollout(ctx, testService, "registry.local/accounts:v1")
	assert.Equal(t, types.StateCompleted, second.State)
	assert.True(t, second.Skipped)
	assert.Equal(t, types.SlotBlue, h.liveSlot(t), "selector must not move on a skip")

	// A new image still triggers a real swap
	third := c.Rollout(ctx, testService, "registry.local/accounts:v2")
	assert.Equal(t, types.StateCompleted, third.State)
	assert.False(t, third.Skipped)
	assert.Equal(t, types.SlotGreen, h.liveSlot(t))
}

// TestRollout_CancelledBeforeSwitch verifies that cancellation during
// the pre-switch phase abandons the new slot without touching traffic
func TestRollout_CancelledBeforeSwitch(t *testing.T) {
	h := newHarness(t)
	bg := context.Background()

	require.NoError(t, h.cluster.EnsureSlotDeployed(bg, testService, types.SlotBlue, "registry.local/accounts:v1"))
	require.NoError(t, h.router.SetSelector(bg, testService, types.SlotBlue))

	// Keep the gate retrying long enough for the cancel to land
	h.greenHealthy.Store(false)
	opts := testOptions()
	opts.PreSwitchHealthAttempts = 1000
	opts.PreSwitchHealthInterval = 10 * time.Millisecond
	c := h.controller(opts)

	ctx, cancel := context.WithCancel(bg)
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	res := c.Rollout(ctx, testService, "registry.local/accounts:v2")

	assert.Equal(t, types.StateFailed, res.State)
	assert.Equal(t, types.SlotBlue, h.liveSlot(t), "cancellation must not affect live traffic")

	_, greenExists := h.cluster.Replicas(testService, types.SlotGreen)
	assert.False(t, greenExists, "cancelled attempt must not leak the new slot")
}

// TestRollout_CancellationDeferredAfterSwitch verifies that a cancel
// arriving once traffic has switched does not abort verification: the
// attempt still completes and cleans up
func TestRollout_CancellationDeferredAfterSwitch(t *testing.T) {
	h := newHarness(t)
	bg := context.Background()

	require.NoError(t, h.cluster.EnsureSlotDeployed(bg, testService, types.SlotBlue, "registry.local/accounts:v1"))
	require.NoError(t, h.router.SetSelector(bg, testService, types.SlotBlue))

	c := h.controller(testOptions())

	ctx, cancel := context.WithCancel(bg)
	go func() {
		// Cancel as soon as the selector moves to green
		for {
			slot, _ := h.router.GetSelector(bg, testService)
			if slot == types.SlotGreen {
				cancel()
				return
			}
			time.Sleep(100 * time.Microsecond)
		}
	}()
	defer cancel()

	res := c.Rollout(ctx, testService, "registry.local/accounts:v2")

	assert.Equal(t, types.StateCompleted, res.State,
		"cancellation after the switch is deferred until verification resolves")
	assert.Equal(t, types.SlotGreen, h.liveSlot(t))
}

func TestPlan(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.controller(testOptions())

	plan, err := c.Plan(ctx, testService, "registry.local/accounts:v1")
	require.NoError(t, err)
	assert.Equal(t, types.SlotNone, plan.FromColor)
	assert.Equal(t, types.SlotBlue, plan.ToColor)

	// Planning never mutates anything
	assert.Equal(t, types.SlotNone, h.liveSlot(t))
	_, blueExists := h.cluster.Replicas(testService, types.SlotBlue)
	assert.False(t, blueExists)

	require.NoError(t, h.router.SetSelector(ctx, testService, types.SlotGreen))
	plan, err = c.Plan(ctx, testService, "registry.local/accounts:v2")
	require.NoError(t, err)
	assert.Equal(t, types.SlotGreen, plan.FromColor)
	assert.Equal(t, types.SlotBlue, plan.ToColor)
}
