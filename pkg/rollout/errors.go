package rollout

import "errors"

// Sentinel errors classifying why a rollout attempt ended the way it
// did. Terminal results wrap one of these around the underlying cause,
// so pipelines can branch with errors.Is.
var (
	// ErrRouterUnreachable means the active color could not be
	// resolved. No cluster mutation was attempted.
	ErrRouterUnreachable = errors.New("traffic router unreachable")

	// ErrDeployFailure means the control plane rejected the new slot's
	// deployment. No traffic was affected.
	ErrDeployFailure = errors.New("slot deployment failed")

	// ErrDeployTimeout means the new slot never became ready within the
	// deploy budget. No traffic was affected.
	ErrDeployTimeout = errors.New("slot deployment never became ready")

	// ErrPreSwitchHealthFailure means the new slot failed its health
	// gate before any traffic moved. The slot is abandoned; the live
	// slot was never touched.
	ErrPreSwitchHealthFailure = errors.New("pre-switch health gate failed")

	// ErrSwitchWriteFailure means the selector write failed, leaving
	// ambiguous router state. Never retried automatically; operator
	// intervention required.
	ErrSwitchWriteFailure = errors.New("traffic selector write failed")

	// ErrPostSwitchHealthFailure means the service failed verification
	// after the switch. Triggers a rollback when a prior color exists,
	// otherwise the attempt ends degraded with traffic still on the new
	// slot.
	ErrPostSwitchHealthFailure = errors.New("post-switch health gate failed")

	// ErrCleanupFailure means the old slot could not be fully
	// decommissioned. Non-fatal: traffic has already moved correctly,
	// the orphaned slot is reconciled out-of-band.
	ErrCleanupFailure = errors.New("old slot cleanup failed")
)
