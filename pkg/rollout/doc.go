/*
Package rollout implements the blue-green rollout state machine: zero-downtime
version upgrades of a service behind a traffic router, with health-gated
promotion and automatic rollback.

# State Machine

Each call to Controller.Rollout drives one attempt through:

	Idle
	  │
	  ▼
	ResolvingActive ──router error──────────────▶ Failed
	  │ fromColor = router selector (may be none)
	  │ toColor   = opposite(fromColor), none → blue
	  ▼
	DeployingInactive ──deploy error/timeout───▶ Failed (slot abandoned)
	  │
	  ▼
	HealthCheckingNew ──gate fails──────────────▶ Failed (slot abandoned,
	  │   probes the slot directly                        live slot untouched)
	  ▼
	SwitchingTraffic ──selector write fails────▶ Failed (operator action)
	  │   single atomic selector write
	  ▼
	PostSwitchHealthCheck ──gate fails─┬────────▶ RolledBack (prior color restored,
	  │   probes through the router    │                      bad slot kept for inspection)
	  │                                └─none──▶ Failed (nothing to revert to)
	  ▼
	CleaningUpOld ──cleanup error───────────────▶ Completed (non-fatal, logged)
	  │   scale old slot to zero, grace delay, delete
	  ▼
	Completed

Target color selection is never based on a runtime signal; it is always the
logical complement of whatever the router says is live. Re-invoking against a
service that already completed performs a full valid swap back the other way,
which is why callers that want a no-op use Options.SkipIfLive.

# Concurrency

A per-service mutex serializes the resolve-through-switch span, so two
concurrent invocations for the same service can never compute conflicting
target colors. Different services share nothing and roll out concurrently
without coordination.

Cancellation is honored up to the traffic switch (the half-created slot is
deleted best-effort, live traffic is never affected). Once the switch starts,
cancellation is deferred until the post-switch gate resolves: leaving the
system mid-switch with no verification is strictly worse than finishing the
check.

# Failure Semantics

Failures before the switch abandon the attempt with zero traffic impact.
Failures at or after the switch either revert to the last known-good color or
surface as requiring operator action; the controller never invents a remedy
beyond reverting. RolledBack means the new version failed validation with the
old version still serving (a release defect); Failed means the rollout
mechanics themselves broke (an infrastructure problem).
*/
package rollout
