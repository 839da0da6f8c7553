/*
Package health provides the HTTP health-gating primitives used to promote or
abandon a deployment slot.

A Checker performs a single probe; Poll turns a Checker into a bounded
retry window (max attempts, interval between probes, timeout per probe) and
reports the first success or the last failure. The rollout controller uses
two windows per attempt:

 1. Pre-switch: the new slot is probed directly, before any traffic moves.
    Default 30 attempts at 10s intervals, roughly a five minute budget.
 2. Post-switch: the service is probed through the traffic router, at its
    public address, to validate the switch took effect end-to-end. Default
    6 attempts at 5s intervals.

Only 2xx responses count as healthy by default. All probes respect context
cancellation and per-probe timeouts; nothing in this package waits
unboundedly.

# Usage

	checker := health.NewHTTPChecker("http://accounts-green.banking.svc/healthz")
	result := health.Poll(ctx, checker, health.DefaultPreSwitchConfig())
	if !result.Healthy {
		// abandon the slot
	}
*/
package health
