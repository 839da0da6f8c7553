/*
Package controlplane defines the cluster control-plane interface consumed by
the rollout controller, plus an HTTP/JSON adapter and an in-memory fake.

The orchestrator needs exactly four operations from whatever actually runs
workloads: ensure a named slot deployment exists with a given image and wait
for it to be available, report the image a slot is running, scale a slot to
zero, and delete a slot (tolerating "already gone"). Everything else about
scheduling, placement, and container runtime lives behind this interface and
never leaks into the state machine.

EnsureSlotDeployed takes its readiness budget from the caller's context
deadline; the rollout controller derives that deadline from its
DeployReadyTimeout option (default 600s).
*/
package controlplane
