/*
Package metrics exposes Prometheus metrics for rollout observability.

Metrics are registered globally and incremented by the rollout controller:
attempts by terminal state, end-to-end durations, health-gate outcomes per
phase (pre_switch / post_switch), selector writes per direction (forward /
rollback), and non-fatal cleanup failures. The CLI serves Handler() on an
optional metrics listener so a fleet run can be scraped while it executes.
*/
package metrics
