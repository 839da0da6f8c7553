/*
Package fleet runs blue-green rollouts across an ordered list of services.

A fleet is the unit a deployment pipeline invokes: every service gets one
rollout attempt, in the configured order, under one of two failure policies.
Fail-fast stops at the first service that ends Failed or RolledBack and never
attempts the rest; continue-on-error attempts everything and reports
per-service outcomes. Either way the aggregate run is a failure if any
attempted service did not complete.

Order matters: later services may implicitly depend on earlier ones being
live, so the sequential runner is the default. Bounded concurrency is
available under continue-on-error only, where no stop-the-rest semantics
exist to violate.
*/
package fleet
