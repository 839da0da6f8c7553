/*
Package router defines the traffic-router interface consumed by the rollout
controller, plus two implementations: an HTTP/JSON adapter for routers that
expose a selector management API, and an in-memory router for dry runs and
tests.

The selector is the sole source of truth for which slot is live. The
orchestrator keeps no durable record of its own; resolving the active color
always means asking the router. That is also why GetSelector errors are hard
stops rather than a default color: guessing "none" against an unreachable
router could bootstrap a second live slot.
*/
package router
