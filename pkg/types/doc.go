/*
Package types defines the core data model shared by all bluegreen components.

The model is deliberately small: a Service is nothing more than a name, a
namespace, and a health endpoint; a Slot is one of two symbolic colors; and a
RolloutResult is the transient record of one state-machine run. The traffic
router and cluster control plane are the system of record for everything
else, which is what lets a crashed orchestrator resume safely by re-reading
live state instead of trusting a local copy.

# Color Selection

Target colors are always the logical complement of the live color:

	live = blue  → deploy green
	live = green → deploy blue
	live = none  → deploy blue (bootstrap)

Slot.Opposite is the single implementation of this rule, and SlotName is the
single implementation of the "{service}-{color}" workload naming rule. Both
are pure functions so they can be tested in isolation.
*/
package types
