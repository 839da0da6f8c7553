package types

import (
	"fmt"
	"time"
)

// Service identifies a deployable unit. It is immutable configuration,
// loaded once per fleet run; the orchestrator never inspects anything
// about the service beyond its identity and health endpoint.
type Service struct {
	Name            string
	Namespace       string
	HealthCheckPath string
}

// Key returns the namespace-qualified identity of the service, used for
// per-service locking and result maps.
func (s Service) Key() string {
	return s.Namespace + "/" + s.Name
}

// Slot is one of exactly two symbolic deployment targets per service.
// At most one slot receives live traffic at a time.
type Slot string

const (
	SlotBlue  Slot = "blue"
	SlotGreen Slot = "green"

	// SlotNone means no selector is set for the service: no rollout has
	// ever happened (bootstrap case).
	SlotNone Slot = ""
)

// Opposite returns the logical complement of a slot. This is the only
// rule by which a rollout picks its target color: never a runtime
// signal, always the complement of whatever is currently live. The
// bootstrap case (no live slot) maps to Blue.
func (s Slot) Opposite() Slot {
	switch s {
	case SlotBlue:
		return SlotGreen
	case SlotGreen:
		return SlotBlue
	default:
		return SlotBlue
	}
}

// Valid reports whether the slot is one of the two deployable colors.
func (s Slot) Valid() bool {
	return s == SlotBlue || s == SlotGreen
}

func (s Slot) String() string {
	if s == SlotNone {
		return "none"
	}
	return string(s)
}

// SlotName builds the deployment object name for a service slot. There
// is exactly one implementation of this naming rule; every component
// that refers to a slot's workload goes through it.
func SlotName(service Service, slot Slot) string {
	return fmt.Sprintf("%s-%s", service.Name, slot)
}

// RolloutState is the state of a rollout attempt in the orchestration
// state machine.
type RolloutState string

const (
	StateIdle                RolloutState = "idle"
	StateResolvingActive     RolloutState = "resolving-active"
	StateDeployingInactive   RolloutState = "deploying-inactive"
	StateHealthCheckingNew   RolloutState = "health-checking-new"
	StateSwitchingTraffic    RolloutState = "switching-traffic"
	StatePostSwitchHealth    RolloutState = "post-switch-health-check"
	StateCleaningUpOld       RolloutState = "cleaning-up-old"

	// Terminal states.
	StateCompleted  RolloutState = "completed"
	StateFailed     RolloutState = "failed"
	StateRolledBack RolloutState = "rolled-back"
)

// Terminal reports whether the state is one of the three terminal states.
func (s RolloutState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateRolledBack
}

// RolloutResult is the outcome of one rollout attempt. It is the only
// record the orchestrator produces; nothing about the attempt is
// persisted, the traffic router remains the system of record for which
// slot is live.
type RolloutResult struct {
	AttemptID string
	Service   Service
	ImageRef  string
	State     RolloutState
	FromColor Slot
	ToColor   Slot
	StartedAt time.Time
	Duration  time.Duration

	// Err is the triggering error for Failed and RolledBack results.
	// For Completed results it may carry a non-fatal cleanup error.
	Err error

	// Skipped is set when the desired image was already live and the
	// caller asked for unnecessary swaps to be short-circuited.
	Skipped bool
}

// Succeeded reports whether the attempt ended with the new image live.
func (r RolloutResult) Succeeded() bool {
	return r.State == StateCompleted
}

// FleetPolicy controls how a fleet run reacts to a failed service.
type FleetPolicy string

const (
	// PolicyFailFast stops the fleet at the first Failed or RolledBack
	// service; subsequent services are never attempted.
	PolicyFailFast FleetPolicy = "fail-fast"

	// PolicyContinueOnError attempts every service and reports
	// per-service outcomes.
	PolicyContinueOnError FleetPolicy = "continue-on-error"
)

// Valid reports whether the policy is a recognized fleet policy.
func (p FleetPolicy) Valid() bool {
	return p == PolicyFailFast || p == PolicyContinueOnError
}
