package controlplane

import (
	"context"

	"github.com/cuemby/bluegreen/pkg/types"
)

// Client is the cluster control-plane interface the orchestrator
// consumes. Any orchestrator that can create, scale, and delete a named
// workload can be plugged in; the rollout state machine never sees
// anything below this surface.
type Client interface {
	// EnsureSlotDeployed creates or updates the deployment named
	// SlotName(service, slot) with the given image and blocks until the
	// control plane reports it available or ctx expires. A ctx deadline
	// error means the slot never became ready.
	EnsureSlotDeployed(ctx context.Context, service types.Service, slot types.Slot, imageRef string) error

	// SlotImage returns the image currently deployed in the slot, or
	// "" if the slot's deployment does not exist. Used by callers that
	// want to short-circuit a rollout when the desired image is already
	// live.
	SlotImage(ctx context.Context, service types.Service, slot types.Slot) (string, error)

	// ScaleSlotToZero requests zero replicas for the slot. It does not
	// wait for a full drain; the orchestrator inserts a grace delay
	// before deletion.
	ScaleSlotToZero(ctx context.Context, service types.Service, slot types.Slot) error

	// DeleteSlot removes the slot's deployment. Deleting a slot that is
	// already gone is success, not an error.
	DeleteSlot(ctx context.Context, service types.Service, slot types.Slot) error
}
