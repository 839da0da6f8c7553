package router

import (
	"context"

	"github.com/cuemby/bluegreen/pkg/types"
)

// Client is the traffic-router interface the orchestrator consumes. The
// selector it manages is the single piece of mutable shared state in
// the system: whichever slot the selector names receives live traffic.
//
// Implementations must make SetSelector a single atomic write. A
// two-step remove-then-add would leave a window with zero or two live
// slots, which violates the one-live-slot invariant.
type Client interface {
	// GetSelector returns the slot currently receiving traffic for the
	// service, or SlotNone if no selector has ever been set (bootstrap
	// case). An error means the router could not be consulted; callers
	// must not assume a default color on error.
	GetSelector(ctx context.Context, service types.Service) (types.Slot, error)

	// SetSelector atomically points the service's live route at the
	// given slot. It must not partially apply.
	SetSelector(ctx context.Context, service types.Service, slot types.Slot) error
}
