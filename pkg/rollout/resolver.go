package rollout

import (
	"context"
	"fmt"

	"github.com/cuemby/bluegreen/pkg/router"
	"github.com/cuemby/bluegreen/pkg/types"
)

// ColorResolver derives which slot is currently live for a service by
// reading the traffic router's selector. It has no side effects and no
// memory: the router is the sole source of truth for "what is active",
// which is what makes re-invoking the orchestrator after a crash safe.
type ColorResolver struct {
	router router.Client
}

// NewColorResolver creates a resolver backed by the given router
func NewColorResolver(r router.Client) *ColorResolver {
	return &ColorResolver{router: r}
}

// ResolveActive returns the live slot for the service, or SlotNone when
// no selector has ever been set. A router error is returned as-is; the
// caller must treat it as a hard stop, never as "none", because
// defaulting to Blue against an unreadable router could deploy on top
// of the live slot.
func (r *ColorResolver) ResolveActive(ctx context.Context, service types.Service) (types.Slot, error) {
	slot, err := r.router.GetSelector(ctx, service)
	if err != nil {
		return types.SlotNone, fmt.Errorf("failed to resolve active color for %s: %w", service.Key(), err)
	}

	if slot != types.SlotNone && !slot.Valid() {
		return types.SlotNone, fmt.Errorf("router reported unknown slot %q for %s", slot, service.Key())
	}

	return slot, nil
}
