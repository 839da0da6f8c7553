package router

import (
	"context"
	"fmt"
	"sync"

	"github.com/cuemby/bluegreen/pkg/types"
)

// Memory is an in-memory router implementation. Each selector write is
// a single map assignment under the lock, so the atomicity contract
// holds trivially. It backs dry runs and tests.
type Memory struct {
	mu        sync.RWMutex
	selectors map[string]types.Slot
}

// NewMemory creates an empty in-memory router
func NewMemory() *Memory {
	return &Memory{
		selectors: make(map[string]types.Slot),
	}
}

// GetSelector returns the live slot for the service, or SlotNone if no
// selector has been set
func (m *Memory) GetSelector(ctx context.Context, service types.Service) (types.Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.selectors[service.Key()], nil
}

// SetSelector atomically points the service at the given slot
func (m *Memory) SetSelector(ctx context.Context, service types.Service, slot types.Slot) error {
	if !slot.Valid() {
		return fmt.Errorf("cannot route %s to invalid slot %q", service.Key(), slot)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.selectors[service.Key()] = slot
	return nil
}
