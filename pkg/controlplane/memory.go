package controlplane

import (
	"context"
	"sync"

	"github.com/cuemby/bluegreen/pkg/types"
)

// deployment is the in-memory record of one slot workload
type deployment struct {
	Image    string
	Replicas int
}

// Memory is an in-memory control plane. Deployments become available
// immediately, which makes it suitable for dry runs and tests.
type Memory struct {
	mu          sync.RWMutex
	deployments map[string]*deployment
}

// NewMemory creates an empty in-memory control plane
func NewMemory() *Memory {
	return &Memory{
		deployments: make(map[string]*deployment),
	}
}

func (m *Memory) key(service types.Service, slot types.Slot) string {
	return service.Namespace + "/" + types.SlotName(service, slot)
}

// EnsureSlotDeployed creates or updates the slot deployment; it is
// available as soon as the call returns
func (m *Memory) EnsureSlotDeployed(ctx context.Context, service types.Service, slot types.Slot, imageRef string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.deployments[m.key(service, slot)] = &deployment{Image: imageRef, Replicas: 1}
	return nil
}

// SlotImage returns the deployed image, or "" when the slot is absent
func (m *Memory) SlotImage(ctx context.Context, service types.Service, slot types.Slot) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.deployments[m.key(service, slot)]
	if !ok {
		return "", nil
	}
	return d.Image, nil
}

// ScaleSlotToZero sets the slot's replica count to zero
func (m *Memory) ScaleSlotToZero(ctx context.Context, service types.Service, slot types.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.deployments[m.key(service, slot)]; ok {
		d.Replicas = 0
	}
	return nil
}

// DeleteSlot removes the slot deployment; absent slots are success
func (m *Memory) DeleteSlot(ctx context.Context, service types.Service, slot types.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.deployments, m.key(service, slot))
	return nil
}

// Replicas reports the current replica count for a slot and whether the
// slot exists at all. Test helper.
func (m *Memory) Replicas(service types.Service, slot types.Slot) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.deployments[m.key(service, slot)]
	if !ok {
		return 0, false
	}
	return d.Replicas, true
}
