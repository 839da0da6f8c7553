package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSlotOpposite tests the color complement rule
func TestSlotOpposite(t *testing.T) {
	tests := []struct {
		name     string
		slot     Slot
		expected Slot
	}{
		{name: "blue flips to green", slot: SlotBlue, expected: SlotGreen},
		{name: "green flips to blue", slot: SlotGreen, expected: SlotBlue},
		{name: "none bootstraps to blue", slot: SlotNone, expected: SlotBlue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.slot.Opposite())
		})
	}
}

// TestSlotOppositeInvolution verifies that flipping twice returns the
// original color for both deployable slots
func TestSlotOppositeInvolution(t *testing.T) {
	assert.Equal(t, SlotBlue, SlotBlue.Opposite().Opposite())
	assert.Equal(t, SlotGreen, SlotGreen.Opposite().Opposite())
}

func TestSlotValid(t *testing.T) {
	assert.True(t, SlotBlue.Valid())
	assert.True(t, SlotGreen.Valid())
	assert.False(t, SlotNone.Valid())
	assert.False(t, Slot("purple").Valid())
}

func TestSlotString(t *testing.T) {
	assert.Equal(t, "blue", SlotBlue.String())
	assert.Equal(t, "green", SlotGreen.String())
	assert.Equal(t, "none", SlotNone.String())
}

// TestSlotName tests the workload naming rule
func TestSlotName(t *testing.T) {
	svc := Service{Name: "accounts", Namespace: "banking"}

	assert.Equal(t, "accounts-blue", SlotName(svc, SlotBlue))
	assert.Equal(t, "accounts-green", SlotName(svc, SlotGreen))
}

func TestServiceKey(t *testing.T) {
	svc := Service{Name: "accounts", Namespace: "banking"}
	assert.Equal(t, "banking/accounts", svc.Key())
}

func TestRolloutStateTerminal(t *testing.T) {
	terminal := []RolloutState{StateCompleted, StateFailed, StateRolledBack}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "expected %s to be terminal", s)
	}

	active := []RolloutState{
		StateIdle,
		StateResolvingActive,
		StateDeployingInactive,
		StateHealthCheckingNew,
		StateSwitchingTraffic,
		StatePostSwitchHealth,
		StateCleaningUpOld,
	}
	for _, s := range active {
		assert.False(t, s.Terminal(), "expected %s to be non-terminal", s)
	}
}

func TestFleetPolicyValid(t *testing.T) {
	assert.True(t, PolicyFailFast.Valid())
	assert.True(t, PolicyContinueOnError.Valid())
	assert.False(t, FleetPolicy("retry-forever").Valid())
}
