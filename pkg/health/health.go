package health

import (
	"context"
	"time"
)

// Result represents the outcome of a single health probe
type Result struct {
	Healthy     bool
	Message     string
	StatusCode  int // 0 when the probe never got an HTTP response
	AttemptedAt time.Time
	Latency     time.Duration
}

// Checker is the interface implemented by all health probes
type Checker interface {
	// Check performs one probe and returns the result
	Check(ctx context.Context) Result
}

// PollConfig bounds a polling health-check window
type PollConfig struct {
	// MaxAttempts is the number of sequential probes before giving up
	MaxAttempts int

	// Interval is the pause between probes
	Interval time.Duration

	// Timeout bounds each individual probe
	Timeout time.Duration
}

// DefaultPreSwitchConfig returns the polling window used to gate a new
// slot before any traffic is switched to it: 30 attempts spaced 10s
// apart, roughly a five minute budget.
func DefaultPreSwitchConfig() PollConfig {
	return PollConfig{
		MaxAttempts: 30,
		Interval:    10 * time.Second,
		Timeout:     5 * time.Second,
	}
}

// DefaultPostSwitchConfig returns the shorter polling window used to
// verify a switch took effect end-to-end.
func DefaultPostSwitchConfig() PollConfig {
	return PollConfig{
		MaxAttempts: 6,
		Interval:    5 * time.Second,
		Timeout:     5 * time.Second,
	}
}
