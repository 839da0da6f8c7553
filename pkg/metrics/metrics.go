package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Rollout metrics
	RolloutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bluegreen_rollouts_total",
			Help: "Total number of rollout attempts by terminal state",
		},
		[]string{"state"},
	)

	RolloutDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bluegreen_rollout_duration_seconds",
			Help:    "End-to-end rollout attempt duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"state"},
	)

	// Health gate metrics
	HealthProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bluegreen_health_gates_total",
			Help: "Total number of health gate evaluations by phase and result",
		},
		[]string{"phase", "result"},
	)

	// Traffic metrics
	TrafficSwitchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bluegreen_traffic_switches_total",
			Help: "Total number of selector writes by direction (forward or rollback)",
		},
		[]string{"direction"},
	)

	// Cleanup metrics
	CleanupFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bluegreen_cleanup_failures_total",
			Help: "Total number of non-fatal old-slot cleanup failures",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(RolloutsTotal)
	prometheus.MustRegister(RolloutDuration)
	prometheus.MustRegister(HealthProbesTotal)
	prometheus.MustRegister(TrafficSwitchesTotal)
	prometheus.MustRegister(CleanupFailuresTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
