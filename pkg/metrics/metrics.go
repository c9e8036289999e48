package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Activation Metrics
	activationAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pim_activation_attempts_total",
			Help: "Total number of role activation attempts submitted",
		},
		[]string{"kind", "role"},
	)

	activationOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pim_activation_outcomes_total",
			Help: "Total number of terminal activation outcomes by status",
		},
		[]string{"kind", "outcome"},
	)

	activationGrantedHours = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pim_activation_granted_hours",
			Help:    "Duration in hours granted for successful activations",
			Buckets: []float64{1, 2, 4, 8, 12, 24},
		},
		[]string{"kind"},
	)

	// Decision Metrics
	rolesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pim_roles_skipped_total",
			Help: "Total number of roles skipped without an activation attempt",
		},
		[]string{"kind", "reason"},
	)

	// Run Metrics
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pim_runs_total",
			Help: "Total number of activation runs",
		},
		[]string{"mode"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pim_run_duration_seconds",
			Help:    "Duration of a full activation run",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4min
		},
	)

	// Provider Metrics
	providerErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pim_provider_errors_total",
			Help: "Total number of identity-governance API errors by classification",
		},
		[]string{"kind", "class"},
	)
)

func RecordActivationAttempt(kind, role string) {
	activationAttemptsTotal.WithLabelValues(kind, role).Inc()
}

func RecordActivationOutcome(kind, outcome string, grantedHours int) {
	activationOutcomesTotal.WithLabelValues(kind, outcome).Inc()
	if grantedHours > 0 {
		activationGrantedHours.WithLabelValues(kind).Observe(float64(grantedHours))
	}
}

func RecordRoleSkipped(kind, reason string) {
	rolesSkippedTotal.WithLabelValues(kind, reason).Inc()
}

func RecordRun(mode string, elapsed time.Duration) {
	runsTotal.WithLabelValues(mode).Inc()
	runDuration.Observe(elapsed.Seconds())
}

func RecordProviderError(kind, class string) {
	providerErrorsTotal.WithLabelValues(kind, class).Inc()
}
