// Package metrics exposes Prometheus instruments for the comment and login
// gates.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gate stages, used as the "stage" label.
const (
	StageCSRF      = "csrf"
	StageHoneypot  = "honeypot"
	StageRate      = "rate"
	StageValidate  = "validate"
	StageSpam      = "spam"
	StageDuplicate = "duplicate"
	StagePersist   = "persist"
	StageError     = "error"
)

const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeDropped  = "dropped"
	OutcomeFailed   = "failed"
)

var (
	// GateDecisions counts where each gated request ended up.
	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blog_gate_decisions_total",
			Help: "Comment and login gate decisions by action, stage and outcome",
		},
		[]string{"action", "stage", "outcome"},
	)

	// LoginAttempts counts admin sign-in results (success, invalid, locked, error).
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blog_login_attempts_total",
			Help: "Admin login attempts by result",
		},
		[]string{"result"},
	)

	RateLimitSweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "blog_ratelimit_sweeps_total",
			Help: "Number of rate-limit counter sweeps run",
		},
	)

	RateLimitSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "blog_ratelimit_swept_counters_total",
			Help: "Number of expired rate-limit counters removed",
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blog_http_requests_total",
			Help: "HTTP requests by method and status code",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blog_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method"},
	)
)

func RecordGate(action, stage, outcome string) {
	GateDecisions.WithLabelValues(action, stage, outcome).Inc()
}

func RecordLogin(result string) {
	LoginAttempts.WithLabelValues(result).Inc()
}
