package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RemindersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certalert_reminders_created_total",
			Help: "Reminders created by the generator and the expired sweep",
		},
		[]string{"tier"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certalert_notifications_total",
			Help: "Delivery attempts by tier, provider and outcome",
		},
		[]string{"tier", "provider", "outcome"},
	)

	// SweepTransitions counts expired-sweep status updates; unchanged means the
	// certification had already left active.
	SweepTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certalert_sweep_transitions_total",
			Help: "Expired sweep status transitions by outcome",
		},
		[]string{"outcome"},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certalert_runs_total",
			Help: "Daily orchestrator runs by outcome",
		},
		[]string{"outcome"},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "certalert_run_duration_seconds",
			Help:    "Duration of daily orchestrator runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	// TransportLatency measures a single provider send call
	TransportLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "certalert_transport_send_duration_seconds",
			Help:    "Latency of transport send calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "outcome"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certalert_http_requests_total",
			Help: "Operator API requests",
		},
		[]string{"path", "method", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "certalert_http_request_duration_seconds",
			Help:    "Operator API response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RemindersCreated,
			NotificationsTotal,
			SweepTransitions,
			RunsTotal,
			RunDuration,
			TransportLatency,
			HTTPRequests,
			HTTPDuration,
		)
	})
}
