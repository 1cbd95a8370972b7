// Package metrics provides Prometheus metrics for busfinder.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes used as the "outcome" label of UpstreamRequestsTotal.
const (
	OutcomeSuccess   = "success"
	OutcomeStatus    = "bad_status"
	OutcomeMalformed = "malformed"
	OutcomeTransport = "transport_error"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Registry is the Prometheus registry for this metrics instance
	Registry *prometheus.Registry

	// HTTP server metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Schedule API metrics
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration prometheus.Histogram

	// Screen metrics
	DiscardedResponsesTotal  *prometheus.CounterVec
	InvalidTimeConfirmations prometheus.Counter
	ActiveScreens            prometheus.Gauge
}

// New creates and registers all application metrics with a new registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "busfinder_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "busfinder_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	upstreamRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "busfinder_schedule_requests_total",
			Help: "Number of schedule API requests by outcome",
		},
		[]string{"outcome"},
	)

	upstreamRequestDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "busfinder_schedule_request_duration_seconds",
		Help:    "Schedule API latency distribution",
		Buckets: prometheus.DefBuckets,
	})

	discardedResponsesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "busfinder_discarded_responses_total",
			Help: "Fetch completions dropped because they were stale or the screen was closed",
		},
		[]string{"reason"},
	)

	invalidTimeConfirmations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "busfinder_invalid_time_confirmations_total",
		Help: "Number of rejected time confirmations",
	})

	activeScreens := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "busfinder_active_screens",
		Help: "Number of open lookup screens",
	})

	registry.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		upstreamRequestsTotal,
		upstreamRequestDuration,
		discardedResponsesTotal,
		invalidTimeConfirmations,
		activeScreens,
	)

	return &Metrics{
		Registry:                 registry,
		HTTPRequestsTotal:        httpRequestsTotal,
		HTTPRequestDuration:      httpRequestDuration,
		UpstreamRequestsTotal:    upstreamRequestsTotal,
		UpstreamRequestDuration:  upstreamRequestDuration,
		DiscardedResponsesTotal:  discardedResponsesTotal,
		InvalidTimeConfirmations: invalidTimeConfirmations,
		ActiveScreens:            activeScreens,
	}
}

// ObserveFetch records one schedule API call. Safe on a nil receiver.
func (m *Metrics) ObserveFetch(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.UpstreamRequestsTotal.WithLabelValues(outcome).Inc()
	m.UpstreamRequestDuration.Observe(seconds)
}

// DiscardResponse counts a dropped fetch completion. Safe on a nil receiver.
func (m *Metrics) DiscardResponse(reason string) {
	if m == nil {
		return
	}
	m.DiscardedResponsesTotal.WithLabelValues(reason).Inc()
}

// InvalidTime counts a rejected confirmation. Safe on a nil receiver.
func (m *Metrics) InvalidTime() {
	if m == nil {
		return
	}
	m.InvalidTimeConfirmations.Inc()
}

// ScreenOpened and ScreenClosed track the ActiveScreens gauge. Safe on a nil
// receiver.
func (m *Metrics) ScreenOpened() {
	if m == nil {
		return
	}
	m.ActiveScreens.Inc()
}

func (m *Metrics) ScreenClosed() {
	if m == nil {
		return
	}
	m.ActiveScreens.Dec()
}
