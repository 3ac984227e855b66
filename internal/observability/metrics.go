package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	httpRequestsTotal    *prometheus.CounterVec
	httpLatencySeconds   *prometheus.HistogramVec
	httpErrorsTotal      *prometheus.CounterVec
	chatMessagesTotal    *prometheus.CounterVec
	chatConnectionsTotal prometheus.Counter
	sanctionsTotal       *prometheus.CounterVec
	reportsTotal         *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wecan_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wecan_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wecan_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		chatMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wecan_chat_messages_total",
			Help: "Chat messages published, labelled by room kind.",
		}, []string{"room_kind"})

		chatConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wecan_chat_connections_total",
			Help: "Websocket chat connections accepted.",
		})

		sanctionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wecan_sanctions_total",
			Help: "Sanctions applied from the moderation console, by type.",
		}, []string{"type"})

		reportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wecan_reports_total",
			Help: "Reports filed, labelled by kind (abuse or support).",
		}, []string{"kind"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			chatMessagesTotal,
			chatConnectionsTotal,
			sanctionsTotal,
			reportsTotal,
		)
	})
}

// HTTPRequests exposes the counter for served requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ChatMessages exposes the counter for published chat messages.
func ChatMessages() *prometheus.CounterVec {
	RegisterMetrics()
	return chatMessagesTotal
}

// ChatConnections exposes the counter for accepted websocket connections.
func ChatConnections() prometheus.Counter {
	RegisterMetrics()
	return chatConnectionsTotal
}

// Sanctions exposes the counter for applied sanctions.
func Sanctions() *prometheus.CounterVec {
	RegisterMetrics()
	return sanctionsTotal
}

// Reports exposes the counter for filed reports.
func Reports() *prometheus.CounterVec {
	RegisterMetrics()
	return reportsTotal
}
