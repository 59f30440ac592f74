package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pogopad_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pogopad_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pogopad_websocket_active_sessions",
			Help: "Number of active WebSocket editing sessions",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pogopad_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction", "type"}, // direction: sent, received
	)

	overlaysRendered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pogopad_overlays_rendered_total",
			Help: "Total number of overlay images rendered",
		},
	)
)
