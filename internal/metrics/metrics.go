package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hivechat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hivechat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MessagesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hivechat_messages_posted_total",
			Help: "Total messages committed",
		},
		[]string{"type"}, // "message" or "log"
	)

	RoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hivechat_rooms_created_total",
			Help: "Total rooms created",
		},
	)

	// WebSocket metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hivechat_ws_connections",
			Help: "Currently connected WebSocket clients",
		},
	)

	BroadcastsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hivechat_broadcasts_dropped_total",
			Help: "Broadcast payloads dropped because a client send buffer was full",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hivechat_rate_limit_hits_total",
			Help: "Total rate limit rejections",
		},
		[]string{"endpoint"},
	)
)
