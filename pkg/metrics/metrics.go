package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrdersCreated counts persisted orders by order type
var OrdersCreated = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "foodhub_orders_created_total",
		Help: "Total number of orders accepted and persisted",
	},
	[]string{"type"},
)

// OrdersRejected counts order submissions refused before persistence
var OrdersRejected = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "foodhub_orders_rejected_total",
		Help: "Total number of order submissions rejected",
	},
	[]string{"reason"},
)

// StatusTransitions counts applied and refused status changes
var StatusTransitions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "foodhub_order_status_transitions_total",
		Help: "Order status transitions by target status and outcome",
	},
	[]string{"to", "outcome"},
)

// Realtime fan-out metrics
var (
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodhub_realtime_events_published_total",
			Help: "Events handed to the broadcaster",
		},
		[]string{"type"},
	)

	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "foodhub_realtime_events_dropped_total",
			Help: "Events discarded from full subscriber queues",
		},
	)

	SubscribersEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "foodhub_realtime_subscribers_evicted_total",
			Help: "Subscribers removed for falling too far behind",
		},
	)

	Subscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "foodhub_realtime_subscribers",
			Help: "Currently connected realtime subscribers",
		},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodhub_http_requests_total",
			Help: "HTTP requests by route, method and status",
		},
		[]string{"path", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foodhub_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

// Database connection pool metrics
var (
	DBOpenConns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "foodhub_db_open_connections",
			Help: "Number of open connections in the DB pool",
		},
	)

	DBInUseConns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "foodhub_db_in_use_connections",
			Help: "Number of in-use connections in the DB pool",
		},
	)
)

func init() {
	prometheus.MustRegister(OrdersCreated, OrdersRejected, StatusTransitions)
	prometheus.MustRegister(EventsPublished, EventsDropped, SubscribersEvicted, Subscribers)
	prometheus.MustRegister(HTTPRequestsTotal, HTTPRequestDuration)
	prometheus.MustRegister(DBOpenConns, DBInUseConns)
}
