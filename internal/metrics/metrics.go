package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrdersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "number of orders created via checkout",
		},
	)

	Transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "number of committed status transitions",
		},
		[]string{"status"},
	)

	InvalidTransitions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "order_invalid_transitions_total",
			Help: "number of rejected status transition attempts",
		},
	)

	EventsPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "status_events_published_total",
			Help: "number of status events pushed to the fanout exchange",
		},
	)

	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "status_events_dropped_total",
			Help: "number of malformed status events logged and dropped",
		},
	)

	GatewayClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_connected_clients",
			Help: "number of observers currently connected to the realtime gateway",
		},
	)
)

func Init() {
	prometheus.MustRegister(
		OrdersCreated,
		Transitions,
		InvalidTransitions,
		EventsPublished,
		EventsDropped,
		GatewayClients,
	)
}
