package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentEventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "order_service",
		Subsystem: "kafka_consumer",
		Name:      "payment_events_processed_total",
		Help:      "Total number of successfully processed payment events",
	})

	paymentEventsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "order_service",
		Subsystem: "kafka_consumer",
		Name:      "payment_events_rejected_total",
		Help:      "Total number of payment events rejected by business rules",
	})

	paymentEventsDLQ = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "order_service",
		Subsystem: "kafka_consumer",
		Name:      "payment_events_dlq_total",
		Help:      "Total number of payment events written to DLQ",
	})
)
