package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "order_service",
		Subsystem: "orders",
		Name:      "created_total",
		Help:      "Total number of orders created.",
	}, []string{"creator"})

	ordersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "order_service",
		Subsystem: "orders",
		Name:      "rejected_total",
		Help:      "Total number of order requests rejected by business rules.",
	}, []string{"reason"})

	paymentsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "order_service",
		Subsystem: "orders",
		Name:      "payments_confirmed_total",
		Help:      "Total number of confirmed payments.",
	})

	expiredOrdersReleased = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "order_service",
		Subsystem: "orders",
		Name:      "expired_released_total",
		Help:      "Total number of expired orders released by the sweep.",
	})

	stockUnitsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "order_service",
		Subsystem: "orders",
		Name:      "stock_units_released_total",
		Help:      "Total number of stock units returned to the pool.",
	})
)
