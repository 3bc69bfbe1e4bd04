// Package monitoring holds the prometheus collectors of the service.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicketsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingressos_tickets_issued_total",
		Help: "Tickets issued, by payment type",
	}, []string{"payment_type"})

	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingressos_orders_created_total",
		Help: "Orders created in PENDENTE status",
	})

	SaleRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingressos_sale_rejections_total",
		Help: "Sales and courtesies refused, by reason",
	}, []string{"reason"})

	Redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingressos_redemptions_total",
		Help: "Redemption attempts, by result",
	}, []string{"result"})

	SessionsCloned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingressos_sessions_cloned_total",
		Help: "Sessions created by cloning the original session",
	})

	SeatHoldConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingressos_seat_hold_conflicts_total",
		Help: "Seat hold attempts refused because a seat was already held",
	})

	TxDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingressos_tx_duration_seconds",
		Help:    "Duration of inventory transactions",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingressos_http_requests_total",
		Help: "HTTP requests by route and status",
	}, []string{"method", "route", "status"})
)
