package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed through checkout",
	})

	OrdersFulfilledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_fulfilled_total",
		Help: "Total number of orders confirmed by the payment processor",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed orders",
	}, []string{"reason"})

	OrdersShippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_shipped_total",
		Help: "Total number of orders marked shipped",
	})

	CheckoutRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_rejected_total",
		Help: "Total number of rejected checkout attempts",
	}, []string{"reason"})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_latency_seconds",
		Help:    "Latency of order placement",
		Buckets: prometheus.DefBuckets,
	})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Total number of payment webhook events received",
	}, []string{"type", "result"})

	InvoicesDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invoices_delivered_total",
		Help: "Total number of invoices delivered",
	})

	SummaryRefreshTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_summary_refresh_total",
		Help: "Total number of order summary snapshots written",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
