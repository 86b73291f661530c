package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boxoffice",
		Name:      "orders_total",
		Help:      "Orders by the status they reached.",
	}, []string{"status"})

	LineItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boxoffice",
		Name:      "line_items_total",
		Help:      "Line items by the status they reached.",
	}, []string{"status"})

	MailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boxoffice",
		Name:      "mails_total",
		Help:      "Mails by kind and delivery result.",
	}, []string{"kind", "result"})

	HttpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "boxoffice",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "code"})
)
