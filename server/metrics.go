package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadfeed_feed_requests_total",
		Help: "Feed requests by feed kind and HTTP status",
	}, []string{"kind", "status"})

	feedErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadfeed_feed_errors_total",
		Help: "Failed feed builds by error kind",
	}, []string{"kind"})

	feedItems = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "threadfeed_feed_items",
		Help:    "Number of items in rendered feeds",
		Buckets: prometheus.LinearBuckets(0, 10, 6), // 0, 10, ..., 50
	}, []string{"kind"})

	feedDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "threadfeed_feed_duration_seconds",
		Help:    "Time spent building and rendering a feed",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // Start at 1ms, double each bucket
	}, []string{"kind"})
)
