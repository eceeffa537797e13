package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduling",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scheduling",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	AvailabilityDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scheduling",
		Name:      "availability_compute_seconds",
		Help:      "Wall time of one availability computation, cache misses only.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scheduling",
		Name:      "availability_cache_hits_total",
		Help:      "Availability responses served from Redis.",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scheduling",
		Name:      "availability_cache_misses_total",
		Help:      "Availability responses that required a full computation.",
	})

	Bookings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduling",
		Name:      "bookings_total",
		Help:      "Booking attempts by outcome.",
	}, []string{"outcome"})

	ExpiredBookings = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scheduling",
		Name:      "expired_bookings_total",
		Help:      "Pending bookings released by the expiry worker.",
	})
)
