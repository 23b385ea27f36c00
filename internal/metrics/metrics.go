// Package metrics defines the Prometheus collectors for the tracker. All
// collectors register with the default registry at init and are served on
// /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pixel_tracker"

var (
	PixelsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pixels_created_total",
			Help:      "Total number of tracking pixels issued",
		},
	)

	OpensRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opens_recorded_total",
			Help:      "Total number of open events written, by classification",
		},
		[]string{"classification"}, // "human", "bot"
	)

	OpenWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "open_write_failures_total",
			Help:      "Total number of pixel fetches whose open event could not be stored",
		},
	)

	UnknownPixelFetches = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_pixel_fetches_total",
			Help:      "Total number of fetches for pixel ids that were never issued",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_published_total",
			Help:      "Open notifications sent to the event queue, by result",
		},
		[]string{"result"}, // "ok", "error"
	)
)

// ObserveHTTPRequest records one served request. route is the matched
// pattern, not the raw path, to keep label cardinality bounded.
func ObserveHTTPRequest(route, method string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}
