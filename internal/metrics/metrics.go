// Package metrics exposes the prometheus collectors of the vidtube API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidtube_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidtube_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidtube_api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidtube_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"scope"},
	)

	// ToggleTotal counts like and subscription flips by kind and direction.
	ToggleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidtube_toggles_total",
			Help: "Total number of like and subscription toggles",
		},
		[]string{"kind", "result"},
	)

	MediaUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidtube_media_uploads_total",
			Help: "Total number of media uploads to the object store",
		},
		[]string{"kind", "outcome"},
	)

	MediaUploadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidtube_media_upload_duration_seconds",
			Help:    "Duration of staging, probing and pushing one media file",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"kind"},
	)

	MediaDeletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidtube_media_deletions_total",
			Help: "Total number of background media deletions",
		},
		[]string{"outcome"},
	)

	JanitorQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidtube_media_janitor_queue_depth",
			Help: "Number of media deletions waiting for a worker",
		},
	)
)

// RecordAPIRequest records one served request.
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest moves the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit records a rejected request.
func RecordRateLimitHit(scope string) {
	APIRateLimitHits.WithLabelValues(scope).Inc()
}

// RecordToggle records the outcome of a like or subscription toggle.
func RecordToggle(kind, result string) {
	ToggleTotal.WithLabelValues(kind, result).Inc()
}

// RecordUpload records one media push.
func RecordUpload(kind string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	MediaUploads.WithLabelValues(kind, outcome).Inc()
	MediaUploadDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordDeletion records one background media deletion.
func RecordDeletion(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	MediaDeletions.WithLabelValues(outcome).Inc()
}
