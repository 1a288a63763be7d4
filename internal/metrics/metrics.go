// Package metrics provides Prometheus metrics for the media cache engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Transfer metrics
	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediabridge_fetches_total",
			Help: "Total number of remote file fetches",
		},
		[]string{"result"},
	)

	fetchedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediabridge_fetched_bytes_total",
			Help: "Total bytes staged from remote transports",
		},
	)

	fetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediabridge_fetch_duration_seconds",
			Help:    "Remote fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Thumbnail metrics
	thumbnailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediabridge_thumbnails_total",
			Help: "Total number of thumbnail synthesis attempts",
		},
		[]string{"kind", "result"},
	)

	thumbnailDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediabridge_thumbnail_duration_seconds",
			Help:    "Thumbnail synthesis duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Cache metrics
	cacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediabridge_cache_hits_total",
			Help: "Thumbnail requests served from the in-memory cache",
		},
	)

	evictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediabridge_evictions_total",
			Help: "Staged files evicted to stay within the storage budget",
		},
	)

	stagedBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediabridge_staged_bytes",
			Help: "Bytes currently held in the staging area",
		},
	)

	catalogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediabridge_catalog_size",
			Help: "Number of media entries in the loaded catalog",
		},
	)
)

// RecordFetch records the outcome of a remote fetch.
func RecordFetch(d time.Duration, bytes int64, ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}
	fetchesTotal.WithLabelValues(status).Inc()
	fetchDuration.Observe(d.Seconds())
	if ok && bytes > 0 {
		fetchedBytesTotal.Add(float64(bytes))
	}
}

// RecordThumbnail records a thumbnail synthesis attempt.
func RecordThumbnail(kind string, d time.Duration, ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}
	thumbnailsTotal.WithLabelValues(kind, status).Inc()
	thumbnailDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordCacheHit records a thumbnail request served without any I/O.
func RecordCacheHit() {
	cacheHitsTotal.Inc()
}

// RecordEviction records one evicted staged file.
func RecordEviction() {
	evictionsTotal.Inc()
}

// SetStagedBytes updates the staging area size gauge.
func SetStagedBytes(n int64) {
	stagedBytes.Set(float64(n))
}

// SetCatalogSize updates the catalog size gauge.
func SetCatalogSize(n int) {
	catalogSize.Set(float64(n))
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
