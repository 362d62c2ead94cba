// Package metrics provides Prometheus metrics for the srcview server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meigma/srcview"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srcview_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "srcview_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Archive scan metrics
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srcview_scans_total",
			Help: "Total archive scans by outcome",
		},
		[]string{"outcome"},
	)

	scanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "srcview_scan_duration_seconds",
			Help:    "Time to scan the archive",
			Buckets: prometheus.DefBuckets,
		},
	)

	scanEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "srcview_scan_entries",
			Help: "Number of entries found by the last scan",
		},
	)

	// Extraction metrics
	extractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srcview_extractions_total",
			Help: "Total member extractions by outcome",
		},
		[]string{"outcome"},
	)

	extractedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "srcview_extracted_bytes_total",
			Help: "Total bytes streamed from extracted members",
		},
	)

	// Mirror metrics
	mirrorBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "srcview_mirror_build_duration_seconds",
			Help:    "Time to build and swap the static mirror",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	mirrorLinks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "srcview_mirror_links",
			Help: "Number of index links in the last mirror build",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordScan records one archive scan. Its signature matches
// srcview.ScanHook.
func RecordScan(stats srcview.ScanStats) {
	scansTotal.WithLabelValues(string(stats.Outcome)).Inc()
	scanDuration.Observe(stats.Duration.Seconds())
	if stats.Outcome != srcview.ScanUnavailable {
		scanEntries.Set(float64(stats.Entries))
	}
}

// Extraction outcomes.
const (
	ExtractOK       = "ok"
	ExtractNotFound = "not_found"
	ExtractInvalid  = "invalid"
	ExtractAborted  = "aborted"
)

// RecordExtraction records one extraction and the bytes it streamed.
func RecordExtraction(outcome string, bytes int64) {
	extractionsTotal.WithLabelValues(outcome).Inc()
	if bytes > 0 {
		extractedBytes.Add(float64(bytes))
	}
}

// RecordMirrorBuild records a completed mirror build.
func RecordMirrorBuild(links int, duration time.Duration) {
	mirrorLinks.Set(float64(links))
	mirrorBuildDuration.Observe(duration.Seconds())
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics.
// Requests are labelled by their ServeMux pattern to bound cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		RecordHTTPRequest(r.Method, route, rw.statusCode, time.Since(start))
	})
}
