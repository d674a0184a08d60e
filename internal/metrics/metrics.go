// Package metrics exposes the Prometheus instrumentation shared by the
// ingestion pipeline and the HTTP viewer, grounded on
// lake/api/metrics/metrics.go and lake/pkg/querier/metrics/metrics.go's
// promauto-vars-plus-middleware pattern.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "suicapindexer_build_info",
			Help: "Build information of the upgrade capability indexer",
		},
		[]string{"version", "commit", "date"},
	)

	checkpointsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suicapindexer_checkpoints_processed_total",
			Help: "Total number of checkpoints processed per handler",
		},
		[]string{"handler"},
	)

	rowsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suicapindexer_rows_emitted_total",
			Help: "Total number of value records emitted by Process per handler",
		},
		[]string{"handler"},
	)

	commitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suicapindexer_commits_total",
			Help: "Total number of batch commits per handler, each counted once after its retries, labeled by outcome",
		},
		[]string{"handler", "status"},
	)

	commitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "suicapindexer_commit_duration_seconds",
			Help:    "Duration of a handler's batch commit, including retries and backoff waits",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler"},
	)

	watermark = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "suicapindexer_watermark_seq_checkpoint",
			Help: "Last acknowledged checkpoint sequence number per handler",
		},
		[]string{"handler"},
	)

	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "suicapindexer_handler_queue_depth",
			Help: "Number of checkpoints buffered in a handler's pending queue",
		},
		[]string{"handler"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suicapindexer_viewer_http_requests_total",
			Help: "Total number of viewer HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "suicapindexer_viewer_http_request_duration_seconds",
			Help:    "Duration of viewer HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Recorder implements pipeline.Metrics, routing driver observations into
// the package's promauto vars. The driver only depends on the narrow
// pipeline.Metrics interface so internal/pipeline never imports this
// package directly.
type Recorder struct{}

func (Recorder) ObserveProcessed(handler string, rows int) {
	checkpointsProcessed.WithLabelValues(handler).Inc()
	rowsEmitted.WithLabelValues(handler).Add(float64(rows))
}

func (Recorder) ObserveCommit(handler string, err error, dur time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	commitsTotal.WithLabelValues(handler, status).Inc()
	commitDuration.WithLabelValues(handler).Observe(dur.Seconds())
}

func (Recorder) SetWatermark(handler string, seq uint64) {
	watermark.WithLabelValues(handler).Set(float64(seq))
}

func (Recorder) SetQueueDepth(handler string, depth int) {
	queueDepth.WithLabelValues(handler).Set(float64(depth))
}

// HTTPMiddleware records request count/duration for the viewer's chi
// router, grounded on lake/api/metrics.Middleware.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = r.URL.Path
		}
		status := strconv.Itoa(ww.Status())
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
