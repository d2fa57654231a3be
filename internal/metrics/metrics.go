// Package metrics exposes Prometheus collectors for the collection run.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeEmpty   = "empty"
)

var (
	batchesTotal           *prometheus.CounterVec
	categoriesTotal        *prometheus.CounterVec
	rowsWrittenTotal       *prometheus.CounterVec
	errorsLoggedTotal      *prometheus.CounterVec
	errorSinkFailuresTotal prometheus.Counter
	paceDelaySeconds       prometheus.Histogram
	rateLimitDelaySeconds  *prometheus.HistogramVec
	runDurationSeconds     prometheus.Gauge
	lastRunTimestamp       prometheus.Gauge

	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		batchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_batches_total",
				Help: "Source batches issued, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		categoriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_categories_total",
				Help: "Category scrapes completed, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		rowsWrittenTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_rows_written_total",
				Help: "Rows written to destination tables.",
			},
			[]string{"table"},
		)

		errorsLoggedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_errors_logged_total",
				Help: "Error records appended to the error log, labeled by source.",
			},
			[]string{"source"},
		)

		errorSinkFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "collector_error_sink_failures_total",
				Help: "Error records that could not be persisted and were dropped.",
			},
		)

		paceDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "collector_pace_delay_seconds",
				Help:    "Histogram of pacing pauses between outbound calls.",
				Buckets: []float64{0.5, 1, 2, 5, 7.5, 10, 12.5, 15, 20},
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "collector_rate_limit_delay_seconds",
				Help:    "Histogram of per-host rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"host"},
		)

		runDurationSeconds = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "collector_run_duration_seconds",
				Help: "Duration of the last completed run.",
			},
		)

		lastRunTimestamp = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "collector_last_run_timestamp_seconds",
				Help: "Unix time at which the last run reached DONE.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_http_requests_total",
				Help: "Requests served by the metrics server.",
			},
			[]string{"method", "route", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "collector_http_request_duration_seconds",
				Help:    "Histogram of metrics server request durations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveBatch counts one source batch.
func ObserveBatch(source, outcome string) {
	Init()
	batchesTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveCategory counts one category scrape.
func ObserveCategory(source, outcome string) {
	Init()
	categoriesTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveRowsWritten adds n written rows for table.
func ObserveRowsWritten(table string, n int) {
	Init()
	if n > 0 {
		rowsWrittenTotal.WithLabelValues(table).Add(float64(n))
	}
}

// ObserveErrorLogged counts one error record.
func ObserveErrorLogged(source string) {
	Init()
	errorsLoggedTotal.WithLabelValues(source).Inc()
}

// ObserveErrorSinkFailure counts one dropped error record.
func ObserveErrorSinkFailure() {
	Init()
	errorSinkFailuresTotal.Inc()
}

// ObservePaceDelay records one pacing pause.
func ObservePaceDelay(d time.Duration) {
	Init()
	paceDelaySeconds.Observe(d.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(host string, d time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(host).Observe(d.Seconds())
}

// ObserveRun records the end of a run.
func ObserveRun(duration time.Duration, finished time.Time) {
	Init()
	runDurationSeconds.Set(duration.Seconds())
	lastRunTimestamp.Set(float64(finished.Unix()))
}

// Push sends the default registry to a Pushgateway. Batch jobs exit before a
// scrape would reach them, so this is the main export path.
func Push(ctx context.Context, url, job string) error {
	Init()
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
