package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchesTotal    *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	cacheTotal      *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	refreshDuration prometheus.Histogram
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_fetches_total",
				Help: "Total upstream fetches by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		rateLimited: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_rate_limited_total",
				Help: "Requests delayed by the per-source rate limiter",
			},
			[]string{"source"},
		),
		cacheTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_cache_requests_total",
				Help: "Cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradepulse_last_price",
				Help: "Last recorded price for an asset",
			},
			[]string{"asset"},
		),
		refreshDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tradepulse_refresh_duration_seconds",
				Help:    "Duration of full refresh cycles in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// RecordFetch records one upstream fetch attempt.
func (r *Recorder) RecordFetch(source string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	r.fetchesTotal.WithLabelValues(source, outcome).Inc()
}

// RecordRateLimited records a request held back by the limiter.
func (r *Recorder) RecordRateLimited(source string) {
	r.rateLimited.WithLabelValues(source).Inc()
}

// RecordCache records a cache lookup outcome.
func (r *Recorder) RecordCache(hit bool) {
	outcome := "hit"
	if !hit {
		outcome = "miss"
	}
	r.cacheTotal.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for an asset.
func (r *Recorder) RecordLastPrice(asset string, price float64) {
	r.lastPrice.WithLabelValues(asset).Set(price)
}

// RecordRefreshDuration records one refresh cycle's wall time.
func (r *Recorder) RecordRefreshDuration(seconds float64) {
	r.refreshDuration.Observe(seconds)
}
