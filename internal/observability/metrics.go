// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution outcome labels.
const (
	OutcomeCacheHit = "cache_hit"
	OutcomeComputed = "computed"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Resolution metrics
	ResolutionsTotal *prometheus.CounterVec
	BatchSize        prometheus.Histogram
	CacheInvalidated prometheus.Counter
	ScoresIngested   prometheus.Counter

	// External computation metrics
	KRNLRequestDuration *prometheus.HistogramVec
	ProofVerifications  *prometheus.CounterVec

	// Storage metrics
	CacheWriteErrors  prometheus.Counter
	RecordWriteErrors prometheus.Counter
	ChecksRecorded    prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "proofscore"
	}

	return &Metrics{
		ResolutionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Total number of score resolutions by outcome",
		}, []string{"outcome"}),
		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "batch_size",
			Help:      "Number of wallets per batch resolution",
			Buckets:   []float64{1, 5, 10, 25, 50, 100},
		}),
		CacheInvalidated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "cache_invalidations_total",
			Help:      "Total number of explicit cache invalidations",
		}),
		ScoresIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "scores_ingested_total",
			Help:      "Total number of externally pushed scores ingested",
		}),
		KRNLRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "krnl",
			Name:      "request_duration_seconds",
			Help:      "KRNL API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		ProofVerifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "krnl",
			Name:      "proof_verifications_total",
			Help:      "Total number of proof verifications by result",
		}, []string{"result"}),
		CacheWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "cache_write_errors_total",
			Help:      "Total number of failed cache writes",
		}),
		RecordWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "record_write_errors_total",
			Help:      "Total number of failed credit check appends",
		}),
		ChecksRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "credit_checks_recorded_total",
			Help:      "Total number of credit check audit rows appended",
		}),
	}
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
