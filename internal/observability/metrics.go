// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	ActivitiesProcessed prometheus.Counter
	ActivitiesStored    prometheus.Counter
	ActivityBatchSize   prometheus.Histogram
	IngestionErrors     *prometheus.CounterVec
	ActivityBufferSize  prometheus.Gauge
	WSMessageLatency    prometheus.Histogram

	// Settlement metrics
	SettlementsTotal   *prometheus.CounterVec
	SettlementDuration prometheus.Histogram
	CreatorsPaid       prometheus.Histogram
	PoolBaseAmount     prometheus.Gauge

	// Fraud metrics
	FraudScansTotal     prometheus.Counter
	ActivitiesExcluded  *prometheus.CounterVec
	FraudExclusionRatio prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion  prometheus.Gauge
	LastSuccessfulSettlement prometheus.Gauge
	UptimeSeconds            prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pokerdots"
	}

	return &Metrics{
		// Ingestion metrics
		ActivitiesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "activities_processed_total",
			Help:      "Total number of token activities processed",
		}),
		ActivitiesStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "activities_stored_total",
			Help:      "Total number of token activities stored to the ledger",
		}),
		ActivityBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "batch_size",
			Help:      "Number of activities per ledger write batch",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		IngestionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of ingestion errors by type",
		}, []string{"error_type"}),
		ActivityBufferSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "buffer_size",
			Help:      "Current number of activities buffered before flush",
		}),
		WSMessageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "ws_message_latency_seconds",
			Help:      "WebSocket message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Settlement metrics
		SettlementsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "runs_total",
			Help:      "Total number of settlement runs by status",
		}, []string{"status"}),
		SettlementDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "duration_seconds",
			Help:      "Settlement run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		CreatorsPaid: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "creators_paid",
			Help:      "Number of creators paid per settled pool",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		PoolBaseAmount: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "pool_base_amount",
			Help:      "Base amount of the most recently settled pool",
		}),

		// Fraud metrics
		FraudScansTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fraud",
			Name:      "scans_total",
			Help:      "Total number of fraud analysis runs",
		}),
		ActivitiesExcluded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fraud",
			Name:      "activities_excluded_total",
			Help:      "Total number of activities excluded by detection category",
		}, []string{"category"}),
		FraudExclusionRatio: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fraud",
			Name:      "exclusion_ratio",
			Help:      "Fraction of window activity excluded per scan",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ledger write",
		}),
		LastSuccessfulSettlement: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_settlement_timestamp",
			Help:      "Unix timestamp of last successful settlement run",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance, constructed lazily so the
// process can pick its namespace through Init before anything registers.
var (
	defaultMu      sync.Mutex
	DefaultMetrics *Metrics
)

// Init constructs DefaultMetrics under the given namespace. The first call
// wins; recording helpers that run before any Init fall back to the default
// namespace.
func Init(namespace string) *Metrics {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if DefaultMetrics == nil {
		DefaultMetrics = NewMetrics(namespace)
	}
	return DefaultMetrics
}

func defaultMetrics() *Metrics {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if DefaultMetrics == nil {
		DefaultMetrics = NewMetrics("")
	}
	return DefaultMetrics
}

// RecordActivitiesStored records a successful ledger write.
func RecordActivitiesStored(n int) {
	m := defaultMetrics()
	m.ActivitiesProcessed.Add(float64(n))
	m.ActivitiesStored.Add(float64(n))
	m.ActivityBatchSize.Observe(float64(n))
}

// RecordIngestionError records an ingestion error.
func RecordIngestionError(errorType string) {
	defaultMetrics().IngestionErrors.WithLabelValues(errorType).Inc()
}

// UpdateActivityBuffer updates the ingestion buffer gauge.
func UpdateActivityBuffer(size int) {
	defaultMetrics().ActivityBufferSize.Set(float64(size))
}

// RecordSettlement records a settlement run.
func RecordSettlement(status string, durationSeconds float64, creatorsPaid int) {
	m := defaultMetrics()
	m.SettlementsTotal.WithLabelValues(status).Inc()
	m.SettlementDuration.Observe(durationSeconds)
	if status == "settled" {
		m.CreatorsPaid.Observe(float64(creatorsPaid))
	}
}

// RecordFraudScan records a fraud analysis run's exclusions per category.
func RecordFraudScan(excludedByCategory map[string]int, exclusionRatio float64) {
	m := defaultMetrics()
	m.FraudScansTotal.Inc()
	for category, n := range excludedByCategory {
		m.ActivitiesExcluded.WithLabelValues(category).Add(float64(n))
	}
	m.FraudExclusionRatio.Observe(exclusionRatio)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	m := defaultMetrics()
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
