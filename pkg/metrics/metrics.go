package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Ledger metrics
	ReplayDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "portfolio_ledger_replay_duration_seconds",
			Help:    "Full ledger replay duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
	)

	ReplayTransactions = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "portfolio_ledger_replay_transactions",
			Help:    "Number of transactions folded per ledger replay",
			Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000},
		},
	)

	ReplayErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_ledger_replay_errors_total",
			Help: "Total number of failed ledger replays",
		},
		[]string{"stage"}, // classify, replay
	)

	// Rate resolution metrics
	RateCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_rate_cache_hits_total",
			Help: "Total number of spot rate cache lookups",
		},
		[]string{"result"}, // hit, miss
	)

	RateLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_rate_lookups_total",
			Help: "Total number of valuation rate resolutions",
		},
		[]string{"result"}, // resolved, unavailable
	)

	// System metrics
	DatabaseConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "portfolio_database_connections",
			Help: "Number of database connections",
		},
		[]string{"state"}, // open, idle, in_use
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"operation", "table"},
	)

	RedisOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"operation"},
	)
)

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint, statusCode string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordReplay records a completed ledger replay
func RecordReplay(duration time.Duration, transactions int) {
	ReplayDuration.Observe(duration.Seconds())
	ReplayTransactions.Observe(float64(transactions))
}

// RecordReplayError records a failed ledger replay by stage
func RecordReplayError(stage string) {
	ReplayErrorsTotal.WithLabelValues(stage).Inc()
}

// RecordRateCacheLookup records a spot rate cache lookup result
func RecordRateCacheLookup(hit bool) {
	if hit {
		RateCacheHitsTotal.WithLabelValues("hit").Inc()
	} else {
		RateCacheHitsTotal.WithLabelValues("miss").Inc()
	}
}

// RecordRateLookup records a valuation rate resolution result
func RecordRateLookup(resolved bool) {
	if resolved {
		RateLookupsTotal.WithLabelValues("resolved").Inc()
	} else {
		RateLookupsTotal.WithLabelValues("unavailable").Inc()
	}
}

// RecordDatabaseQuery records database query metrics
func RecordDatabaseQuery(operation, table string, duration float64) {
	DatabaseQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordRedisOperation records Redis operation metrics
func RecordRedisOperation(operation string, duration float64) {
	RedisOperationDuration.WithLabelValues(operation).Observe(duration)
}
