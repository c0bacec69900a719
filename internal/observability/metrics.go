package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectorhub_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "collectorhub_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// VoteTransitions counts ledger transitions by target kind and action.
	VoteTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectorhub_vote_transitions_total",
		Help: "Total vote ledger transitions by target and action",
	}, []string{"target", "action"})

	// VoteConflicts counts vote writes that lost a uniqueness race, by outcome.
	VoteConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectorhub_vote_conflicts_total",
		Help: "Total duplicate-key races on the vote ledger by outcome",
	}, []string{"outcome"})

	// FeedPageLatency records feed assembly latency by sort mode.
	FeedPageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "collectorhub_feed_page_latency_seconds",
		Help:    "Feed page assembly latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"sort"})

	// CommentTreeSize records how many comments a built tree holds.
	CommentTreeSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "collectorhub_comment_tree_size",
		Help:    "Number of comments per built comment tree",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	// CounterDrift counts aggregate rows the audit job found out of sync with the ledger.
	CounterDrift = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectorhub_counter_drift_total",
		Help: "Total aggregate counter rows repaired by the audit job",
	}, []string{"table"})

	// RateLimited counts requests rejected by the rate limiter.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectorhub_rate_limited_total",
		Help: "Total requests rejected by the rate limiter by resource",
	}, []string{"resource"})

	// JobRuns counts scheduled job executions by job and result.
	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectorhub_job_runs_total",
		Help: "Total scheduled job runs by job and result",
	}, []string{"job", "result"})
)

const queryStartKey = "observability:query_start"

// RegisterDatabaseMetrics installs GORM callbacks that feed DatabaseQueryLatency.
func RegisterDatabaseMetrics(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("metrics:before_create", startQuery),
		cb.Create().After("gorm:create").Register("metrics:after_create", endQuery("create")),
		cb.Query().Before("gorm:query").Register("metrics:before_query", startQuery),
		cb.Query().After("gorm:query").Register("metrics:after_query", endQuery("query")),
		cb.Update().Before("gorm:update").Register("metrics:before_update", startQuery),
		cb.Update().After("gorm:update").Register("metrics:after_update", endQuery("update")),
		cb.Delete().Before("gorm:delete").Register("metrics:before_delete", startQuery),
		cb.Delete().After("gorm:delete").Register("metrics:after_delete", endQuery("delete")),
		cb.Raw().Before("gorm:raw").Register("metrics:before_raw", startQuery),
		cb.Raw().After("gorm:raw").Register("metrics:after_raw", endQuery("raw")),
	)
}

func startQuery(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func endQuery(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
