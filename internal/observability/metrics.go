package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glimpse_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "glimpse_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostsCreated counts published posts.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glimpse_posts_created_total",
		Help: "Total number of posts created",
	})

	// PostsDeleted counts deleted posts.
	PostsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glimpse_posts_deleted_total",
		Help: "Total number of posts deleted",
	})

	// FollowToggles counts follow graph changes by direction.
	FollowToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glimpse_follow_toggles_total",
		Help: "Total follow and unfollow operations",
	}, []string{"action"})

	// MessagesSent counts persisted direct messages.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glimpse_messages_sent_total",
		Help: "Total number of direct messages sent",
	})

	// LoginAttempts counts logins by outcome.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glimpse_login_attempts_total",
		Help: "Total number of login attempts by result",
	}, []string{"result"})

	// MediaUploadBytes records the size of stored images after processing.
	MediaUploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "glimpse_media_upload_bytes",
		Help:    "Size in bytes of processed images written to storage",
		Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
	})

	// EventsPublished counts domain events handed to the broker by type and result.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glimpse_events_published_total",
		Help: "Total domain events published",
	}, []string{"type", "result"})
)

const metricsStartKey = "metrics:start"

// RegisterDBMetrics hooks GORM callbacks so every statement feeds DatabaseQueryLatency.
func RegisterDBMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(metricsStartKey, time.Now())
	}
	after := func(op string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(metricsStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "unknown"
			}
			DatabaseQueryLatency.WithLabelValues(op, table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("metrics:before_create", before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("metrics:after_create", after("create")); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("metrics:before_query", before); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("metrics:after_query", after("query")); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("metrics:before_update", before); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("metrics:after_update", after("update")); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("metrics:before_delete", before); err != nil {
		return err
	}
	return cb.Delete().After("gorm:delete").Register("metrics:after_delete", after("delete"))
}
