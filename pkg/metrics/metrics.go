package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "course_enrollment"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	dbQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "db_query_duration_seconds",
		Help:      "Database query latency by operation and table.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"operation", "table"})

	dbReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "db_reconnects_total",
		Help:      "Successful database reconnections after a dropped connection.",
	})

	usersRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_registered_total",
		Help:      "Accounts created through registration or the admin surface.",
	})

	enrollmentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "enrollments_created_total",
		Help:      "Enrollments created.",
	})

	enrollmentsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "enrollments_completed_total",
		Help:      "Progress updates that completed an enrollment.",
	})

	orphanedEnrollments = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "orphaned_enrollments",
		Help:      "Enrollments whose user no longer exists, as of the last audit.",
	})
)

// Middleware records request counts and latency. Unmatched routes are
// grouped under a single label to bound cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordDBQuery observes a single query's latency.
func RecordDBQuery(operation, table string, elapsed time.Duration) {
	dbQueryDuration.WithLabelValues(operation, table).Observe(elapsed.Seconds())
}

// RecordDBReconnect counts a successful reconnection.
func RecordDBReconnect() {
	dbReconnects.Inc()
}

// RecordUserRegistered counts a new account.
func RecordUserRegistered() {
	usersRegistered.Inc()
}

// RecordEnrollmentCreated counts a new enrollment.
func RecordEnrollmentCreated() {
	enrollmentsCreated.Inc()
}

// RecordEnrollmentCompleted counts an enrollment reaching 100%.
func RecordEnrollmentCompleted() {
	enrollmentsCompleted.Inc()
}

// SetOrphanedEnrollments publishes the latest orphan audit result.
func SetOrphanedEnrollments(n int64) {
	orphanedEnrollments.Set(float64(n))
}
