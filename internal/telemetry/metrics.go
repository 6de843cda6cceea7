package telemetry

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	submissionsGraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bandscore_submissions_graded_total",
			Help: "Number of graded submissions.",
		},
		[]string{"module", "tier"},
	)

	bandScores = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bandscore_band",
			Help:    "Band scores awarded.",
			Buckets: []float64{1, 2, 3, 4, 5, 5.5, 6, 6.5, 7, 7.5, 8, 8.5, 9},
		},
		[]string{"module"},
	)

	gradingWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bandscore_grading_warnings_total",
			Help: "Questions graded incorrect because of malformed content.",
		},
		[]string{"reason"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RegisterMetrics registers the service metrics with r.
func RegisterMetrics(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{submissionsGraded, bandScores, gradingWarnings, httpRequests, httpDuration} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveSubmission records a graded submission.
func ObserveSubmission(module, tier string, band float64, warnings []string) {
	submissionsGraded.WithLabelValues(module, tier).Inc()
	bandScores.WithLabelValues(module).Observe(band)
	for _, w := range warnings {
		gradingWarnings.WithLabelValues(w).Inc()
	}
}

// GinMetrics counts and times HTTP requests by route.
func GinMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		httpRequests.WithLabelValues(c.Request.Method, c.FullPath(), strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, c.FullPath()).Observe(time.Since(start).Seconds())
	}
}
