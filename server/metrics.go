package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	diploma "github.com/porticus-lab/go-diploma"
)

// Metrics are the Prometheus collectors of one Server.
type Metrics struct {
	exports        *prometheus.CounterVec
	exportDuration *prometheus.HistogramVec
	pages          prometheus.Counter

	requests        *prometheus.CounterVec
	requestDuration *prometheus.SummaryVec
}

// NewMetrics registers the server collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		exports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diploma_exports_total",
			Help: "Finished exports by mode and outcome.",
		}, []string{"mode", "outcome"}),
		exportDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "diploma_export_duration_seconds",
			Help:    "Duration of finished exports.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"mode"}),
		pages: f.NewCounter(prometheus.CounterOpts{
			Name: "diploma_pages_rendered_total",
			Help: "Diploma pages in completed exports.",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diploma_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status_code"}),
		requestDuration: f.NewSummaryVec(prometheus.SummaryOpts{
			Name: "diploma_http_request_duration_seconds",
			Help: "HTTP request duration in seconds.",
			Objectives: map[float64]float64{
				0.5:  0.05,
				0.9:  0.01,
				0.99: 0.001,
			},
		}, []string{"method", "path", "status_code"}),
	}
}

// observeJob records the outcome of j once it finishes. It blocks.
func (m *Metrics) observeJob(j *diploma.Job, started time.Time) {
	<-j.Done()
	mode := string(j.Mode())
	m.exports.WithLabelValues(mode, j.State().String()).Inc()
	m.exportDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
	if res := j.Result(); res != nil {
		m.pages.Add(float64(res.Pages))
	}
}

// middleware counts and times every request.
func (m *Metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
