package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestTransitions counts lifecycle actions by outcome ("ok" or an error kind).
	RequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lending",
		Name:      "request_transitions_total",
		Help:      "Borrow request lifecycle actions by action and outcome.",
	}, []string{"action", "outcome"})

	RequestsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lending",
		Name:      "requests_submitted_total",
		Help:      "Borrow request submissions by outcome.",
	}, []string{"outcome"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lending",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Middleware records request latency keyed by the matched route pattern.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc { return gin.WrapH(promhttp.Handler()) }
