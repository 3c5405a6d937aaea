package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lims",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lims",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// Allocations counts allocation operations by resource (cubicle, office,
	// workstation, equipment), op (assign, return, release) and result.
	Allocations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lims",
		Name:      "allocation_operations_total",
		Help:      "Allocation operations by resource, op and result.",
	}, []string{"resource", "op", "result"})

	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lims",
		Name:      "notifications_total",
		Help:      "Outbound notifications by result (sent, failed, dropped).",
	}, []string{"result"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests, httpDuration, Allocations, Notifications,
	)
}

// Middleware records request count and latency keyed by the matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}

// Observe records the outcome of one allocation operation.
func Observe(resource, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	Allocations.WithLabelValues(resource, op, result).Inc()
}
