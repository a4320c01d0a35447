package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors of one API instance.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestDuration *prometheus.HistogramVec
	HabitsCreated       prometheus.Counter
	LogsRecorded        *prometheus.CounterVec
	PaywallShown        *prometheus.CounterVec
}

// NewMetrics registers the looply collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "looply_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"method", "route", "status"},
		),
		HabitsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "looply_habits_created_total",
			Help: "Total number of habits created",
		}),
		LogsRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "looply_logs_recorded_total",
				Help: "Total number of log writes",
			},
			[]string{"kind"}, // kind: toggle, value, manual
		),
		PaywallShown: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "looply_paywall_shown_total",
				Help: "Total number of requests rejected by the free plan limit",
			},
			[]string{"trigger"}, // trigger: habit_limit
		),
	}
}

// Middleware records the duration of every request by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
