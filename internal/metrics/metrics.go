package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scicom"

var (
	// Registry holds the application collectors served on /metrics.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	tokenOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "operations_total",
			Help:      "Token store operations by purpose and outcome.",
		},
		[]string{"op", "purpose", "outcome"},
	)

	tokensPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "purged_total",
			Help:      "Expired tokens removed by the cleanup job.",
		},
	)

	mailSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mail",
			Name:      "sends_total",
			Help:      "Outgoing mails by template and outcome.",
		},
		[]string{"template", "outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		tokenOps,
		tokensPurged,
		mailSends,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency labelled with the matched
// route template rather than the raw path.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().URL.Path == "/metrics" {
				return next(c)
			}

			httpInFlight.Inc()
			defer httpInFlight.Dec()

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := strings.ToUpper(c.Request().Method)
			status := strconv.Itoa(c.Response().Status)

			httpRequests.WithLabelValues(method, route, status).Inc()
			httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func RecordTokenIssue(purpose string, ok bool) {
	tokenOps.WithLabelValues("issue", purpose, outcome(ok)).Inc()
}

// RecordTokenMatch counts peek and consume calls; matched=false covers both
// mismatches and storage errors.
func RecordTokenMatch(op, purpose string, matched bool) {
	result := "miss"
	if matched {
		result = "match"
	}
	tokenOps.WithLabelValues(op, purpose, result).Inc()
}

func RecordTokensPurged(n int64) {
	if n > 0 {
		tokensPurged.Add(float64(n))
	}
}

func RecordMail(template string, ok bool) {
	mailSends.WithLabelValues(template, outcome(ok)).Inc()
}

// RegisterDroppedLogs exposes a counter of log entries lost by a shipper.
func RegisterDroppedLogs(dropped func() uint64) error {
	return Registry.Register(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logging",
			Name:      "dropped_entries_total",
			Help:      "Log entries dropped while Logstash was unreachable.",
		},
		func() float64 { return float64(dropped()) },
	))
}
