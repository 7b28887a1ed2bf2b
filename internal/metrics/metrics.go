package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

type Metrics struct {
	HTTPRequestsTotal *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec

	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	JikanRequestsTotal *prometheus.CounterVec

	RemindersProcessedTotal prometheus.Counter
	RemindersSentTotal      *prometheus.CounterVec
	RemindersFailedTotal    prometheus.Counter
}

// Get returns the process-wide metrics, registering them on first use.
//
// Metrics:
//   - anitrack_http_requests_total{method,route,status}
//   - anitrack_http_request_duration_seconds{method,route}
//   - anitrack_cache_hits_total{cache}, anitrack_cache_misses_total{cache}
//   - anitrack_jikan_requests_total{outcome}
//   - anitrack_reminders_processed_total, anitrack_reminders_failed_total
//   - anitrack_reminders_sent_total{channel}
func Get() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "anitrack_http_requests_total",
					Help: "Total HTTP requests by method, route and status",
				},
				[]string{"method", "route", "status"},
			),
			HTTPDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "anitrack_http_request_duration_seconds",
					Help:    "HTTP request duration in seconds",
					Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
				},
				[]string{"method", "route"},
			),
			CacheHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "anitrack_cache_hits_total",
					Help: "Redis cache hits by cache name",
				},
				[]string{"cache"},
			),
			CacheMissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "anitrack_cache_misses_total",
					Help: "Redis cache misses by cache name",
				},
				[]string{"cache"},
			),
			JikanRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "anitrack_jikan_requests_total",
					Help: "Requests made to the Jikan API by outcome",
				},
				[]string{"outcome"}, // "ok", "retry", "failed"
			),
			RemindersProcessedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "anitrack_reminders_processed_total",
					Help: "Due reminders picked up by the worker",
				},
			),
			RemindersSentTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "anitrack_reminders_sent_total",
					Help: "Reminder deliveries by channel",
				},
				[]string{"channel"},
			),
			RemindersFailedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "anitrack_reminders_failed_total",
					Help: "Reminder deliveries that failed",
				},
			),
		}
	})
	return globalMetrics
}

// Middleware records request count and latency per route template, so
// /api/clubs/:id is one series regardless of the id.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method

			m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			m.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// Handler exposes the default registry.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
