package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "voxmarket",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voxmarket",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "voxmarket",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	storeCleanups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voxmarket",
			Subsystem: "store",
			Name:      "cleanups_total",
			Help:      "Storage cleanups run, by tier.",
		},
		[]string{"level"},
	)

	storeDroppedWrites = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "voxmarket",
			Subsystem: "store",
			Name:      "dropped_writes_total",
			Help:      "Writes abandoned after every cleanup tier failed.",
		},
	)

	storeUsage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "voxmarket",
			Subsystem: "store",
			Name:      "usage_bytes",
			Help:      "Bytes held by the persisted store at the last write.",
		},
	)

	escrowTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voxmarket",
			Subsystem: "escrow",
			Name:      "transitions_total",
			Help:      "Escrow payments entering each status.",
		},
		[]string{"status"},
	)

	deliveryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voxmarket",
			Subsystem: "delivery",
			Name:      "attempts_total",
			Help:      "Remote message delivery attempts by outcome.",
		},
		[]string{"outcome"},
	)

	pendingMessages = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "voxmarket",
			Subsystem: "delivery",
			Name:      "pending_messages",
			Help:      "Messages waiting in the fallback queue after the last sweep.",
		},
	)

	messagesFlagged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voxmarket",
			Subsystem: "moderation",
			Name:      "flagged_total",
			Help:      "Messages flagged, by matching rule or manual reason.",
		},
		[]string{"rule"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpInFlight,
		httpRequests,
		httpDuration,
		storeCleanups,
		storeDroppedWrites,
		storeUsage,
		escrowTransitions,
		deliveryAttempts,
		pendingMessages,
		messagesFlagged,
	)
}

// Handler exposes the registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency for every Echo route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			httpRequests.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			httpDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func RecordStoreCleanup(level string) { storeCleanups.WithLabelValues(level).Inc() }

func RecordDroppedWrite() { storeDroppedWrites.Inc() }

func SetStoreUsage(bytes int64) { storeUsage.Set(float64(bytes)) }

func RecordEscrowTransition(status string) { escrowTransitions.WithLabelValues(status).Inc() }

func RecordDeliveryAttempt(outcome string) { deliveryAttempts.WithLabelValues(outcome).Inc() }

func SetPendingMessages(n int) { pendingMessages.Set(float64(n)) }

func RecordFlagged(rule string) { messagesFlagged.WithLabelValues(rule).Inc() }
