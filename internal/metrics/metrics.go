// Package metrics exposes process-level Prometheus collectors for agentca:
// one process-wide registry, package-level gauge/counter/histogram vars
// registered in init(), a /metrics Handler, and a Record*/Set* function per
// domain concern. Grounded on r3e-network-service_layer's pkg/metrics
// (package-level prometheus.NewRegistry(), init()-time MustRegister
// alongside collectors.NewProcessCollector/NewGoCollector, promhttp.HandlerFor,
// Record* as the public mutation API), adapted here to an echo.MiddlewareFunc
// for HTTP instrumentation since internal/api is built on labstack/echo/v5
// rather than stdlib net/http.
package metrics

import (
	"strconv"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every agentca-specific Prometheus collector.
var Registry = prometheus.NewRegistry()

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "agentca",
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentca",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests handled.",
	}, []string{"method", "path", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "agentca",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"method", "path"})

	tacpActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "agentca",
		Subsystem: "tacp",
		Name:      "active_sessions",
		Help:      "Current number of active TACP sessions.",
	})

	evaluationQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "agentca",
		Subsystem: "evaluation",
		Name:      "queue_depth",
		Help:      "Current number of pending or running evaluation runs.",
	})

	traceSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "agentca",
		Subsystem: "trace",
		Name:      "stream_subscribers",
		Help:      "Current number of live /v1/trace_stream subscribers.",
	})

	evaluationRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentca",
		Subsystem: "evaluation",
		Name:      "runs_total",
		Help:      "Total number of completed evaluation runs by grade.",
	}, []string{"grade"})

	certificatesIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentca",
		Subsystem: "certificate",
		Name:      "issued_total",
		Help:      "Total number of certificates issued by grade.",
	}, []string{"grade"})

	tasksDelegated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentca",
		Subsystem: "tacp",
		Name:      "tasks_delegated_total",
		Help:      "Total number of task_request outcomes by result.",
	}, []string{"result"})
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		tacpActiveSessions,
		evaluationQueueDepth,
		traceSubscribers,
		evaluationRuns,
		certificatesIssued,
		tasksDelegated,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler exposes the registered collectors for Prometheus scraping.
func Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return func(c *echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}

// Instrument wraps every request, /metrics included, with
// in-flight/count/duration tracking.
func Instrument() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			method := c.Request().Method
			status := c.Response().Status

			httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
			return err
		}
	}
}

// SetTACPActiveSessions updates the active-session gauge; called
// periodically by internal/worker alongside its sweeps.
func SetTACPActiveSessions(n int) {
	tacpActiveSessions.Set(float64(n))
}

// SetEvaluationQueueDepth updates the evaluation queue-depth gauge.
func SetEvaluationQueueDepth(n int) {
	evaluationQueueDepth.Set(float64(n))
}

// SetTraceSubscribers updates the trace-stream subscriber gauge.
func SetTraceSubscribers(n int) {
	traceSubscribers.Set(float64(n))
}

// RecordEvaluationRun records a completed evaluation run's grade.
func RecordEvaluationRun(grade string) {
	if grade == "" {
		grade = "ungraded"
	}
	evaluationRuns.WithLabelValues(grade).Inc()
}

// RecordCertificateIssued records a newly issued certificate's grade.
func RecordCertificateIssued(grade string) {
	if grade == "" {
		grade = "ungraded"
	}
	certificatesIssued.WithLabelValues(grade).Inc()
}

// RecordTaskDelegation records a task_request outcome ("accepted" or
// "rejected").
func RecordTaskDelegation(result string) {
	if result == "" {
		result = "unknown"
	}
	tasksDelegated.WithLabelValues(result).Inc()
}
