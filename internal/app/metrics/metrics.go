// Package metrics exposes Prometheus collectors for the settlement engine.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the engine-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lottery_engine",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lottery_engine",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lottery_engine",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	ticketsSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lottery_engine",
			Subsystem: "settlement",
			Name:      "tickets_settled_total",
			Help:      "Total number of tickets settled, by outcome.",
		},
		[]string{"outcome"},
	)

	drawsSettled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lottery_engine",
			Subsystem: "settlement",
			Name:      "draws_settled_total",
			Help:      "Total number of draws fully settled.",
		},
	)

	settlementDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lottery_engine",
			Subsystem: "settlement",
			Name:      "duration_seconds",
			Help:      "Duration of full draw settlements.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)

	prizesAwarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lottery_engine",
			Subsystem: "settlement",
			Name:      "prizes_awarded_centavos_total",
			Help:      "Total prize value awarded during settlement, in centavos.",
		},
	)

	claimsDecided = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lottery_engine",
			Subsystem: "claims",
			Name:      "decisions_total",
			Help:      "Total number of claim decisions, by action.",
		},
		[]string{"action"},
	)

	reprintRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lottery_engine",
			Subsystem: "reprints",
			Name:      "requests_total",
			Help:      "Total number of reprint requests, by result.",
		},
		[]string{"result"},
	)

	notificationsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lottery_engine",
			Subsystem: "notifications",
			Name:      "dispatched_total",
			Help:      "Total number of notification rows written, by type.",
		},
		[]string{"type"},
	)

	notificationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lottery_engine",
			Subsystem: "notifications",
			Name:      "failures_total",
			Help:      "Total number of notification dispatch failures.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ticketsSettled,
		drawsSettled,
		settlementDuration,
		prizesAwarded,
		claimsDecided,
		reprintRequests,
		notificationsDispatched,
		notificationFailures,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordTicketSettled records one settled ticket and its awarded prize.
func RecordTicketSettled(outcome string, prize int64) {
	ticketsSettled.WithLabelValues(outcome).Inc()
	if prize > 0 {
		prizesAwarded.Add(float64(prize))
	}
}

// RecordDrawSettled records a fully settled draw.
func RecordDrawSettled(duration time.Duration) {
	drawsSettled.Inc()
	if duration <= 0 {
		duration = time.Millisecond
	}
	settlementDuration.Observe(duration.Seconds())
}

// RecordClaimDecision records one claim decision.
func RecordClaimDecision(action string) {
	claimsDecided.WithLabelValues(action).Inc()
}

// RecordReprint records one reprint request outcome.
func RecordReprint(result string) {
	reprintRequests.WithLabelValues(result).Inc()
}

// RecordNotification records one persisted notification row.
func RecordNotification(notificationType string) {
	notificationsDispatched.WithLabelValues(notificationType).Inc()
}

// RecordNotificationFailure records a dispatch failure that was logged and
// swallowed.
func RecordNotificationFailure() {
	notificationFailures.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "draws", "tickets", "claims", "notifications":
		if len(parts) == 1 {
			return "/" + parts[0]
		}
		if len(parts) == 2 {
			return "/" + parts[0] + "/:id"
		}
		return "/" + parts[0] + "/:id/" + parts[2]
	default:
		return "/" + parts[0]
	}
}
