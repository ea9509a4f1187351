package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared HTTP metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	gateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_decisions_total",
			Help: "Authorization gate decisions by outcome.",
		},
		[]string{"decision"},
	)

	stepUpCodesIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stepup_codes_issued_total",
		Help: "One-time step-up codes issued.",
	})

	stepUpVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stepup_verifications_total",
			Help: "Step-up code verification attempts by result.",
		},
		[]string{"result"},
	)
)

// Init registers metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		gateDecisionsTotal,
		stepUpCodesIssuedTotal,
		stepUpVerificationsTotal,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// GateDecision records a gate evaluation outcome.
func GateDecision(decision string) {
	gateDecisionsTotal.WithLabelValues(decision).Inc()
}

// StepUpCodeIssued records an issued one-time code.
func StepUpCodeIssued() {
	stepUpCodesIssuedTotal.Inc()
}

// StepUpVerification records a verification attempt result
// ("ok", "invalid", "expired", "locked", "unavailable").
func StepUpVerification(result string) {
	stepUpVerificationsTotal.WithLabelValues(result).Inc()
}

// Instrument wraps a handler to measure RPS, latency and in-flight requests.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses resource identifiers so metric labels stay bounded.
func CanonicalPath(raw string) string {
	if raw == "" {
		return "/"
	}
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	parts := strings.Split(strings.Trim(raw, "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == "v1" && parts[1] == "profiles":
		return "/v1/profiles/:identity_id"
	case len(parts) == 4 && parts[0] == "v1" && parts[1] == "roles" && parts[3] == "permissions":
		return "/v1/roles/:role/permissions"
	case len(parts) == 4 && parts[0] == "v1" && parts[1] == "members" && parts[3] == "role":
		return "/v1/members/:id/role"
	}
	return "/" + strings.Trim(raw, "/")
}

// statusWriter captures the response code for labelling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
