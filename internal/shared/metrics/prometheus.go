package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	entitiesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_entities_created_total",
			Help: "Total number of entities created per collection",
		},
		[]string{"collection"},
	)

	storeOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Total number of entity store operations",
		},
		[]string{"operation", "collection", "result"},
	)

	appointmentStatusChanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointments_status_changed_total",
			Help: "Total number of appointment status transitions",
		},
		[]string{"from_status", "to_status"},
	)

	messagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_sent_total",
			Help: "Total number of conversation messages sent",
		},
		[]string{"sender_type"},
	)

	narrationsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "narrations_started_total",
			Help: "Total number of narration utterances started",
		},
	)

	narrationsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "narrations_failed_total",
			Help: "Total number of narration utterances that ended in error",
		},
	)

	hisRecordsImported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "his_records_imported_total",
			Help: "Total number of reports imported from the hospital imaging system",
		},
	)

	auditEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Total number of audit entries created",
		},
	)

	privacyViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "privacy_violations_total",
			Help: "Total number of PHI patterns detected in HTTP traffic",
		},
		[]string{"field"},
	)

	signInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sign_ins_total",
			Help: "Total number of sign-in attempts",
		},
		[]string{"result"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes URL paths for metrics to avoid cardinality explosion
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Business metric helpers ---

// RecordEntityCreated records an entity creation
func RecordEntityCreated(collection string) {
	entitiesCreated.WithLabelValues(collection).Inc()
}

// RecordStoreOperation records an entity store operation outcome
func RecordStoreOperation(operation, collection string, ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	storeOperations.WithLabelValues(operation, collection, result).Inc()
}

// RecordAppointmentStatusChange records an appointment status transition
func RecordAppointmentStatusChange(fromStatus, toStatus string) {
	appointmentStatusChanged.WithLabelValues(fromStatus, toStatus).Inc()
}

// RecordMessageSent records a conversation message
func RecordMessageSent(senderType string) {
	messagesSent.WithLabelValues(senderType).Inc()
}

// RecordNarrationStarted records a started utterance
func RecordNarrationStarted() {
	narrationsStarted.Inc()
}

// RecordNarrationFailed records a failed utterance
func RecordNarrationFailed() {
	narrationsFailed.Inc()
}

// RecordHISImport records a report imported from the imaging system
func RecordHISImport() {
	hisRecordsImported.Inc()
}

// RecordAuditEntry records an audit entry creation
func RecordAuditEntry() {
	auditEntriesTotal.Inc()
}

// RecordPrivacyViolation records a detected PHI pattern
func RecordPrivacyViolation(field string) {
	privacyViolations.WithLabelValues(field).Inc()
}

// RecordSignIn records a sign-in attempt
func RecordSignIn(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	signInsTotal.WithLabelValues(result).Inc()
}
