package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Database metrics
	dbOperationsTotal *prometheus.CounterVec

	// Business metrics
	runsScheduled      *prometheus.CounterVec
	storeActionsTotal  *prometheus.CounterVec
	storeActionErrors  *prometheus.CounterVec
	consentsUploaded   prometheus.Counter
	customersCascading prometheus.Counter
}

// New creates a metrics instance registered on reg. Passing a dedicated
// registry keeps tests isolated from the default one.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pentest_portal_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pentest_portal_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pentest_portal_db_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "table"},
		),
		runsScheduled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pentest_portal_runs_scheduled_total",
				Help: "Total number of test runs created by the scheduler",
			},
			[]string{"test_type"},
		),
		storeActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pentest_portal_store_actions_total",
				Help: "Total number of store actions",
			},
			[]string{"action"},
		),
		storeActionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pentest_portal_store_action_errors_total",
				Help: "Total number of failed store actions",
			},
			[]string{"action"},
		),
		consentsUploaded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pentest_portal_consents_uploaded_total",
				Help: "Total number of consent documents uploaded",
			},
		),
		customersCascading: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pentest_portal_customer_cascade_deletes_total",
				Help: "Total number of customer deletions (with child cascade)",
			},
		),
	}
}

// RecordHTTPRequest records an HTTP request observation
func (m *Metrics) RecordHTTPRequest(method, route, statusCode string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordDBOperation records a database operation
func (m *Metrics) RecordDBOperation(operation, table string) {
	m.dbOperationsTotal.WithLabelValues(operation, table).Inc()
}

// RecordRunScheduled records a scheduler-created run
func (m *Metrics) RecordRunScheduled(testType string) {
	m.runsScheduled.WithLabelValues(testType).Inc()
}

// RecordStoreAction records a store action and, when err is non-nil, its failure
func (m *Metrics) RecordStoreAction(action string, err error) {
	m.storeActionsTotal.WithLabelValues(action).Inc()
	if err != nil {
		m.storeActionErrors.WithLabelValues(action).Inc()
	}
}

// RecordConsentUploaded records a consent upload
func (m *Metrics) RecordConsentUploaded() {
	m.consentsUploaded.Inc()
}

// RecordCustomerDeleted records a cascading customer deletion
func (m *Metrics) RecordCustomerDeleted() {
	m.customersCascading.Inc()
}
