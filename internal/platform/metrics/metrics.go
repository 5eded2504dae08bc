package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ScanVerdicts      *prometheus.CounterVec
	VisitTransitions  *prometheus.CounterVec
	AttendanceToggles *prometheus.CounterVec
	LateArrivals      prometheus.Counter
	SecurityHolds     prometheus.Counter
	Notifications     *prometheus.CounterVec
	AuditAppendErrors prometheus.Counter
	RequestDuration   *prometheus.HistogramVec
}

// New creates all metrics on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all metrics on reg. Tests pass a fresh registry so repeated
// setup never double-registers.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ScanVerdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatepass_scan_verdicts_total",
			Help: "Credential verification verdicts by kind and status",
		}, []string{"kind", "status"}),
		VisitTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatepass_visit_transitions_total",
			Help: "Visit status transitions by target status and result",
		}, []string{"target", "result"}),
		AttendanceToggles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatepass_attendance_toggles_total",
			Help: "Employee attendance toggles by direction and result",
		}, []string{"direction", "result"}),
		LateArrivals: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatepass_late_arrivals_total",
			Help: "Signin events classified late",
		}),
		SecurityHolds: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatepass_security_holds_total",
			Help: "Visitor check-ins refused due to an active security flag",
		}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatepass_notifications_total",
			Help: "Best-effort notification attempts by kind and outcome",
		}, []string{"kind", "outcome"}),
		AuditAppendErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatepass_audit_append_errors_total",
			Help: "Audit sink append failures after retry",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gatepass_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
