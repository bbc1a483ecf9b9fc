package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Allocation paths for the NumbersAllocated counter.
const (
	AllocationSequence = "sequence"
	AllocationFallback = "fallback"
	AllocationSeeded   = "seeded"
)

// RecurringMetrics holds Prometheus metrics for recurring invoice generation.
// Per-tenant metrics carry a tenant_id label for dashboard segmentation.
//
// All methods are safe to call on a nil *RecurringMetrics.
type RecurringMetrics struct {
	// Generation
	InvoicesGenerated  *prometheus.CounterVec
	GenerationFailed   *prometheus.CounterVec
	DuplicateCycles    *prometheus.CounterVec
	TemplatesAdvanced  *prometheus.CounterVec
	TemplatesCompleted *prometheus.CounterVec
	AdvanceFailed      *prometheus.CounterVec

	// Numbering
	NumbersAllocated *prometheus.CounterVec

	// Runs
	RunDuration      prometheus.Histogram
	RunsTotal        *prometheus.CounterVec
	LastRunTimestamp prometheus.Gauge

	// Notifications
	EventsPublished   *prometheus.CounterVec
	NotificationsSent *prometheus.CounterVec
}

// NewRecurringMetrics creates the metrics and registers them with reg.
func NewRecurringMetrics(reg prometheus.Registerer, namespace string) *RecurringMetrics {
	if namespace == "" {
		namespace = "invoicing"
	}

	subsystem := "recurring"
	factory := promauto.With(reg)

	return &RecurringMetrics{
		InvoicesGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "invoices_generated_total",
				Help:      "Total invoices generated from recurring templates",
			},
			[]string{"tenant_id"},
		),
		GenerationFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "generation_failed_total",
				Help:      "Total failed invoice generations",
			},
			[]string{"tenant_id", "code"}, // code: internal, invalid, not_found, conflict
		),
		DuplicateCycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "duplicate_cycles_total",
				Help:      "Templates found due for a cycle that was already invoiced",
			},
			[]string{"tenant_id"},
		),
		TemplatesAdvanced: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "templates_advanced_total",
				Help:      "Total template schedule advancements",
			},
			[]string{"tenant_id"},
		),
		TemplatesCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "templates_completed_total",
				Help:      "Templates that reached their end date",
			},
			[]string{"tenant_id"},
		),
		AdvanceFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "advance_failed_total",
				Help:      "Schedule advancements that failed after a successful generation",
			},
			[]string{"tenant_id"},
		),
		NumbersAllocated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "numbers_allocated_total",
				Help:      "Invoice numbers issued, by allocation path",
			},
			[]string{"path"}, // path: sequence, fallback, seeded
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "run_duration_seconds",
				Help:      "Duration of scheduled recurring invoice runs",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 540},
			},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "runs_total",
				Help:      "Scheduled runs by result",
			},
			[]string{"result"}, // result: success, error
		),
		LastRunTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time of the last finished run",
			},
		),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "events_published_total",
				Help:      "invoice.generated events by publish result",
			},
			[]string{"result"},
		),
		NotificationsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "notifications_total",
				Help:      "Invoice notification emails by result",
			},
			[]string{"tenant_id", "result"}, // result: sent, failed, skipped
		),
	}
}

func (m *RecurringMetrics) Generated(tenantID string) {
	if m == nil {
		return
	}
	m.InvoicesGenerated.WithLabelValues(tenantID).Inc()
}

func (m *RecurringMetrics) Failed(tenantID, code string) {
	if m == nil {
		return
	}
	m.GenerationFailed.WithLabelValues(tenantID, code).Inc()
}

func (m *RecurringMetrics) Duplicate(tenantID string) {
	if m == nil {
		return
	}
	m.DuplicateCycles.WithLabelValues(tenantID).Inc()
}

func (m *RecurringMetrics) Advanced(tenantID string, completed bool) {
	if m == nil {
		return
	}
	m.TemplatesAdvanced.WithLabelValues(tenantID).Inc()
	if completed {
		m.TemplatesCompleted.WithLabelValues(tenantID).Inc()
	}
}

func (m *RecurringMetrics) AdvanceFailure(tenantID string) {
	if m == nil {
		return
	}
	m.AdvanceFailed.WithLabelValues(tenantID).Inc()
}

func (m *RecurringMetrics) Allocated(path string) {
	if m == nil {
		return
	}
	m.NumbersAllocated.WithLabelValues(path).Inc()
}

// RunFinished records the duration and result of one scheduled run.
func (m *RecurringMetrics) RunFinished(d time.Duration, ok bool, at time.Time) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "error"
	}
	m.RunDuration.Observe(d.Seconds())
	m.RunsTotal.WithLabelValues(result).Inc()
	m.LastRunTimestamp.Set(float64(at.Unix()))
}

func (m *RecurringMetrics) Published(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.EventsPublished.WithLabelValues("success").Inc()
		return
	}
	m.EventsPublished.WithLabelValues("error").Inc()
}

func (m *RecurringMetrics) Notification(tenantID, result string) {
	if m == nil {
		return
	}
	m.NotificationsSent.WithLabelValues(tenantID, result).Inc()
}
