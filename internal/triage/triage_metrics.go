package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage workflow. All observe
// methods are nil-receiver safe so tests can run without a registry.
type Metrics struct {
	ReportsTotal       *prometheus.CounterVec
	ReportDuration     prometheus.Histogram
	EscalationsTotal   prometheus.Counter
	NotificationsTotal *prometheus.CounterVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_reports_total",
			Help: "Total incident reports triaged, by decision.",
		}, []string{"decision"}),
		ReportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_report_duration_seconds",
			Help:    "Duration of full triage runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s .. ~200s
		}),
		EscalationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_escalations_total",
			Help: "Total critical escalations recorded.",
		}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_notifications_total",
			Help: "Total critical-alert notification attempts by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.ReportsTotal,
		m.ReportDuration,
		m.EscalationsTotal,
		m.NotificationsTotal,
	)

	return m
}

// ObserveReport records one completed triage run.
func (m *Metrics) ObserveReport(decision string, seconds float64) {
	if m == nil {
		return
	}
	m.ReportsTotal.WithLabelValues(decision).Inc()
	m.ReportDuration.Observe(seconds)
}

// IncEscalation counts a critical escalation.
func (m *Metrics) IncEscalation() {
	if m == nil {
		return
	}
	m.EscalationsTotal.Inc()
}

// IncNotification counts a notification attempt by result.
func (m *Metrics) IncNotification(result string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(result).Inc()
}
